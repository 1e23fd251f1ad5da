package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/mietwerk/mietwerk/internal/auth/password"
	"github.com/mietwerk/mietwerk/internal/observability/logger"
	"github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/pkg/db"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  repository.Repository[domain.Person]
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("person.service"),
		genID: p.GenID,
		repo:  repository.ProvideStore[domain.Person](p.DB),
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.Person, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.Person{}, domain.ErrInvalidEmail
	}

	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)
	if firstName == "" || lastName == "" {
		return domain.Person{}, domain.ErrInvalidName
	}

	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return domain.Person{}, domain.ErrInvalidPassword
	}

	existing, err := s.repo.FindOne(ctx, &domain.Person{Email: &email})
	if err != nil {
		return domain.Person{}, err
	}
	if existing != nil {
		return domain.Person{}, domain.ErrEmailTaken
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return domain.Person{}, err
	}

	capabilities := []domain.Capability{domain.CapabilityTenant}
	if req.Landlord {
		capabilities = []domain.Capability{domain.CapabilityLandlord}
	}

	now := time.Now().UTC()
	person := domain.Person{
		ID:           s.genID.Generate(),
		FirstName:    firstName,
		LastName:     lastName,
		Email:        &email,
		PasswordHash: &hashed,
		Phone:        strings.TrimSpace(req.Phone),
		Capabilities: datatypes.NewJSONSlice(capabilities),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &person); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Person{}, domain.ErrEmailTaken
		}
		return domain.Person{}, err
	}

	logger.FromContext(ctx).Named("person.service").Info("person registered",
		zap.String("person_id", person.ID.String()),
		zap.Bool("landlord", req.Landlord),
	)

	return person, nil
}

func (s *Service) RegisterContact(ctx context.Context, firstName, lastName string) (domain.Person, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return domain.Person{}, domain.ErrInvalidName
	}

	now := time.Now().UTC()
	person := domain.Person{
		ID:           s.genID.Generate(),
		FirstName:    firstName,
		LastName:     lastName,
		Capabilities: datatypes.NewJSONSlice([]domain.Capability{domain.CapabilityTenant}),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, &person); err != nil {
		return domain.Person{}, err
	}

	logger.FromContext(ctx).Named("person.service").Info("contact person created",
		zap.String("person_id", person.ID.String()),
	)

	return person, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Person, error) {
	person, err := s.repo.FindOne(ctx, &domain.Person{ID: id})
	if err != nil {
		return domain.Person{}, err
	}
	if person == nil {
		return domain.Person{}, domain.ErrPersonNotFound
	}
	return *person, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (domain.Person, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return domain.Person{}, domain.ErrInvalidEmail
	}

	person, err := s.repo.FindOne(ctx, &domain.Person{Email: &normalized})
	if err != nil {
		return domain.Person{}, err
	}
	if person == nil {
		return domain.Person{}, domain.ErrPersonNotFound
	}
	return *person, nil
}

func (s *Service) Modify(ctx context.Context, id snowflake.ID, req domain.ModifyRequest) (domain.Person, error) {
	person, err := s.Get(ctx, id)
	if err != nil {
		return domain.Person{}, err
	}

	fields := map[string]any{"updated_at": time.Now().UTC()}
	if req.FirstName != nil {
		name := strings.TrimSpace(*req.FirstName)
		if name == "" {
			return domain.Person{}, domain.ErrInvalidName
		}
		fields["first_name"] = name
	}
	if req.LastName != nil {
		name := strings.TrimSpace(*req.LastName)
		if name == "" {
			return domain.Person{}, domain.ErrInvalidName
		}
		fields["last_name"] = name
	}
	if req.Phone != nil {
		fields["phone"] = strings.TrimSpace(*req.Phone)
	}

	if err := s.repo.Update(ctx, person.ID.String(), fields); err != nil {
		return domain.Person{}, err
	}

	return s.Get(ctx, id)
}

func (s *Service) ChangePassword(ctx context.Context, id snowflake.ID, req domain.ChangePasswordRequest) error {
	person, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if person.PasswordHash == nil || !password.Verify(req.CurrentPassword, *person.PasswordHash) {
		return domain.ErrWrongPassword
	}
	if len(strings.TrimSpace(req.NewPassword)) < minPasswordLength {
		return domain.ErrInvalidPassword
	}

	hashed, err := password.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	return s.repo.Update(ctx, person.ID.String(), map[string]any{
		"password_hash": hashed,
		"updated_at":    time.Now().UTC(),
	})
}

func (s *Service) GrantCapability(ctx context.Context, id snowflake.ID, capability domain.Capability) error {
	person, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if person.HasCapability(capability) {
		return nil
	}

	person.Grant(capability)
	return s.repo.Update(ctx, person.ID.String(), map[string]any{
		"capabilities": datatypes.NewJSONSlice([]domain.Capability(person.Capabilities)),
		"updated_at":   time.Now().UTC(),
	})
}

// Delete removes the account. Landlords must delete their buildings
// first; tenancy links are detached so flats survive the tenant leaving.
func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	person, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	var buildings int64
	if err := s.db.WithContext(ctx).Table("buildings").Where("landlord_id = ?", person.ID).Count(&buildings).Error; err != nil {
		return err
	}
	if buildings > 0 {
		return domain.ErrOwnsBuildings
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("flats").Where("tenant_id = ?", person.ID).Update("tenant_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM sessions WHERE person_id = ?", person.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Person{}, "id = ?", person.ID).Error
	})
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
