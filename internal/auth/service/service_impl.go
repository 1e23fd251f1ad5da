package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mietwerk/mietwerk/internal/auth/domain"
	"github.com/mietwerk/mietwerk/internal/auth/password"
	"github.com/mietwerk/mietwerk/internal/config"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	"github.com/mietwerk/mietwerk/pkg/repository"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Cfg       config.Config
	PersonSvc persondomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	personsvc  persondomain.Service
	sessions   repository.Repository[domain.Session]
	sessionTTL time.Duration
}

func New(p Params) domain.Service {
	ttl := time.Duration(p.Cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("auth.service"),
		personsvc:  p.PersonSvc,
		sessions:   repository.ProvideStore[domain.Session](p.DB),
		sessionTTL: ttl,
	}
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResult, error) {
	if strings.TrimSpace(req.Password) == "" {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	person, err := s.personsvc.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, persondomain.ErrPersonNotFound) || errors.Is(err, persondomain.ErrInvalidEmail) {
			return domain.LoginResult{}, domain.ErrInvalidCredentials
		}
		return domain.LoginResult{}, err
	}

	if person.PasswordHash == nil || !password.Verify(req.Password, *person.PasswordHash) {
		return domain.LoginResult{}, domain.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	session := domain.Session{
		Token:     ulid.Make().String(),
		PersonID:  person.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, &session); err != nil {
		return domain.LoginResult{}, err
	}

	s.log.Info("session created", zap.String("person_id", person.ID.String()))

	return domain.LoginResult{Session: session, Person: person}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	session, err := s.findSession(ctx, token)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("token = ?", session.Token).
		Update("revoked_at", now).Error
}

func (s *Service) Resolve(ctx context.Context, token string) (persondomain.Person, error) {
	session, err := s.findSession(ctx, token)
	if err != nil {
		return persondomain.Person{}, err
	}

	now := time.Now().UTC()
	if session.RevokedAt != nil {
		return persondomain.Person{}, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return persondomain.Person{}, domain.ErrSessionExpired
	}

	person, err := s.personsvc.Get(ctx, session.PersonID)
	if err != nil {
		if errors.Is(err, persondomain.ErrPersonNotFound) {
			return persondomain.Person{}, domain.ErrInvalidSession
		}
		return persondomain.Person{}, err
	}

	return person, nil
}

func (s *Service) findSession(ctx context.Context, token string) (*domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessions.FindOne(ctx, &domain.Session{Token: token})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrInvalidSession
	}
	return session, nil
}
