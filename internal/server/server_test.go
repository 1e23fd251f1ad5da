package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/mietwerk/mietwerk/internal/audit/domain"
	auditservice "github.com/mietwerk/mietwerk/internal/audit/service"
	authdomain "github.com/mietwerk/mietwerk/internal/auth/domain"
	authservice "github.com/mietwerk/mietwerk/internal/auth/service"
	"github.com/mietwerk/mietwerk/internal/auth/session"
	buildingdomain "github.com/mietwerk/mietwerk/internal/building/domain"
	buildingservice "github.com/mietwerk/mietwerk/internal/building/service"
	"github.com/mietwerk/mietwerk/internal/clock"
	"github.com/mietwerk/mietwerk/internal/config"
	costdomain "github.com/mietwerk/mietwerk/internal/cost/domain"
	flatdomain "github.com/mietwerk/mietwerk/internal/flat/domain"
	flatservice "github.com/mietwerk/mietwerk/internal/flat/service"
	invoicedomain "github.com/mietwerk/mietwerk/internal/invoice/domain"
	invoiceservice "github.com/mietwerk/mietwerk/internal/invoice/service"
	meterdomain "github.com/mietwerk/mietwerk/internal/meter/domain"
	meterservice "github.com/mietwerk/mietwerk/internal/meter/service"
	persondomain "github.com/mietwerk/mietwerk/internal/person/domain"
	personservice "github.com/mietwerk/mietwerk/internal/person/service"
	"github.com/mietwerk/mietwerk/internal/providers/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type serverFixture struct {
	server *Server
	engine *gin.Engine
	clock  *clock.FakeClock
}

func setupServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&persondomain.Person{},
		&authdomain.Session{},
		&buildingdomain.Building{},
		&flatdomain.Flat{},
		&meterdomain.Meter{},
		&meterdomain.ReadingUpdate{},
		&costdomain.AdditionalCost{},
		&invoicedomain.Invoice{},
		&auditdomain.Entry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()
	cfg := config.Config{SessionTTLHours: 1}
	fakeClock := clock.NewFakeClock(time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC))

	personSvc := personservice.New(personservice.Params{DB: db, Log: logger, GenID: node})
	auditSvc := auditservice.New(auditservice.Params{DB: db, Log: logger, GenID: node})
	authSvc := authservice.New(authservice.Params{DB: db, Log: logger, Cfg: cfg, PersonSvc: personSvc})
	buildingSvc := buildingservice.New(buildingservice.Params{
		DB: db, Log: logger, GenID: node, Clock: fakeClock, PersonSvc: personSvc, AuditSvc: auditSvc,
	})
	flatSvc := flatservice.New(flatservice.Params{DB: db, Log: logger, PersonSvc: personSvc})
	meterSvc := meterservice.New(meterservice.Params{DB: db, Log: logger, GenID: node, Clock: fakeClock})
	invoiceSvc := invoiceservice.New(invoiceservice.Params{
		DB:        db,
		Log:       logger,
		GenID:     node,
		Clock:     fakeClock,
		Renderer:  pdf.NewStatementRenderer(),
		Billing:   config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		PersonSvc: personSvc,
		AuditSvc:  auditSvc,
	})

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	server := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         cfg,
		DB:          db,
		GenID:       node,
		Sessions:    session.NewManager(cfg),
		Authsvc:     authSvc,
		PersonSvc:   personSvc,
		BuildingSvc: buildingSvc,
		FlatSvc:     flatSvc,
		MeterSvc:    meterSvc,
		InvoiceSvc:  invoiceSvc,
		AuditSvc:    auditSvc,
	})

	return &serverFixture{server: server, engine: engine, clock: fakeClock}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp := httptest.NewRecorder()
	f.engine.ServeHTTP(resp, req)
	return resp
}

func (f *serverFixture) register(t *testing.T, email string, landlord bool) {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Lena",
		"last_name":  "Vogel",
		"email":      email,
		"password":   "test-password-1",
		"landlord":   landlord,
	}, nil)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func (f *serverFixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()

	resp := f.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    email,
		"password": "test-password-1",
	}, nil)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == session.DefaultCookieName {
			return cookie
		}
	}
	t.Fatal("login response carries no session cookie")
	return nil
}

func TestAuthFlow(t *testing.T) {
	f := setupServerFixture(t)

	f.register(t, "lena.vogel@example.com", true)
	cookie := f.login(t, "lena.vogel@example.com")

	resp := f.do(t, http.MethodGet, "/api/me", nil, cookie)
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/auth/logout", nil, cookie)
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	f := setupServerFixture(t)

	f.register(t, "lena.vogel@example.com", true)

	resp := f.do(t, http.MethodPost, "/api/auth/register", map[string]any{
		"first_name": "Other",
		"last_name":  "Person",
		"email":      "lena.vogel@example.com",
		"password":   "test-password-1",
	}, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	f := setupServerFixture(t)

	f.register(t, "lena.vogel@example.com", true)

	resp := f.do(t, http.MethodPost, "/api/auth/login", map[string]any{
		"email":    "lena.vogel@example.com",
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

// TestFullTenancyFlow walks the happy path from registration to a
// downloadable statement PDF.
func TestFullTenancyFlow(t *testing.T) {
	f := setupServerFixture(t)

	f.register(t, "lena.vogel@example.com", true)
	f.register(t, "timo.berg@example.com", false)
	landlord := f.login(t, "lena.vogel@example.com")
	tenant := f.login(t, "timo.berg@example.com")

	resp := f.do(t, http.MethodPost, "/api/buildings", map[string]any{
		"street":  "Hauptstrasse 12",
		"city":    "Berlin",
		"zip":     "10115",
		"country": "DE",
		"flats": []map[string]any{{
			"location":      "EG links",
			"rooms":         3,
			"square_meters": 100,
			"residents":     2,
			"cold_rent":     300,
			"warm_rent":     450,
			"meters": []map[string]any{{
				"number":        "M-1001",
				"type":          "GAS",
				"reading":       1000,
				"cost_per_unit": 0.48,
				"base_cost":     12.50,
			}},
		}},
		"costs": []map[string]any{{
			"name":         "Property tax",
			"amount":       25,
			"distribution": "BY_FLAT",
			"frequency":    "MONTHLY",
		}},
	}, landlord)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var view buildingdomain.BuildingView
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &view))
	require.Len(t, view.Flats, 1)
	buildingID := view.Building.ID.String()
	flatID := view.Flats[0].Flat.ID.String()
	meterID := view.Flats[0].Meters[0].ID.String()

	resp = f.do(t, http.MethodPut, "/api/buildings/"+buildingID+"/flats/"+flatID+"/tenant", map[string]any{
		"email": "timo.berg@example.com",
	}, landlord)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	// The creation baseline is in the window; advance so the tenant
	// reading lands a month later.
	f.clock.Advance(30 * 24 * time.Hour)
	resp = f.do(t, http.MethodPost, "/api/meters/"+meterID+"/readings", map[string]any{
		"reading": 2000,
	}, tenant)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	resp = f.do(t, http.MethodPost, "/api/meters/"+meterID+"/readings", map[string]any{
		"reading": 1500,
	}, tenant)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"flat_id":         flatID,
		"total_rent_paid": 5400,
	}, landlord)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var invoice invoicedomain.Summary
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &invoice))
	assert.InDelta(t, 4392.50, invoice.TotalCost, 1e-9)
	assert.Equal(t, f.clock.Now().Year()-1, invoice.ForYear)

	// The breakdown maps are internal and never leave the API.
	assert.NotContains(t, resp.Body.String(), "meter_difference")
	assert.NotContains(t, resp.Body.String(), "operating_cost_share")

	resp = f.do(t, http.MethodGet, "/api/invoices/"+invoice.ID.String(), nil, landlord)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "meter_total_cost")

	// Tenants may not create invoices.
	resp = f.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"flat_id": flatID,
	}, tenant)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/invoices/"+invoice.ID.String()+"?format=pdf", nil, tenant)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/pdf", resp.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(resp.Body.Bytes(), []byte("%PDF")))

	resp = f.do(t, http.MethodPost, "/api/invoices/"+invoice.ID.String()+"/paid", nil, landlord)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/invoices/tenant", nil, tenant)
	require.Equal(t, http.StatusOK, resp.Code)

	var listing struct {
		Invoices []invoicedomain.Summary `json:"invoices"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	require.Len(t, listing.Invoices, 1)
	assert.True(t, listing.Invoices[0].Paid)
	assert.NotEmpty(t, listing.Invoices[0].PDF)
}

func TestUnknownBuildingReturns404(t *testing.T) {
	f := setupServerFixture(t)

	f.register(t, "lena.vogel@example.com", true)
	cookie := f.login(t, "lena.vogel@example.com")

	resp := f.do(t, http.MethodGet, "/api/buildings/123456789", nil, cookie)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.do(t, http.MethodGet, "/api/buildings/not-a-number", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
