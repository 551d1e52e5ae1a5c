package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"hazacheck/internal/config"
	"hazacheck/internal/database"
	"hazacheck/internal/domain"
	"hazacheck/internal/services"
	apperrors "hazacheck/pkg/errors"
)

type fakeInquiries struct {
	submitFn func(context.Context, services.SubmitPayload) (*domain.Inquiry, error)
	lookupFn func(context.Context, services.LookupQuery) (*services.LookupResult, error)
}

func (f *fakeInquiries) Submit(ctx context.Context, p services.SubmitPayload) (*domain.Inquiry, error) {
	return f.submitFn(ctx, p)
}

func (f *fakeInquiries) Lookup(ctx context.Context, q services.LookupQuery) (*services.LookupResult, error) {
	return f.lookupFn(ctx, q)
}

type fakeAdmin struct {
	calls    atomic.Int32
	listFn   func(context.Context, services.ListQuery) (*services.ListResult, error)
	updateFn func(context.Context, services.UpdatePayload) (*services.UpdateResult, error)
	deleteFn func(context.Context, string) error
}

func (f *fakeAdmin) List(ctx context.Context, q services.ListQuery) (*services.ListResult, error) {
	f.calls.Add(1)
	return f.listFn(ctx, q)
}

func (f *fakeAdmin) UpdateStatus(ctx context.Context, p services.UpdatePayload) (*services.UpdateResult, error) {
	f.calls.Add(1)
	return f.updateFn(ctx, p)
}

func (f *fakeAdmin) Delete(ctx context.Context, id string) error {
	f.calls.Add(1)
	return f.deleteFn(ctx, id)
}

type fakeHealth struct{ healthy bool }

func (f fakeHealth) Check(context.Context) (services.HealthResult, bool) {
	if f.healthy {
		return services.HealthResult{Status: "healthy", Service: "test", Database: "ok"}, true
	}
	return services.HealthResult{Status: "unhealthy", Service: "test", Database: "unavailable"}, false
}

func testConfig(env string) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "test", Env: env},
		Auth: config.AuthConfig{
			AdminToken:         "admin-secret",
			SecretKey:          "signing-key",
			TokenExpiryMinutes: 60,
		},
		CORS: config.CORSConfig{
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "Authorization"},
			MaxAge:         86400,
		},
	}
}

func newFakeServer(t *testing.T, env string, inq *fakeInquiries, admin *fakeAdmin) http.Handler {
	t.Helper()
	cfg := testConfig(env)
	if inq == nil {
		inq = &fakeInquiries{}
	}
	if admin == nil {
		admin = &fakeAdmin{}
	}
	auth := services.NewAdminAuth(cfg.Auth, zap.NewNop())
	return New(cfg, zap.NewNop(), inq, admin, auth, fakeHealth{healthy: true}).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	}
	return rec, decoded
}

var adminHeader = map[string]string{"Authorization": "Bearer admin-secret"}

func TestPreflightAnsweredWithEmptyObject(t *testing.T) {
	admin := &fakeAdmin{}
	h := newFakeServer(t, "production", nil, admin)

	for _, target := range []string{"/inquiries", "/admin/inquiries", "/api/inquiries", "/api/admin/inquiries", "/admin/session", "/health"} {
		rec, body := do(t, h, http.MethodOptions, target, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, body, target)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	}
	assert.Zero(t, admin.calls.Load())
}

func TestSubmitReturnsCreated(t *testing.T) {
	var got services.SubmitPayload
	inq := &fakeInquiries{submitFn: func(_ context.Context, p services.SubmitPayload) (*domain.Inquiry, error) {
		got = p
		return &domain.Inquiry{ID: 1, Name: p.Name, Status: domain.StatusPending}, nil
	}}
	h := newFakeServer(t, "production", inq, nil)

	rec, body := do(t, h, http.MethodPost, "/api/inquiries",
		`{"name":"김철수","phone":"010-1234-5678","apartment":"자이","size":"34","moveInDate":"2025-03-01","password":"1234","agree_privacy":true,"options":["열화상"]}`, nil)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "문의가 성공적으로 접수되었습니다.", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1), data["id"])
	assert.Equal(t, []any{}, data["options"])
	assert.NotContains(t, data, "password")

	assert.Equal(t, "2025-03-01", got.MoveInDate)
	assert.Equal(t, []string{"열화상"}, got.Options)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestSubmitValidationError(t *testing.T) {
	inq := &fakeInquiries{submitFn: func(context.Context, services.SubmitPayload) (*domain.Inquiry, error) {
		return nil, services.ErrConsentRequired
	}}
	h := newFakeServer(t, "production", inq, nil)

	rec, body := do(t, h, http.MethodPost, "/inquiries", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, services.ErrConsentRequired.Message, body["message"])
}

func TestSubmitMalformedBody(t *testing.T) {
	called := false
	inq := &fakeInquiries{submitFn: func(context.Context, services.SubmitPayload) (*domain.Inquiry, error) {
		called = true
		return nil, nil
	}}
	h := newFakeServer(t, "production", inq, nil)

	rec, body := do(t, h, http.MethodPost, "/inquiries", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.False(t, called)
}

func TestServerErrorDetailOnlyInDevelopment(t *testing.T) {
	failing := &fakeInquiries{submitFn: func(context.Context, services.SubmitPayload) (*domain.Inquiry, error) {
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "문의 접수 중 오류가 발생했습니다.", errors.New("disk full"))
	}}

	rec, body := do(t, newFakeServer(t, "production", failing, nil), http.MethodPost, "/inquiries", `{}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, body, "error")

	rec, body = do(t, newFakeServer(t, "development", failing, nil), http.MethodPost, "/inquiries", `{}`, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "disk full", body["error"])
}

func TestUnknownErrorsBecomeInternal(t *testing.T) {
	inq := &fakeInquiries{lookupFn: func(context.Context, services.LookupQuery) (*services.LookupResult, error) {
		return nil, errors.New("boom")
	}}
	rec, body := do(t, newFakeServer(t, "production", inq, nil), http.MethodGet, "/inquiries", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
}

func TestLookupResponses(t *testing.T) {
	var got services.LookupQuery
	inq := &fakeInquiries{lookupFn: func(_ context.Context, q services.LookupQuery) (*services.LookupResult, error) {
		got = q
		if q.Phone == "" {
			return &services.LookupResult{Mode: services.LookupRecent, Recent: []services.RecentInquiry{{ID: 1, Name: "김**"}}}, nil
		}
		return &services.LookupResult{Mode: services.LookupPhone, Inquiries: []services.CustomerInquiry{}}, nil
	}}
	h := newFakeServer(t, "production", inq, nil)

	rec, body := do(t, h, http.MethodGet, "/inquiries?limit=3", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", got.Limit)
	assert.Len(t, body["data"], 1)
	assert.NotContains(t, body, "count")

	rec, body = do(t, h, http.MethodGet, "/api/inquiries?phone=010-1234-5678&password=1234", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "010-1234-5678", got.Phone)
	assert.Equal(t, "1234", got.Password)
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, float64(0), body["count"])
}

func TestInquiriesMethodNotAllowed(t *testing.T) {
	h := newFakeServer(t, "production", nil, nil)
	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch} {
		rec, body := do(t, h, method, "/inquiries", "", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
		assert.Equal(t, false, body["success"])
	}
}

func TestAdminRequiresAuthBeforeAnyServiceCall(t *testing.T) {
	admin := &fakeAdmin{}
	h := newFakeServer(t, "production", nil, admin)

	headers := []map[string]string{
		nil,
		{"Authorization": "Bearer wrong"},
		{"Authorization": "admin-secret"},
	}
	for _, hdr := range headers {
		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete, http.MethodPost, http.MethodPut} {
			rec, body := do(t, h, method, "/admin/inquiries?id=1", `{"id":1,"status":"answered"}`, hdr)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, method)
			assert.Equal(t, "인증이 필요합니다.", body["message"])
		}
	}
	assert.Zero(t, admin.calls.Load())
}

func TestRejectedRequestsAreLogged(t *testing.T) {
	cfg := testConfig("production")
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)
	inq := &fakeInquiries{submitFn: func(context.Context, services.SubmitPayload) (*domain.Inquiry, error) {
		return nil, services.ErrMissingField
	}}
	h := New(cfg, log, inq, &fakeAdmin{}, services.NewAdminAuth(cfg.Auth, zap.NewNop()), fakeHealth{healthy: true}).Handler()

	rec, _ := do(t, h, http.MethodGet, "/admin/inquiries", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	unauthorized := logs.FilterMessage("unauthorized request").All()
	require.Len(t, unauthorized, 1)
	assert.Equal(t, zapcore.InfoLevel, unauthorized[0].Level)
	assert.Equal(t, "/admin/inquiries", unauthorized[0].ContextMap()["path"])

	rec, _ = do(t, h, http.MethodPost, "/inquiries", `{}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rejected := logs.FilterMessage("request rejected").All()
	require.Len(t, rejected, 1)
	assert.Equal(t, zapcore.DebugLevel, rejected[0].Level)
	assert.Equal(t, "VALIDATION_ERROR", rejected[0].ContextMap()["code"])
}

func TestAdminRoutes(t *testing.T) {
	var updated services.UpdatePayload
	var deletedID string
	admin := &fakeAdmin{
		listFn: func(_ context.Context, q services.ListQuery) (*services.ListResult, error) {
			assert.Equal(t, "2", q.Page)
			assert.Equal(t, "answered", q.Status)
			return &services.ListResult{Inquiries: []domain.Inquiry{}, Pagination: services.NewPagination(2, 20, 23)}, nil
		},
		updateFn: func(_ context.Context, p services.UpdatePayload) (*services.UpdateResult, error) {
			updated = p
			return &services.UpdateResult{ID: uint(p.ID), Status: domain.Status(p.Status)}, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deletedID = id
			if id == "999" {
				return services.ErrInquiryNotFound
			}
			return nil
		},
	}
	h := newFakeServer(t, "production", nil, admin)

	rec, body := do(t, h, http.MethodGet, "/admin/inquiries?page=2&status=answered", "", adminHeader)
	assert.Equal(t, http.StatusOK, rec.Code)
	pagination := body["data"].(map[string]any)["pagination"].(map[string]any)
	assert.Equal(t, float64(2), pagination["totalPages"])
	assert.Equal(t, false, pagination["hasNext"])
	assert.Equal(t, true, pagination["hasPrev"])

	rec, body = do(t, h, http.MethodPatch, "/api/admin/inquiries", `{"id":"5","status":"answered","adminNote":"메모"}`, adminHeader)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "문의 상태가 업데이트되었습니다.", body["message"])
	assert.Equal(t, services.FlexibleID(5), updated.ID)
	require.NotNil(t, updated.AdminNote)
	assert.Equal(t, "메모", *updated.AdminNote)

	rec, body = do(t, h, http.MethodDelete, "/admin/inquiries?id=999", "", adminHeader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "문의를 찾을 수 없습니다.", body["message"])
	assert.Equal(t, "999", deletedID)

	rec, body = do(t, h, http.MethodDelete, "/admin/inquiries?id=3", "", adminHeader)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "문의가 삭제되었습니다.", body["message"])
	assert.NotContains(t, body, "data")

	rec, _ = do(t, h, http.MethodPost, "/admin/inquiries", `{}`, adminHeader)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, int32(4), admin.calls.Load())
}

func TestAdminSessionFlow(t *testing.T) {
	admin := &fakeAdmin{listFn: func(context.Context, services.ListQuery) (*services.ListResult, error) {
		return &services.ListResult{Inquiries: []domain.Inquiry{}}, nil
	}}
	h := newFakeServer(t, "production", nil, admin)

	rec, _ := do(t, h, http.MethodPost, "/admin/session", `{"token":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := do(t, h, http.MethodPost, "/admin/session", `{"token":"admin-secret"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "bearer", data["token_type"])
	token := data["access_token"].(string)

	rec, _ = do(t, h, http.MethodGet, "/admin/inquiries", "", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/admin/session", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminSessionDisabledWithoutSecretKey(t *testing.T) {
	cfg := testConfig("production")
	cfg.Auth.SecretKey = ""
	auth := services.NewAdminAuth(cfg.Auth, zap.NewNop())
	h := New(cfg, zap.NewNop(), &fakeInquiries{}, &fakeAdmin{}, auth, fakeHealth{healthy: true}).Handler()

	rec, _ := do(t, h, http.MethodPost, "/admin/session", `{"token":"admin-secret"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	cfg := testConfig("production")
	auth := services.NewAdminAuth(cfg.Auth, zap.NewNop())

	h := New(cfg, zap.NewNop(), &fakeInquiries{}, &fakeAdmin{}, auth, fakeHealth{healthy: true}).Handler()
	rec, body := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])

	h = New(cfg, zap.NewNop(), &fakeInquiries{}, &fakeAdmin{}, auth, fakeHealth{healthy: false}).Handler()
	rec, body = do(t, h, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unavailable", body["database"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := newFakeServer(t, "production", nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// End to end through the real services and an in-memory database
func TestInquiryLifecycle(t *testing.T) {
	cfg := testConfig("production")
	db, err := database.Open(config.DatabaseConfig{URL: "sqlite://:memory:"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	caps, err := database.Migrate(db, true, bcrypt.MinCost, zap.NewNop())
	require.NoError(t, err)

	opts := services.Options{Capabilities: caps, PINHashCost: bcrypt.MinCost}
	h := New(cfg, zap.NewNop(),
		services.NewInquiryService(db, nil, opts, zap.NewNop()),
		services.NewAdminService(db, nil, opts, zap.NewNop()),
		services.NewAdminAuth(cfg.Auth, zap.NewNop()),
		services.NewHealthService(db, "test"),
	).Handler()

	rec, body := do(t, h, http.MethodPost, "/inquiries",
		`{"name":"김철수","phone":"010-1234-5678","apartment":"래미안","size":"34","move_in_date":"2025-03-01","password":"1234","agree_privacy":true}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := body["data"].(map[string]any)["id"].(float64)

	rec, body = do(t, h, http.MethodGet, "/inquiries?phone=01012345678&password=1234", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = do(t, h, http.MethodGet, "/inquiries?phone=01012345678&password=4321", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPatch, "/admin/inquiries", `{"id":`+jsonNumber(id)+`,"status":"answered"}`, adminHeader)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/admin/inquiries?id="+jsonNumber(id), "", adminHeader)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/admin/inquiries?id="+jsonNumber(id), "", adminHeader)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonNumber(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
