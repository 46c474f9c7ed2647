package router_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tillkeeper/internal/config"
	"tillkeeper/internal/middleware"
	"tillkeeper/internal/model"
	"tillkeeper/internal/repository/memory"
	"tillkeeper/internal/router"
	"tillkeeper/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

type testEnv struct {
	engine *gin.Engine
	store  *memory.Store
	now    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &testEnv{store: memory.New(), now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	svc := service.NewCashRegisterService(env.store, env.store.Users(), env.store.Branches(), service.Options{
		Now: func() time.Time { return env.now },
	})
	cfg := &config.Config{
		Env:         "test",
		JWTSecret:   testSecret,
		RateLimit:   "1000-M",
		CORSOrigins: "*",
	}
	r, err := router.New(cfg, router.Deps{Registers: svc})
	require.NoError(t, err)
	env.engine = r
	return env
}

func signToken(t *testing.T, role string, dur time.Duration) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: "tester",
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(dur)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth_MemoryStore(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "memory", body["db"])
	assert.Equal(t, "disabled", body["redis"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRegisters_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=1", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=1", nil, signToken(t, middleware.RoleCashier, -time.Minute))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisters_ManagerOnlyRoutes(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Put(model.CashRegister{DeskID: 1, Status: model.RegisterActive, OpenedAt: env.now})

	w := env.do(t, http.MethodPut, "/v1/cash-registers/"+id.String()+"/expire", nil, signToken(t, middleware.RoleCashier, time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cash-registers", nil, signToken(t, middleware.RoleCashier, time.Hour))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPut, "/v1/cash-registers/"+id.String()+"/expire", nil, signToken(t, middleware.RoleSupervisor, time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Expired", decode(t, w)["status"])
}

func TestRegisters_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	tok := signToken(t, middleware.RoleCashier, time.Hour)

	w := env.do(t, http.MethodPost, "/v1/cash-registers/open", map[string]any{"desk_id": 1, "opening_cash": "100"}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode(t, w)
	assert.Equal(t, "Active", opened["status"])
	assert.Equal(t, "tester", opened["opened_by"])
	id := opened["id"].(string)

	w = env.do(t, http.MethodPost, "/v1/cash-registers/open", map[string]any{"desk_id": 1}, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "active register already exists")

	w = env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=1", nil, tok)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode(t, w)
	assert.Equal(t, id, active["data"].(map[string]any)["id"])
	assert.Nil(t, active["meta"].(map[string]any)["expired"])

	w = env.do(t, http.MethodPost, "/v1/cash-registers/"+id+"/transactions", map[string]any{"type": "Expense", "amount": "20"}, tok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/v1/cash-registers/"+id+"/close", map[string]any{"counted_cash": "75"}, tok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	closed := decode(t, w)
	assert.Equal(t, "Closed", closed["status"])
	assert.Equal(t, "80", closed["expected_cash"])
	assert.Equal(t, "-5", closed["difference"])
	assert.Equal(t, "5", closed["short_cash"])

	w = env.do(t, http.MethodPut, "/v1/cash-registers/"+id+"/close", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["detail"], "already closed")

	w = env.do(t, http.MethodGet, "/v1/cash-registers/"+id, nil, tok)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cash-registers?desk_id=1&status=Closed", nil, signToken(t, middleware.RoleAdmin, time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestRegisters_ActiveExpiresStale(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Put(model.CashRegister{DeskID: 2, Status: model.RegisterActive, OpenedAt: env.now.Add(-21 * time.Hour)})

	w := env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=2", nil, signToken(t, middleware.RoleCashier, time.Hour))

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Nil(t, body["data"])
	expired := body["meta"].(map[string]any)["expired"].(map[string]any)
	assert.Equal(t, id.String(), expired["id"])
	assert.Equal(t, "Expired", expired["status"])
}

func TestRegisters_BadInput(t *testing.T) {
	env := newTestEnv(t)
	tok := signToken(t, middleware.RoleCashier, time.Hour)

	w := env.do(t, http.MethodGet, "/v1/cash-registers/active", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=abc", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/cash-registers/open", map[string]any{"opening_cash": "10"}, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/cash-registers/open", map[string]any{"desk_id": 1, "user": "not-a-uuid"}, tok)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "uuid", decode(t, w)["fields"].(map[string]any)["User"])

	w = env.do(t, http.MethodPut, "/v1/cash-registers/not-a-uuid/close", nil, tok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/v1/cash-registers/"+uuid.NewString()+"/close", nil, tok)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisters_StoreFailureIsOpaque500(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailWith = errors.New("pq: connection reset by peer")

	w := env.do(t, http.MethodGet, "/v1/cash-registers/active?desk_id=1", nil, signToken(t, middleware.RoleCashier, time.Hour))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["detail"])
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestRegisters_ExpireUnknownRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPut, "/v1/cash-registers/"+uuid.NewString()+"/expire", nil, signToken(t, middleware.RoleAdmin, time.Hour))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
