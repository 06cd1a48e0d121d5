package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type verifierFunc func(token string) (*model.Actor, error)

func (f verifierFunc) Verify(token string) (*model.Actor, error) { return f(token) }

var tokens = map[string]model.Actor{
	"doctor":    {DNI: "1", Role: model.RoleDoctor},
	"admin":     {DNI: "2", Role: model.RoleAdmin},
	"recruiter": {DNI: "3", Role: model.RolePolice, Roles: []string{model.RoleRecruiter}},
}

func newAuth() *AuthMiddleware {
	return NewAuthMiddleware(verifierFunc(func(token string) (*model.Actor, error) {
		actor, ok := tokens[token]
		if !ok {
			return nil, errors.New("unknown token")
		}
		return &actor, nil
	}))
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	m := newAuth()
	r := gin.New()
	r.GET("/me", m.Authenticate(), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.String(http.StatusOK, actor.DNI)
	})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic doctor", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer doctor", http.StatusOK},
		{"case insensitive scheme", "bearer doctor", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, "1", w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	m := newAuth()
	r := gin.New()
	r.GET("/clinical", m.Authenticate(), m.RequireRole(string(model.RoleDoctor)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/review", m.Authenticate(), m.RequireRole(model.RoleRecruiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	cases := map[string]map[string]int{
		"/clinical": {"doctor": http.StatusOK, "admin": http.StatusOK, "recruiter": http.StatusForbidden},
		"/review":   {"doctor": http.StatusForbidden, "admin": http.StatusOK, "recruiter": http.StatusOK},
	}
	for path, byToken := range cases {
		for token, status := range byToken {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			assert.Equal(t, status, serve(r, req).Code, "%s as %s", path, token)
		}
	}
}

type accountsFunc func(dni string) (*model.User, error)

func (f accountsFunc) Account(_ context.Context, dni string) (*model.User, error) { return f(dni) }

func TestAuthenticate_StoredAccountsOverrideClaims(t *testing.T) {
	m := NewAuthMiddleware(verifierFunc(func(token string) (*model.Actor, error) {
		return &model.Actor{DNI: token, Role: model.RoleDoctor, Roles: []string{model.RoleRecruiter}}, nil
	})).WithAccounts(accountsFunc(func(dni string) (*model.User, error) {
		switch dni {
		case "revoked":
			return &model.User{DNI: dni, Role: model.RoleDoctor, Roles: []string{}, Enabled: true}, nil
		case "disabled":
			return &model.User{DNI: dni, Role: model.RoleDoctor, Roles: []string{model.RoleRecruiter}}, nil
		case "broken":
			return nil, errors.New("store down")
		}
		return nil, nil
	}))

	r := gin.New()
	r.GET("/review", m.Authenticate(), m.RequireRole(model.RoleRecruiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	tests := map[string]int{
		"unregistered": http.StatusOK,
		"revoked":      http.StatusForbidden,
		"disabled":     http.StatusForbidden,
		"broken":       http.StatusServiceUnavailable,
	}
	for token, status := range tests {
		req := httptest.NewRequest(http.MethodGet, "/review", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, status, serve(r, req).Code, token)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w := serve(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "abc-123", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("x", 65))
	w = serve(r, req)
	assert.Len(t, w.Header().Get(HeaderXRequestID), 36)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS(DefaultCORSConfig("https://panel.sigma.rp")))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://panel.sigma.rp")
	w := serve(r, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://panel.sigma.rp", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
	assert.Equal(t, "Origin", w.Header().Get("Vary"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(logger.Nop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal server error")
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(r, httptest.NewRequest(http.MethodGet, "/", nil)).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(SizeLimit(8))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = serve(r, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123")))
	assert.Equal(t, http.StatusOK, w.Code)
}
