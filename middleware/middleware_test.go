package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rallyrent/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAdminAuth(t *testing.T) {
	secret := []byte("test-secret")
	r := gin.New()
	r.GET("/admin", JWTAuthAdminMiddleware(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(utils.ContextAdminKey))
	})

	good, err := utils.GenerateAdminToken(secret, "ops@example.com", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	forged, _ := utils.GenerateAdminToken([]byte("other"), "ops@example.com", time.Hour)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + good, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
			if tc.want == http.StatusOK && w.Body.String() != "ops@example.com" {
				t.Fatalf("subject = %q", w.Body.String())
			}
		})
	}
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(3))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	for i := 0; i < 3; i++ {
		if code := hit("203.0.113.5"); code != http.StatusOK {
			t.Fatalf("request %d = %d", i, code)
		}
	}
	if code := hit("203.0.113.5"); code != http.StatusTooManyRequests {
		t.Fatalf("burst exceeded = %d, want 429", code)
	}
	if code := hit("203.0.113.6"); code != http.StatusOK {
		t.Fatalf("other client = %d", code)
	}
}

func TestRequestLoggerSetsID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) {
		if _, ok := c.Get(utils.ContextLoggerKey); !ok {
			t.Error("logger not in context")
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id = %q", w.Header().Get("X-Request-ID"))
	}
}

func TestGetClientIP(t *testing.T) {
	cases := map[string]func(*http.Request){
		"198.51.100.1": func(r *http.Request) { r.Header.Set("X-Forwarded-For", " 198.51.100.1 , 10.0.0.2") },
		"198.51.100.2": func(r *http.Request) { r.Header.Set("X-Real-IP", "198.51.100.2") },
		"192.0.2.1":    func(r *http.Request) {},
	}
	for want, prep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		prep(req)
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = req
		if got := getClientIP(c); got != want {
			t.Fatalf("getClientIP = %q, want %q", got, want)
		}
	}
}
