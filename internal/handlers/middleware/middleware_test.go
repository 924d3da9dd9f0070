package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ammerola/finops-console/internal/handlers/middleware"
	"github.com/ammerola/finops-console/internal/pkg/logger"
	"github.com/ammerola/finops-console/test/helpers"
)

func ok(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := middleware.RequestID("")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestID(r.Context())
		ok(w, r)
	}))

	tests := []struct {
		name     string
		incoming string
		validate func(*testing.T, string)
	}{
		{
			name: "generates_new_request_id",
			validate: func(t *testing.T, id string) {
				assert.Len(t, id, 36)
			},
		},
		{
			name:     "uses_existing_request_id",
			incoming: "existing-id-123",
			validate: func(t *testing.T, id string) {
				assert.Equal(t, "existing-id-123", id)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/views", nil)
			if tt.incoming != "" {
				req.Header.Set(middleware.DefaultRequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			header := w.Header().Get(middleware.DefaultRequestIDHeader)
			tt.validate(t, header)
			assert.Equal(t, header, seen)
		})
	}
}

func TestRequestID_CustomHeader(t *testing.T) {
	handler := middleware.RequestID("X-Correlation-ID")(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "corr-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", w.Header().Get("X-Correlation-ID"))
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success_logs_info", status: http.StatusOK, wantLevel: "INFO"},
		{name: "client_error_logs_warn", status: http.StatusNotFound, wantLevel: "WARN"},
		{name: "server_error_logs_error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			l := logger.New(logger.Options{Level: "debug", Format: "json", Output: &buf})

			handler := middleware.Chain(
				http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte("body"))
				}),
				middleware.RequestID(""),
				middleware.Logger(l),
			)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/views/queries?page=2", nil)
			req.RemoteAddr = "10.0.0.7:5555"
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, "request_completed", entry["msg"])
			assert.Equal(t, tt.wantLevel, entry["severity"])
			assert.Equal(t, "/api/v1/views/queries", entry["path"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "10.0.0.7", entry["client_ip"])
			assert.Equal(t, "page=2", entry["query"])
			assert.NotEmpty(t, entry["request_id"])

			resp := entry["response"].(map[string]any)
			assert.EqualValues(t, tt.status, resp["status"])
			assert.EqualValues(t, 4, resp["bytes"])
		})
	}
}

func TestRecovery(t *testing.T) {
	tests := []struct {
		name           string
		handler        http.HandlerFunc
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "recovers_from_panic",
			handler: func(http.ResponseWriter, *http.Request) {
				panic("nil map in view schema")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"request_id":"test-123"`,
		},
		{
			name:           "passes_through_normal_response",
			handler:        ok,
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := middleware.Recovery(helpers.TestLogger())(tt.handler)

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req = req.WithContext(logger.WithValue(req.Context(), logger.ContextKeyRequestID, "test-123"))
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestRateLimiter(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := middleware.NewRateLimiter(2, time.Second)
	defer rl.Stop()

	wrapped := rl.Middleware(http.HandlerFunc(ok))

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("127.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, send("127.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, send("127.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, send("192.168.1.1:5678"), "other clients have their own bucket")
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	rl := middleware.NewRateLimiter(10, time.Minute)
	rl.Stop()
	rl.Stop()
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name           string
		allowedOrigins []string
		requestOrigin  string
		requestMethod  string
		expectedStatus int
		checkHeaders   func(*testing.T, http.Header)
	}{
		{
			name:           "allows_wildcard_origin",
			allowedOrigins: []string{"*"},
			requestOrigin:  "https://finops.example.com",
			requestMethod:  http.MethodGet,
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, h http.Header) {
				assert.Equal(t, "https://finops.example.com", h.Get("Access-Control-Allow-Origin"))
				assert.Contains(t, h.Get("Access-Control-Expose-Headers"), "Content-Disposition")
			},
		},
		{
			name:           "allows_specific_origin",
			allowedOrigins: []string{"https://app.example.com", "https://admin.example.com"},
			requestOrigin:  "https://admin.example.com",
			requestMethod:  http.MethodGet,
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, h http.Header) {
				assert.Equal(t, "https://admin.example.com", h.Get("Access-Control-Allow-Origin"))
			},
		},
		{
			name:           "handles_preflight_request",
			allowedOrigins: []string{"*"},
			requestOrigin:  "https://example.com",
			requestMethod:  http.MethodOptions,
			expectedStatus: http.StatusNoContent,
			checkHeaders: func(t *testing.T, h http.Header) {
				assert.Contains(t, h.Get("Access-Control-Allow-Methods"), "PUT")
				assert.NotEmpty(t, h.Get("Access-Control-Allow-Headers"))
			},
		},
		{
			name:           "blocks_unallowed_origin",
			allowedOrigins: []string{"https://allowed.com"},
			requestOrigin:  "https://notallowed.com",
			requestMethod:  http.MethodGet,
			expectedStatus: http.StatusOK,
			checkHeaders: func(t *testing.T, h http.Header) {
				assert.Empty(t, h.Get("Access-Control-Allow-Origin"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := middleware.CORS(tt.allowedOrigins)(http.HandlerFunc(ok))

			req := httptest.NewRequest(tt.requestMethod, "/api/v1/views", nil)
			req.Header.Set("Origin", tt.requestOrigin)
			w := httptest.NewRecorder()

			wrapped.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			tt.checkHeaders(t, w.Header())
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	middleware.SecureHeaders(http.HandlerFunc(ok)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain HTTP gets no HSTS")
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name           string
		timeout        time.Duration
		handlerDelay   time.Duration
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "completes_within_timeout",
			timeout:        time.Second,
			handlerDelay:   10 * time.Millisecond,
			expectedStatus: http.StatusOK,
			expectedBody:   "ok",
		},
		{
			name:           "times_out",
			timeout:        50 * time.Millisecond,
			handlerDelay:   time.Second,
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   "Request timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(tt.handlerDelay):
					ok(w, r)
				case <-r.Context().Done():
				}
			})

			w := httptest.NewRecorder()
			middleware.Timeout(tt.timeout)(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "forwarded_for_first_hop", headers: map[string]string{"X-Forwarded-For": "203.0.113.9, 10.0.0.1"}, remote: "10.0.0.1:80", want: "203.0.113.9"},
		{name: "real_ip", headers: map[string]string{"X-Real-IP": "198.51.100.4"}, remote: "10.0.0.1:80", want: "198.51.100.4"},
		{name: "remote_addr", remote: "192.0.2.1:4321", want: "192.0.2.1"},
		{name: "remote_addr_without_port", remote: "192.0.2.1", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, middleware.ClientIP(req))
		})
	}
}
