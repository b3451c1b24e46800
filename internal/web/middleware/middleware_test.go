package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JonMunkholm/inputsheet/internal/auth"
	"github.com/JonMunkholm/inputsheet/internal/core"
)

func TestTrustedRealIP(t *testing.T) {
	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"no proxies configured", nil, "10.0.0.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "10.0.0.1"},
		{"trusted proxy, real ip", []string{"10.0.0.0/8"}, "10.0.0.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "1.2.3.4"},
		{"trusted proxy, first forwarded hop", []string{"10.0.0.1"}, "10.0.0.1:5000", map[string]string{"X-Forwarded-For": "5.6.7.8, 10.0.0.2"}, "5.6.7.8"},
		{"untrusted peer", []string{"10.0.0.0/8"}, "192.168.1.1:5000", map[string]string{"X-Real-IP": "1.2.3.4"}, "192.168.1.1"},
		{"garbage header", []string{"10.0.0.0/8"}, "10.0.0.1:5000", map[string]string{"X-Real-IP": "nope"}, "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotClient, gotCtx string
			h := TrustedRealIP(tt.trusted)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotClient = ClientIP(r)
				gotCtx = core.GetIPAddressFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if gotClient != tt.want {
				t.Errorf("ClientIP() = %q, want %q", gotClient, tt.want)
			}
			if gotCtx != tt.want {
				t.Errorf("context ip = %q, want %q", gotCtx, tt.want)
			}
		})
	}
}

func TestSessionMiddleware(t *testing.T) {
	sessions := auth.NewSessionStore(time.Hour)
	admin, _ := sessions.Create(core.UserInfo{Username: "main_admin", Role: core.RoleMainAdmin})
	sub, _ := sessions.Create(core.UserInfo{Username: "sub", Role: core.RoleSubAdmin})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		handler    http.Handler
		token      string
		wantStatus int
		wantCode   string
	}{
		{"session required, none", RequireSession(ok), "", http.StatusUnauthorized, "AUTH001"},
		{"session required, stale token", RequireSession(ok), "stale", http.StatusUnauthorized, "AUTH001"},
		{"session required, present", RequireSession(ok), sub.Token, http.StatusNoContent, ""},
		{"role required, none", RequireRole(core.RoleMainAdmin)(ok), "", http.StatusUnauthorized, "AUTH001"},
		{"role required, wrong role", RequireRole(core.RoleMainAdmin)(ok), sub.Token, http.StatusForbidden, "AUTH002"},
		{"role required, right role", RequireRole(core.RoleMainAdmin)(ok), admin.Token, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: tt.token})
			}
			rec := httptest.NewRecorder()

			LoadSession(sessions)(tt.handler).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["code"] != tt.wantCode || body["error"] == "" {
				t.Errorf("body = %v, want code %s", body, tt.wantCode)
			}
		})
	}
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pot", nil))

	if rec.Code != http.StatusTeapot || rec.Body.String() != "short and stout" {
		t.Errorf("response = %d %q, want the handler's response unchanged", rec.Code, rec.Body.String())
	}
}
