package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
)

func newTestRouter(t *testing.T, enforceAppToken bool) http.Handler {
	t.Helper()
	cipher, err := crypto.NewCipher(
		"0123456789abcdef0123456789abcdef",
		"0123456789abcdef",
	)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}

	reg := prometheus.NewRegistry()
	metrics.NewCollector(reg)

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		Cipher:            cipher,
		FrontendHost:      "https://attendance.example.com",
		EnforceAppToken:   enforceAppToken,
		AttendanceService: newFakeAttendanceService(),
		UserService:       newFakeUserService(),
		MetricsRegistry:   reg,
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(t, false)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRouter_RoutesExist(t *testing.T) {
	router := newTestRouter(t, false)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/attendance/history", validHistoryBody},
		{http.MethodPost, "/api/attendance/location", validHistoryBody},
		{http.MethodPut, "/api/attendance/updateStatus", `{"userId":1,"status":"enable"}`},
		{http.MethodPut, "/api/attendance/updateLocation", `{"userId":1,"locationName":"l","latitude":"1","longitude":"2"}`},
		{http.MethodGet, "/api/attendance/cron/in", ""},
		{http.MethodGet, "/api/attendance/cron/out", ""},
		{http.MethodPost, "/api/user/getUserInfo", `{"type":"login","email":"a@example.com","appPassword":"secret"}`},
		{http.MethodPut, "/api/user/updatePassword", `{"email":"a@example.com","appPassword":"new-secret"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code == http.StatusNotFound || w.Code == http.StatusMethodNotAllowed {
				t.Errorf("route not wired: status = %d", w.Code)
			}
		})
	}
}

func TestRouter_ProtectedRoutesRequireAppToken(t *testing.T) {
	router := newTestRouter(t, true)

	protected := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/attendance/history"},
		{http.MethodPost, "/api/attendance/location"},
		{http.MethodPut, "/api/attendance/updateStatus"},
	}
	for _, tt := range protected {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}"))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401 without app token", w.Code)
			}
		})
	}

	// 保護対象外のルートはトークンなしでも401にならない
	req := httptest.NewRequest(http.MethodGet, "/api/attendance/cron/in", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("cron route should not require app token")
	}
}

func TestRouter_CronDispatch(t *testing.T) {
	service := newFakeAttendanceService()
	cipher, err := crypto.NewCipher(
		"0123456789abcdef0123456789abcdef",
		"0123456789abcdef",
	)
	if err != nil {
		t.Fatalf("NewCipher failed: %v", err)
	}
	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		Cipher:            cipher,
		FrontendHost:      "https://attendance.example.com",
		AttendanceService: service,
		UserService:       newFakeUserService(),
	})

	req := httptest.NewRequest(http.MethodGet, "/api/attendance/cron/out", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if service.dispatchCalls != 1 {
		t.Errorf("dispatch calls = %d, want 1", service.dispatchCalls)
	}
	if service.dispatchAction != "Clock Out" {
		t.Errorf("action = %s, want Clock Out", service.dispatchAction)
	}
}
