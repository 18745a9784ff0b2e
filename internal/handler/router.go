package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Strayneko/Infotech-Auto-Attendance/internal/crypto"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/metrics"
	"github.com/Strayneko/Infotech-Auto-Attendance/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Cipher            *crypto.Cipher
	FrontendHost      string
	EnforceAppToken   bool

	// サービス
	AttendanceService AttendanceServiceInterface
	UserService       UserServiceInterface

	// メトリクス
	MetricsRegistry *prometheus.Registry
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → RateLimit → (保護ルートのみ AppToken)
//
// ヘルスチェックとメトリクスはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())

	attendanceHandler := NewAttendanceHandler(deps.AttendanceService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 運用エンドポイント（レート制限の外） ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.MetricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.MetricsRegistry))
	}

	// --- APIルート ---

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}

		appToken := middleware.NewAppTokenMiddleware(deps.Cipher, deps.FrontendHost, deps.EnforceAppToken)

		r.Route("/api/attendance", func(r chi.Router) {
			// ワンタイムトークン保護ルート
			r.With(appToken).Post("/history", attendanceHandler.GetAttendanceHistory)
			r.With(appToken).Post("/location", attendanceHandler.GetLocationHistory)
			r.With(appToken).Put("/updateStatus", attendanceHandler.UpdateStatus)

			r.Put("/updateLocation", attendanceHandler.UpdateLocation)
			r.Get("/cron/{type}", attendanceHandler.HandleCron)
		})

		r.Route("/api/user", func(r chi.Router) {
			r.Post("/getUserInfo", userHandler.GetUserInfo)
			r.Post("/storeUserInfo", userHandler.StoreUserInfo)
			r.Put("/updatePassword", userHandler.UpdatePassword)
		})
	})

	return r
}
