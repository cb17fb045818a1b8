package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weatherlog/internal/observability"
)

// RouterConfig carries the per-route limits applied by NewRouter.
type RouterConfig struct {
	RequestTimeout time.Duration
	// Limiter guards /login and /api. Nil disables rate limiting.
	Limiter *rate.Limiter
}

// NewRouter wires every route with its gate.
func NewRouter(h *Handler, logger *zap.Logger, cfg RouterConfig) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)
	router.Use(SessionMiddleware(h.sessions))

	router.HandleFunc("/health", h.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.PathPrefix("/static/").Handler(StaticHandler())

	router.HandleFunc("/", h.Index).Methods("GET")
	router.HandleFunc("/register", h.RegisterPage).Methods("GET")
	router.HandleFunc("/register", h.Register).Methods("POST")
	limited := RateLimitMiddleware(cfg.Limiter)
	router.Handle("/login", http.HandlerFunc(h.LoginPage)).Methods("GET")
	router.Handle("/login", limited(http.HandlerFunc(h.Login))).Methods("POST")
	router.HandleFunc("/logout", h.Logout).Methods("GET", "POST")

	timeout := TimeoutMiddleware(cfg.RequestTimeout)
	user := func(f http.HandlerFunc) http.Handler { return RequireUser(f) }
	router.Handle("/user_dashboard", user(h.UserDashboard)).Methods("GET")
	router.Handle("/get_weather", RequireUser(timeout(http.HandlerFunc(h.GetWeather)))).Methods("POST")
	router.Handle("/history", user(h.History)).Methods("GET")
	router.Handle("/edit_profile", user(h.EditProfilePage)).Methods("GET")
	router.Handle("/edit_profile", user(h.EditProfile)).Methods("POST")
	router.Handle("/update_weather/{id:[0-9]+}", user(h.UpdateWeatherPage)).Methods("GET")
	router.Handle("/update_weather/{id:[0-9]+}", user(h.UpdateWeather)).Methods("POST")
	router.Handle("/delete_weather/{id:[0-9]+}", user(h.DeleteWeather)).Methods("GET", "POST")

	page := func(f http.HandlerFunc) http.Handler { return RequireAdminPage(f) }
	router.Handle("/admin_dashboard", page(h.AdminDashboard)).Methods("GET")
	router.Handle("/admin/users", page(h.AdminUsers)).Methods("GET")
	router.Handle("/admin/weather", page(h.AdminWeather)).Methods("GET")
	router.Handle("/admin/edit_profile", page(h.AdminEditProfilePage)).Methods("GET")
	router.Handle("/admin/edit_profile", page(h.AdminEditProfile)).Methods("POST")

	action := func(f http.HandlerFunc) http.Handler { return RequireAdminAction(f) }
	router.Handle("/admin/update_weather/{id:[0-9]+}", action(h.AdminUpdateWeatherPage)).Methods("GET")
	router.Handle("/admin/update_weather/{id:[0-9]+}", action(h.AdminUpdateWeather)).Methods("POST")
	router.Handle("/admin/delete_weather/{id:[0-9]+}", action(h.AdminDeleteWeather)).Methods("GET", "POST")
	router.Handle("/admin/delete_user/{id:[0-9]+}", action(h.AdminDeleteUser)).Methods("POST")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(cfg.Limiter))
	api.Use(TimeoutMiddleware(cfg.RequestTimeout))
	api.HandleFunc("/weather", h.GetWeatherAPI).Methods("GET")

	return router
}
