package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/cache"
	"github.com/kjstillabower/weatherlog/internal/client"
	"github.com/kjstillabower/weatherlog/internal/db"
	"github.com/kjstillabower/weatherlog/internal/models"
	"github.com/kjstillabower/weatherlog/internal/repository"
	"github.com/kjstillabower/weatherlog/internal/service"
	"github.com/kjstillabower/weatherlog/internal/testutil"
)

const testAdminEmail = "admin@gmail.com"

// fakeClient serves canned weather. Cities missing from current yield ErrLocationNotFound.
type fakeClient struct {
	mu       sync.Mutex
	current  map[string]models.WeatherData
	forecast []models.ForecastPoint
	err      error
	calls    int
}

func (f *fakeClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.WeatherData{}, f.err
	}
	w, ok := f.current[strings.ToLower(city)]
	if !ok {
		return models.WeatherData{}, client.ErrLocationNotFound
	}
	return w, nil
}

func (f *fakeClient) GetCurrentWeatherByCoords(ctx context.Context, lat, lon float64) (models.WeatherData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return models.WeatherData{}, f.err
	}
	return models.WeatherData{City: "Coordsville", Temperature: 21.5, Description: "clear sky"}, nil
}

func (f *fakeClient) GetForecast(ctx context.Context, city string) ([]models.ForecastPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.forecast, nil
}

func (f *fakeClient) ValidateAPIKey(ctx context.Context) error { return nil }

type testEnv struct {
	t        *testing.T
	gdb      *gorm.DB
	client   *fakeClient
	accounts *service.AccountService
	history  *service.HistoryService
	sessions *auth.SessionManager
	router   *mux.Router
}

func newTestEnv(t *testing.T, limiter *rate.Limiter) *testEnv {
	t.Helper()
	gdb := testutil.OpenTestDB(t)
	users := repository.NewUserRepository(gdb)
	entries := repository.NewWeatherRepository(gdb)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	forecast := make([]models.ForecastPoint, 40)
	for i := range forecast {
		forecast[i] = models.ForecastPoint{Time: base.Add(time.Duration(i) * 3 * time.Hour), Temperature: float64(i), Description: "scattered clouds"}
	}
	fc := &fakeClient{
		current: map[string]models.WeatherData{
			"london": {City: "London", Country: "GB", Temperature: 14.2, Description: "light rain", Humidity: 81, WindSpeed: 4.6},
		},
		forecast: forecast,
	}

	accounts := service.NewAccountService(users, testAdminEmail)
	if _, err := accounts.EnsureAdmin(context.Background(), "admin", "123"); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}
	history := service.NewHistoryService(entries, nil)
	svc := Services{
		Accounts: accounts,
		Weather:  service.NewWeatherService(fc, cache.NewInMemoryCache(), time.Minute),
		History:  history,
		Admin:    service.NewAdminService(users, entries),
	}
	sessions := auth.NewSessionManager("0123456789abcdef-test", "weatherlog_session", time.Hour, false)
	views, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	health := &HealthConfig{
		StartTime: time.Now(),
		DBPing:    func(ctx context.Context) error { return db.Ping(ctx, gdb) },
	}
	h := NewHandler(svc, sessions, views, health, zap.NewNop(), 1, 100)
	router := NewRouter(h, zap.NewNop(), RouterConfig{RequestTimeout: 2 * time.Second, Limiter: limiter})

	return &testEnv{t: t, gdb: gdb, client: fc, accounts: accounts, history: history, sessions: sessions, router: router}
}

// do sends a request; form values are sent url-encoded when non-nil.
func (e *testEnv) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) register(username, email, password string) repository.User {
	e.t.Helper()
	u, err := e.accounts.Register(context.Background(), username, email, password)
	if err != nil {
		e.t.Fatalf("register %s: %v", username, err)
	}
	return u
}

// login posts credentials and returns the issued session cookie.
func (e *testEnv) login(email, password string) *http.Cookie {
	e.t.Helper()
	rec := e.do("POST", "/login", url.Values{"email": {email}, "password": {password}}, nil)
	if rec.Code != http.StatusFound {
		e.t.Fatalf("login %s: status = %d, want 302", email, rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == e.sessions.CookieName() && c.Value != "" {
			return c
		}
	}
	e.t.Fatalf("login %s: no session cookie", email)
	return nil
}

func (e *testEnv) entryCount() int64 {
	e.t.Helper()
	var n int64
	if err := e.gdb.Model(&repository.WeatherEntry{}).Count(&n).Error; err != nil {
		e.t.Fatalf("count entries: %v", err)
	}
	return n
}
