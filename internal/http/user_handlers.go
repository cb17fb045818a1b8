package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/client"
	"github.com/kjstillabower/weatherlog/internal/http/payload"
	"github.com/kjstillabower/weatherlog/internal/models"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
	"github.com/kjstillabower/weatherlog/internal/service"
)

const msgLookupFailed = "City not found or API error"

type dashboardData struct {
	Account repository.User
	History []repository.WeatherEntry
	Report  *models.Report
	City    string
}

type profileData struct {
	Action   string
	Username string
	Email    string
}

type entryData struct {
	Action      string
	City        string
	Temperature string
	Description string
	Timestamp   string
}

func entryDataFrom(action string, e repository.WeatherEntry) entryData {
	return entryData{
		Action:      action,
		City:        e.City,
		Temperature: strconv.FormatFloat(e.Temperature, 'f', -1, 64),
		Description: e.Description,
		Timestamp:   e.Timestamp.UTC().Format(payload.TimestampLayout),
	}
}

// UserDashboard handles GET /user_dashboard.
func (h *Handler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderDashboard(w, r, http.StatusOK, dashboardData{}, "")
}

// renderDashboard loads the account and its history around data. A session whose
// account no longer exists is cleared and sent to /login.
func (h *Handler) renderDashboard(w http.ResponseWriter, r *http.Request, status int, data dashboardData, errMsg string) {
	p := principal(r)
	u, err := h.accounts.Profile(r.Context(), p.UserID)
	if errors.Is(err, service.ErrNotFound) {
		h.sessions.Clear(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	history, err := h.history.ListForUser(r.Context(), p.UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data.Account = u
	data.History = history
	h.views.Render(w, r, status, "user_dashboard", view{Title: "Dashboard", Error: errMsg, Data: data})
}

// GetWeather handles POST /get_weather: check the account, look up, record, and render with forecast.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	if err := payload.Parse(r); err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, dashboardData{}, "Invalid form")
		return
	}
	form := payload.NewLookupForm(r, h.cityMinLength, h.cityMaxLength)
	if err := form.Validate(); err != nil {
		h.renderDashboard(w, r, http.StatusBadRequest, dashboardData{City: form.City}, payload.Message(err))
		return
	}

	if _, err := h.accounts.Profile(r.Context(), principal(r).UserID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			h.sessions.Clear(w)
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		h.serverError(w, r, err)
		return
	}

	report, err := h.weather.GetReport(r.Context(), form.City)
	if err != nil {
		observability.LoggerFrom(r.Context()).Warn("weather lookup failed",
			zap.String("city", form.City),
			zap.String("category", string(client.CategorizeError(err))),
			zap.Error(err))
		h.renderDashboard(w, r, http.StatusOK, dashboardData{City: form.City}, msgLookupFailed)
		return
	}

	// History keeps the city as typed, not the provider's canonical name.
	observed := report.Current
	observed.City = form.City
	if _, err := h.history.Record(r.Context(), principal(r).UserID, observed); err != nil {
		h.serverError(w, r, err)
		return
	}
	h.renderDashboard(w, r, http.StatusOK, dashboardData{City: form.City, Report: &report}, "")
}

// History handles GET /history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.ListForUser(r.Context(), principal(r).UserID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "history", view{Title: "History", Data: entries})
}

func (h *Handler) EditProfilePage(w http.ResponseWriter, r *http.Request) {
	h.profilePage(w, r, "/edit_profile")
}

// EditProfile handles POST /edit_profile.
func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, "/edit_profile", "/user_dashboard")
}

func (h *Handler) profilePage(w http.ResponseWriter, r *http.Request, action string) {
	u, err := h.accounts.Profile(r.Context(), principal(r).UserID)
	if errors.Is(err, service.ErrNotFound) {
		h.sessions.Clear(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "edit_profile", view{
		Title: "Edit profile",
		Data:  profileData{Action: action, Username: u.Username, Email: u.Email},
	})
}

func (h *Handler) saveProfile(w http.ResponseWriter, r *http.Request, action, next string) {
	if err := payload.Parse(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := payload.NewProfileForm(r)
	data := profileData{Action: action, Username: form.Username, Email: form.Email}
	if err := form.Validate(); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "edit_profile", view{Title: "Edit profile", Error: payload.Message(err), Data: data})
		return
	}

	_, err := h.accounts.UpdateProfile(r.Context(), principal(r).UserID, form.Username, form.Email, form.Password)
	switch {
	case errors.Is(err, service.ErrUserExists):
		h.views.Render(w, r, http.StatusOK, "edit_profile", view{Title: "Edit profile", Error: msgUserExists, Data: data})
		return
	case errors.Is(err, service.ErrReservedEmail):
		h.views.Render(w, r, http.StatusOK, "edit_profile", view{Title: "Edit profile", Error: msgReservedEmail, Data: data})
		return
	case errors.Is(err, service.ErrNotFound):
		h.sessions.Clear(w)
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// UpdateWeatherPage handles GET /update_weather/{id}. Missing or foreign entries go back to the dashboard.
func (h *Handler) UpdateWeatherPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/user_dashboard", http.StatusFound)
		return
	}
	e, err := h.history.GetOwned(r.Context(), principal(r).UserID, id)
	if errors.Is(err, service.ErrNotFound) {
		http.Redirect(w, r, "/user_dashboard", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "weather_entry_update", view{
		Title: "Edit entry",
		Data:  entryDataFrom(fmt.Sprintf("/update_weather/%d", id), e),
	})
}

// UpdateWeather handles POST /update_weather/{id}.
func (h *Handler) UpdateWeather(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/user_dashboard", http.StatusFound)
		return
	}
	userID := principal(r).UserID
	h.saveEntry(w, r, fmt.Sprintf("/update_weather/%d", id), "/user_dashboard", func(u service.EntryUpdate) error {
		_, err := h.history.UpdateOwned(r.Context(), userID, id, u)
		return err
	})
}

// saveEntry validates the entry form and applies it with update. ErrNotFound redirects to next.
func (h *Handler) saveEntry(w http.ResponseWriter, r *http.Request, action, next string, update func(service.EntryUpdate) error) {
	if err := payload.Parse(r); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	form := payload.NewEntryForm(r)
	if err := form.Validate(); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "weather_entry_update", view{
			Title: "Edit entry",
			Error: payload.Message(err),
			Data: entryData{
				Action:      action,
				City:        form.City,
				Temperature: form.Temperature,
				Description: form.Description,
				Timestamp:   form.Timestamp,
			},
		})
		return
	}

	u := service.EntryUpdate{
		City:        form.City,
		Temperature: form.TemperatureValue(),
		Description: form.Description,
	}
	if ts, ok := form.TimestampValue(); ok {
		u.Timestamp = &ts
	}
	err := update(u)
	if err != nil && !errors.Is(err, service.ErrNotFound) {
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// DeleteWeather handles GET and POST /delete_weather/{id}.
func (h *Handler) DeleteWeather(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r); ok {
		err := h.history.DeleteOwned(r.Context(), principal(r).UserID, id)
		if err != nil && !errors.Is(err, service.ErrNotFound) {
			h.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/user_dashboard", http.StatusFound)
}
