package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kjstillabower/weatherlog/internal/service"
)

// AdminDashboard handles GET /admin_dashboard.
func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	o, err := h.admin.Overview(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "admin_dashboard", view{Title: "Admin", Data: o})
}

func (h *Handler) AdminUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.admin.Users(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "admin_users", view{Title: "Users", Data: rows})
}

func (h *Handler) AdminWeather(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.ListAll(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "admin_weather", view{Title: "Weather", Data: entries})
}

func (h *Handler) AdminEditProfilePage(w http.ResponseWriter, r *http.Request) {
	h.profilePage(w, r, "/admin/edit_profile")
}

func (h *Handler) AdminEditProfile(w http.ResponseWriter, r *http.Request) {
	h.saveProfile(w, r, "/admin/edit_profile", "/admin_dashboard")
}

// AdminUpdateWeatherPage handles GET /admin/update_weather/{id}.
func (h *Handler) AdminUpdateWeatherPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/admin/weather", http.StatusFound)
		return
	}
	e, err := h.history.Get(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		http.Redirect(w, r, "/admin/weather", http.StatusFound)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "weather_entry_update", view{
		Title: "Edit entry",
		Data:  entryDataFrom(fmt.Sprintf("/admin/update_weather/%d", id), e),
	})
}

func (h *Handler) AdminUpdateWeather(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/admin/weather", http.StatusFound)
		return
	}
	h.saveEntry(w, r, fmt.Sprintf("/admin/update_weather/%d", id), "/admin/weather", func(u service.EntryUpdate) error {
		_, err := h.history.Update(r.Context(), id, u)
		return err
	})
}

func (h *Handler) AdminDeleteWeather(w http.ResponseWriter, r *http.Request) {
	if id, ok := pathID(r); ok {
		if err := h.history.Delete(r.Context(), id); err != nil && !errors.Is(err, service.ErrNotFound) {
			h.serverError(w, r, err)
			return
		}
	}
	http.Redirect(w, r, "/admin/weather", http.StatusFound)
}

// AdminDeleteUser handles POST /admin/delete_user/{id}. The user's history goes with it.
func (h *Handler) AdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Redirect(w, r, "/admin/users", http.StatusFound)
		return
	}
	err := h.accounts.DeleteUser(r.Context(), principal(r).UserID, id)
	switch {
	case errors.Is(err, service.ErrCannotDeleteSelf):
		h.views.Render(w, r, http.StatusBadRequest, "error", view{Title: "You cannot delete your own account"})
		return
	case err != nil && !errors.Is(err, service.ErrNotFound):
		h.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, "/admin/users", http.StatusFound)
}
