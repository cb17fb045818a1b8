package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/http/payload"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/service"
)

const (
	msgReservedEmail      = "This email is reserved."
	msgUserExists         = "User already exists"
	msgRegistered         = "Registered successfully! Please login."
	msgInvalidCredentials = "Invalid credentials"
)

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (h *Handler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "register", view{Title: "Register"})
}

// Register handles POST /register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := payload.Parse(r); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "register", view{Title: "Register", Error: "Invalid form"})
		return
	}
	form := payload.NewRegisterForm(r)
	if err := form.Validate(); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "register", view{Title: "Register", Error: payload.Message(err), Data: form})
		return
	}

	_, err := h.accounts.Register(r.Context(), form.Username, form.Email, form.Password)
	switch {
	case errors.Is(err, service.ErrReservedEmail):
		h.views.Render(w, r, http.StatusOK, "register", view{Title: "Register", Error: msgReservedEmail, Data: form})
		return
	case errors.Is(err, service.ErrUserExists):
		h.views.Render(w, r, http.StatusOK, "register", view{Title: "Register", Error: msgUserExists, Data: form})
		return
	case err != nil:
		h.serverError(w, r, err)
		return
	}
	h.views.Render(w, r, http.StatusOK, "login", view{Title: "Login", Success: msgRegistered})
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "login", view{Title: "Login"})
}

// Login handles POST /login. Admins land on the admin dashboard.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := payload.Parse(r); err != nil {
		h.views.Render(w, r, http.StatusBadRequest, "login", view{Title: "Login", Error: msgInvalidCredentials})
		return
	}
	form := payload.NewLoginForm(r)
	if err := form.Validate(); err != nil {
		h.views.Render(w, r, http.StatusUnauthorized, "login", view{Title: "Login", Error: msgInvalidCredentials})
		return
	}

	u, err := h.accounts.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		h.views.Render(w, r, http.StatusUnauthorized, "login", view{Title: "Login", Error: msgInvalidCredentials})
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	if err := h.sessions.Issue(w, auth.Principal{UserID: u.ID, IsAdmin: u.IsAdmin}); err != nil {
		h.serverError(w, r, err)
		return
	}
	if u.IsAdmin {
		http.Redirect(w, r, "/admin_dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/user_dashboard", http.StatusFound)
}

// Logout handles GET and POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if p, ok := auth.FromContext(r.Context()); ok {
		observability.AuthEventsTotal.WithLabelValues("logout", "success").Inc()
		observability.LoggerFrom(r.Context()).Info("logout", zap.Uint("user_id", p.UserID))
	}
	h.sessions.Clear(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}
