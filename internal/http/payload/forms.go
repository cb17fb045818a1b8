package payload

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jellydator/validation"

	citycheck "github.com/kjstillabower/weatherlog/internal/validation"
)

// TimestampLayout is the layout entry timestamps are shown and edited in.
const TimestampLayout = "2006-01-02 15:04:05"

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// MaxPasswordBytes is bcrypt's input limit.
const MaxPasswordBytes = 72

// passwordBytes caps the encoded length. Length counts runes.
var passwordBytes = validation.By(func(v interface{}) error {
	if s, _ := v.(string); len(s) > MaxPasswordBytes {
		return fmt.Errorf("must be at most %d bytes", MaxPasswordBytes)
	}
	return nil
})

// Parse reads r's url-encoded or multipart form.
func Parse(r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parsing form: %w", err)
	}
	return nil
}

type RegisterForm struct {
	Username string
	Email    string
	Password string
}

func NewRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    normalizeEmail(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f RegisterForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required, validation.Length(3, 50), validation.Match(usernameRegex)),
		validation.Field(&f.Email, validation.Required, validation.Length(3, 255), validation.Match(emailRegex)),
		validation.Field(&f.Password, validation.Required, passwordBytes, validation.Length(3, MaxPasswordBytes)),
	)
}

type LoginForm struct {
	Email    string
	Password string
}

func NewLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    normalizeEmail(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f LoginForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Email, validation.Required),
		validation.Field(&f.Password, validation.Required),
	)
}

// ProfileForm edits the signed-in account. An empty Password keeps the current one.
type ProfileForm struct {
	Username string
	Email    string
	Password string
}

func NewProfileForm(r *http.Request) ProfileForm {
	return ProfileForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Email:    normalizeEmail(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

func (f ProfileForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Username, validation.Required, validation.Length(3, 50), validation.Match(usernameRegex)),
		validation.Field(&f.Email, validation.Required, validation.Length(3, 255), validation.Match(emailRegex)),
		validation.Field(&f.Password, passwordBytes, validation.Length(3, MaxPasswordBytes)),
	)
}

// LookupForm is the city search on the dashboard. MinLen and MaxLen come from config.
type LookupForm struct {
	City   string
	MinLen int
	MaxLen int
}

func NewLookupForm(r *http.Request, minLen, maxLen int) LookupForm {
	return LookupForm{
		City:   strings.TrimSpace(r.PostFormValue("city")),
		MinLen: minLen,
		MaxLen: maxLen,
	}
}

func (f LookupForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.City, validation.Required, citycheck.City(f.MinLen, f.MaxLen)),
	)
}

// EntryForm edits a stored weather entry. Temperature and Timestamp are raw form text.
type EntryForm struct {
	City        string
	Temperature string
	Description string
	Timestamp   string
}

func NewEntryForm(r *http.Request) EntryForm {
	return EntryForm{
		City:        strings.TrimSpace(r.PostFormValue("city")),
		Temperature: strings.TrimSpace(r.PostFormValue("temperature")),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		Timestamp:   strings.TrimSpace(r.PostFormValue("timestamp")),
	}
}

var errNotNumber = validation.NewError("validation_not_number", "must be a number")

func (f EntryForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.City, validation.Required, citycheck.City(1, 100)),
		validation.Field(&f.Temperature, validation.Required, validation.By(func(v interface{}) error {
			if _, err := strconv.ParseFloat(v.(string), 64); err != nil {
				return errNotNumber
			}
			return nil
		})),
		validation.Field(&f.Description, validation.Length(0, 255)),
	)
}

// TemperatureValue returns the parsed temperature. Call after Validate.
func (f EntryForm) TemperatureValue() float64 {
	v, _ := strconv.ParseFloat(f.Temperature, 64)
	return v
}

// TimestampValue parses Timestamp as UTC. ok is false when the field is empty or
// unparseable, in which case the stored timestamp should be kept.
func (f EntryForm) TimestampValue() (time.Time, bool) {
	if f.Timestamp == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{TimestampLayout, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if ts, err := time.ParseInLocation(layout, f.Timestamp, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// Message flattens a validation error into one line for display.
func Message(err error) string {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return strings.TrimSuffix(errs.Error(), ".")
	}
	return err.Error()
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
