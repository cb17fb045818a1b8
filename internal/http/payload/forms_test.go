package payload

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formRequest(t *testing.T, values url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	require.NoError(t, Parse(r))
	return r
}

func TestRegisterForm(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		wantErr string
	}{
		{"valid", url.Values{"username": {"alice"}, "email": {" Alice@Example.COM "}, "password": {"123"}}, ""},
		{"missing username", url.Values{"email": {"a@b.co"}, "password": {"123"}}, "Username"},
		{"bad email", url.Values{"username": {"alice"}, "email": {"not-an-email"}, "password": {"123"}}, "Email"},
		{"short password", url.Values{"username": {"alice"}, "email": {"a@b.co"}, "password": {"12"}}, "Password"},
		{"bad username chars", url.Values{"username": {"al ice"}, "email": {"a@b.co"}, "password": {"123"}}, "Username"},
		{"password over 72 bytes", url.Values{"username": {"alice"}, "email": {"a@b.co"}, "password": {strings.Repeat("x", 73)}}, "72 bytes"},
		{"multi-byte password over 72 bytes", url.Values{"username": {"alice"}, "email": {"a@b.co"}, "password": {strings.Repeat("日", 25)}}, "72 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRegisterForm(formRequest(t, tt.values))
			err := f.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "alice@example.com", f.Email)
				return
			}
			require.Error(t, err)
			assert.Contains(t, Message(err), tt.wantErr)
		})
	}
}

func TestLoginForm(t *testing.T) {
	f := NewLoginForm(formRequest(t, url.Values{"email": {"ADMIN@gmail.com"}, "password": {"123"}}))
	require.NoError(t, f.Validate())
	assert.Equal(t, "admin@gmail.com", f.Email)

	f = NewLoginForm(formRequest(t, url.Values{"email": {"x@y.z"}}))
	assert.Error(t, f.Validate())
}

func TestProfileForm_PasswordOptional(t *testing.T) {
	f := NewProfileForm(formRequest(t, url.Values{"username": {"bob"}, "email": {"bob@example.com"}}))
	require.NoError(t, f.Validate())
	assert.Empty(t, f.Password)

	f = NewProfileForm(formRequest(t, url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {"1"}}))
	assert.Error(t, f.Validate())

	f = NewProfileForm(formRequest(t, url.Values{"username": {"bob"}, "email": {"bob@example.com"}, "password": {strings.Repeat("é", 37)}}))
	assert.Contains(t, Message(f.Validate()), "72 bytes")
}

func TestLookupForm(t *testing.T) {
	f := NewLookupForm(formRequest(t, url.Values{"city": {"  São Paulo "}}), 1, 100)
	require.NoError(t, f.Validate())
	assert.Equal(t, "São Paulo", f.City)

	for _, city := range []string{"", "<b>", strings.Repeat("x", 101)} {
		f := NewLookupForm(formRequest(t, url.Values{"city": {city}}), 1, 100)
		assert.Error(t, f.Validate(), "city %q", city)
	}
}

func TestEntryForm(t *testing.T) {
	f := NewEntryForm(formRequest(t, url.Values{
		"city": {"Paris"}, "temperature": {"21.5"}, "description": {"clear sky"}, "timestamp": {"2024-05-01 10:30:00"},
	}))
	require.NoError(t, f.Validate())
	assert.Equal(t, 21.5, f.TemperatureValue())
	ts, ok := f.TimestampValue()
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)))

	f.Temperature = "warm"
	err := f.Validate()
	require.Error(t, err)
	assert.Contains(t, Message(err), "must be a number")
}

func TestEntryForm_TimestampValue(t *testing.T) {
	tests := []struct {
		in     string
		wantOK bool
	}{
		{"", false},
		{"yesterday", false},
		{"2024-13-01 00:00:00", false},
		{"2024-05-01 10:30:00", true},
		{"2024-05-01T10:30", true},
		{"2024-05-01T10:30:15", true},
	}
	for _, tt := range tests {
		_, ok := EntryForm{Timestamp: tt.in}.TimestampValue()
		assert.Equal(t, tt.wantOK, ok, "TimestampValue(%q)", tt.in)
	}
}
