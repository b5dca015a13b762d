package authclient

import (
	"bytes"
	"encoding/json"
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
)

// Session is the backend-issued credential pair representing an active login.
// It is replaced wholesale on login and revalidation, never mutated field by
// field.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// UserProfile is the authenticated principal as reported by the backend.
type UserProfile struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Metadata map[string]any `json:"user_metadata,omitempty"`
}

// AdminInfo describes the admin role and permission set layered on top of a
// valid session.
type AdminInfo struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// AdminData carries the optional admin fields of a backend response.
// IsAdmin is nil when the field was absent. AdminPresent reports whether the
// admin object appeared at all, so an explicit null can be told apart from an
// absent field.
type AdminData struct {
	IsAdmin      *bool
	Admin        *AdminInfo
	AdminPresent bool
}

// AuthPayload is the subset of a login or session response consumed by
// Store.SetAuth.
type AuthPayload struct {
	User    *UserProfile
	Session *Session
	Admin   AdminData
}

// AuthState is the aggregate client auth state. A single Store owns it; all
// mutation goes through the Store's operations.
type AuthState struct {
	User            *UserProfile `json:"user"`
	Session         *Session     `json:"session"`
	IsAuthenticated bool         `json:"isAuthenticated"`
	IsAdmin         bool         `json:"isAdmin"`
	Admin           *AdminInfo   `json:"admin"`
	HasHydrated     bool         `json:"-"`
	IsLoading       bool         `json:"-"`
}

func (s AuthState) clone() AuthState {
	out := s
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	if s.Admin != nil {
		a := *s.Admin
		out.Admin = &a
	}
	return out
}

// LoginResponse is the payload returned by the password login and code
// exchange endpoints.
type LoginResponse struct {
	Message      string          `json:"message,omitempty"`
	User         *UserProfile    `json:"user"`
	Session      *Session        `json:"session"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	IsAdmin      *bool           `json:"isAdmin,omitempty"`
	Admin        json.RawMessage `json:"admin,omitempty"`
}

func (r LoginResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.User, validation.Required),
		validation.Field(&r.Session, validation.Required, validation.By(requireAccessToken)),
	)
}

// Payload converts the response for Store.SetAuth.
func (r *LoginResponse) Payload() AuthPayload {
	return AuthPayload{
		User:    r.User,
		Session: r.Session,
		Admin:   decodeAdmin(r.IsAdmin, r.Admin),
	}
}

// SessionResponse is the payload returned by the session revalidation
// endpoint.
type SessionResponse struct {
	User    *UserProfile    `json:"user"`
	Session *Session        `json:"session"`
	IsAdmin *bool           `json:"isAdmin,omitempty"`
	Admin   json.RawMessage `json:"admin,omitempty"`
}

func (r SessionResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.User, validation.Required),
		validation.Field(&r.Session, validation.Required, validation.By(requireAccessToken)),
	)
}

// Payload converts the response for Store.SetAuth.
func (r *SessionResponse) Payload() AuthPayload {
	return AuthPayload{
		User:    r.User,
		Session: r.Session,
		Admin:   decodeAdmin(r.IsAdmin, r.Admin),
	}
}

// MeResponse is the payload returned by the profile endpoint.
type MeResponse struct {
	User    *UserProfile    `json:"user"`
	IsAdmin *bool           `json:"isAdmin,omitempty"`
	Admin   json.RawMessage `json:"admin,omitempty"`
}

func (r MeResponse) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.User, validation.Required),
	)
}

// AdminData extracts the admin fields for Store.SetUser.
func (r *MeResponse) AdminData() AdminData {
	return decodeAdmin(r.IsAdmin, r.Admin)
}

// SignOutResponse is the payload returned by the sign-out endpoint. The
// client ignores it beyond logging.
type SignOutResponse struct {
	Message string `json:"message,omitempty"`
}

func requireAccessToken(value any) error {
	s, _ := value.(*Session)
	if s == nil || s.AccessToken == "" {
		return errors.New("missing access_token")
	}
	return nil
}

var jsonNull = []byte("null")

// decodeAdmin normalizes the optional isAdmin/admin response fields.
// A raw value of null is present-but-empty; a missing field is absent.
// Unparseable admin objects are treated as absent rather than failing the
// whole response.
func decodeAdmin(isAdmin *bool, raw json.RawMessage) AdminData {
	data := AdminData{IsAdmin: isAdmin}
	if raw == nil {
		return data
	}

	data.AdminPresent = true
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		return data
	}

	info := &AdminInfo{}
	if err := json.Unmarshal(raw, info); err != nil {
		data.AdminPresent = false
		return data
	}
	data.Admin = info
	return data
}
