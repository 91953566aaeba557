// Package model defines the project, profile and role types shared by every layer.
package model

import (
	"strconv"
	"strings"
	"time"
)

// UserID is the opaque principal identity supplied by the identity provider.
// The empty value means anonymous.
type UserID string

func (u UserID) Anonymous() bool {
	return u == ""
}

type ProjectID uint64

func (id ProjectID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

func ParseProjectID(s string) (ProjectID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: "id", Err: ErrInvalidID}
	}
	return ProjectID(v), nil
}

type PublishStatus string

const (
	StatusDraft     PublishStatus = "draft"
	StatusPublished PublishStatus = "published"
)

func (s PublishStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeCustom Theme = "custom"
)

func (t Theme) Valid() bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeCustom:
		return true
	}
	return false
}

func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", &ValidationError{Field: "theme", Err: ErrInvalidTheme}
	}
	return t, nil
}

// ProjectState is the editable content of a project. It is replaced wholesale on save.
type ProjectState struct {
	Title      string    `json:"title"`
	Tagline    string    `json:"tagline"`
	Body       string    `json:"body"`
	Theme      Theme     `json:"theme"`
	LastEdited time.Time `json:"last_edited"`
}

// DefaultState is the state a freshly created project starts with.
func DefaultState() ProjectState {
	return ProjectState{Theme: ThemeLight}
}

// Empty reports whether title, tagline and body are all blank.
func (s ProjectState) Empty() bool {
	return s.Title == "" && s.Tagline == "" && s.Body == ""
}

type Project struct {
	ID            ProjectID     `json:"id"`
	Owner         UserID        `json:"owner"`
	Name          string        `json:"name"`
	Description   *string       `json:"description,omitempty"`
	PublishStatus PublishStatus `json:"publish_status"`
	State         ProjectState  `json:"state"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	URLSlug       *string       `json:"url_slug,omitempty"`
}

func (p *Project) Published() bool {
	return p.PublishStatus == StatusPublished
}

func (p *Project) OwnedBy(user UserID) bool {
	return !user.Anonymous() && p.Owner == user
}

// Slug is the stable public path segment established on first publish.
func Slug(id ProjectID) string {
	return id.String()
}

// PublicPath is the path of the read-only public page of a project.
func PublicPath(id ProjectID) string {
	return "/p/" + id.String()
}

type Profile struct {
	Name string `json:"name"`
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return true
	}
	return false
}

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", &ValidationError{Field: "role", Err: ErrInvalidRole}
	}
	return r, nil
}

// NormalizeDescription trims the description and maps blank to absent.
func NormalizeDescription(desc *string) *string {
	if desc == nil {
		return nil
	}
	d := strings.TrimSpace(*desc)
	if d == "" {
		return nil
	}
	return &d
}

// ValidateName rejects empty or whitespace-only names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Field: "name", Err: ErrEmptyName}
	}
	return nil
}

func ValidateProfile(p Profile) error {
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "profile.name", Err: ErrEmptyName}
	}
	return nil
}

func ValidateState(s ProjectState) error {
	if !s.Theme.Valid() {
		return &ValidationError{Field: "state.theme", Err: ErrInvalidTheme}
	}
	return nil
}

// IsDirty compares the editable fields only. LastEdited is ignored.
func IsDirty(current, baseline ProjectState) bool {
	return current.Title != baseline.Title ||
		current.Tagline != baseline.Tagline ||
		current.Body != baseline.Body ||
		current.Theme != baseline.Theme
}
