package users

import (
	"errors"
	"strings"
)

// Plan enumerates the subscription tiers a user can hold.
type Plan string

const (
	// PlanFree is assigned to every newly created user.
	PlanFree Plan = "free"
	// PlanPro marks a paying user.
	PlanPro Plan = "pro"
)

var (
	// ErrInvalidIdentity indicates the caller did not present a usable external identifier.
	ErrInvalidIdentity = errors.New("users: invalid identity")
	// ErrUserNotFound indicates the external identity has no matching user record.
	ErrUserNotFound = errors.New("user not found")
)

// User is the canonical account record. ExternalID carries the subject issued by the auth provider.
type User struct {
	ID            string  `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	ExternalID    string  `gorm:"column:external_id;size:190;not null;uniqueIndex:idx_users_external_id" json:"external_id"`
	Name          string  `gorm:"column:name;size:320;not null" json:"name"`
	Email         string  `gorm:"column:email;size:320;not null;index:idx_users_email" json:"email"`
	ImageURL      *string `gorm:"column:image_url;size:512" json:"image_url,omitempty"`
	Plan          Plan    `gorm:"column:plan;size:16;not null;default:'free'" json:"plan"`
	BookmarkCount int64   `gorm:"column:bookmark_count;not null;default:0" json:"bookmark_count"`
	CreatedAtMs   int64   `gorm:"column:created_at_ms;not null" json:"created_at_ms"`
	UpdatedAtMs   int64   `gorm:"column:updated_at_ms;not null" json:"updated_at_ms"`
}

// TableName exposes the table backing user accounts.
func (User) TableName() string {
	return "users"
}

// Profile carries the fields supplied by the client on login.
type Profile struct {
	Name     string
	Email    string
	ImageURL *string
}

func normalize(value string) string {
	return strings.TrimSpace(value)
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := normalize(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
