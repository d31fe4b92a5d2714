// Package models contains the domain models for the application.
package models

import (
	"time"
)

// User is a registered chat participant.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       *string   `json:"email,omitempty"`
	DisplayName string    `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// User presence status values, maintained by the presence sweep.
const (
	UserStatusOnline  = "ONLINE"
	UserStatusOffline = "OFFLINE"
)

// Avatar returns the avatar URL or an empty string when none is set.
func (u *User) Avatar() string {
	if u.AvatarURL == nil {
		return ""
	}
	return *u.AvatarURL
}
