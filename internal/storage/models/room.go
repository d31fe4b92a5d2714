package models

import (
	"time"
)

// ChatRoom is a named conversation that users are durable members of.
type ChatRoom struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Type        string    `json:"type"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Room types.
const (
	RoomTypeGroup  = "GROUP"
	RoomTypeDirect = "DIRECT"
)

// RoomMember records a user's durable membership of a room.
type RoomMember struct {
	ID         string     `json:"id"`
	RoomID     string     `json:"roomId"`
	UserID     string     `json:"userId"`
	Role       string     `json:"role"`
	JoinedAt   time.Time  `json:"joinedAt"`
	LastReadAt *time.Time `json:"lastReadAt,omitempty"`
}

// Member roles.
const (
	RoleOwner  = "OWNER"
	RoleMember = "MEMBER"
)

// MemberProfile is a membership joined with the member's user profile.
type MemberProfile struct {
	RoomMember
	Username    string  `json:"username"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}
