// Package models holds the notification types shared by the sweep, its
// stores and its delivery channels.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeShiftChange = "shift_change"

	ChannelPush  = "push"
	ChannelEmail = "email"

	StatusSent    = "sent"
	StatusPartial = "partial"

	FallbackTitle = "Roster Updated"
	FallbackBody  = "Your roster has changed"

	MaxTitleLength = 50
	MaxBodyLength  = 150
)

// ShiftSummary is the day/time/role view of a shift used in notification copy.
type ShiftSummary struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
	Role  string `json:"role,omitempty"`
}

// Prefs are a user's channel switches.
type Prefs struct {
	PushEnabled  bool
	EmailEnabled bool
}

type DeviceToken struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

// Recipient is everything needed to address one user.
type Recipient struct {
	UserID       uuid.UUID
	DisplayName  string
	Email        string
	Prefs        Prefs
	DeviceTokens []DeviceToken
}

// Channels lists the channels a message can actually reach. Push needs at
// least one device token and email needs an address.
func (r Recipient) Channels() []string {
	var out []string
	if r.Prefs.PushEnabled && len(r.DeviceTokens) > 0 {
		out = append(out, ChannelPush)
	}
	if r.Prefs.EmailEnabled && r.Email != "" {
		out = append(out, ChannelEmail)
	}
	return out
}

// CopyRequest is the per-user context handed to the copy generator.
type CopyRequest struct {
	UserID    uuid.UUID
	UserName  string
	OldShifts []ShiftSummary
	NewShifts []ShiftSummary
	Timezone  string
}

// Copy is a notification's user-facing text.
type Copy struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Fallback is used when generated copy is missing or out of bounds.
func Fallback() Copy {
	return Copy{Title: FallbackTitle, Body: FallbackBody}
}

// LogEntry records one notification sent to a user.
type LogEntry struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Type      string
	Title     string
	Body      string
	SentVia   []string
	Status    string
	CreatedAt time.Time
}
