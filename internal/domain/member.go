package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Member is one row of the durable roster. A record is created once per
// Telegram user id and updated in place afterwards; deactivation never
// deletes it, so the roster doubles as an audit history.
type Member struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	// GroupRegistrationTime is the most recent observed join event.
	// Nil if the member was never seen joining (e.g. they predate the bot).
	GroupRegistrationTime *time.Time `json:"group_registration_time,omitempty"`

	// BotRegistrationTime is set by the first private message to the bot
	// and never cleared afterwards.
	BotRegistrationTime *time.Time `json:"bot_registration_time,omitempty"`

	IsActive bool `json:"is_active"`
}

// Display is the mutable display metadata carried by Telegram events.
type Display struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName picks the best human-readable name available.
func (m Member) DisplayName() string {
	switch {
	case m.FirstName != "" && m.LastName != "":
		return m.FirstName + " " + m.LastName
	case m.FirstName != "":
		return m.FirstName
	case m.Username != "":
		return "@" + m.Username
	default:
		return strconv.FormatInt(m.ID, 10)
	}
}

// Mention renders a Markdown mention that works even for users without
// a public username.
func Mention(id int64, name string) string {
	return fmt.Sprintf("[%s](tg://user?id=%d)", name, id)
}
