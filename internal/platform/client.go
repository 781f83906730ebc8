// Package platform defines the boundary to the messaging platform. The
// moderation core only ever talks to this interface; the telebot-backed
// implementation lives in internal/telegram.
package platform

// Status is the chat-membership status of a user, normalized so that a
// "not found" answer from the platform reads as StatusLeft: it occurs
// for users who interacted with the group before the bot had any record
// of them and is not an error.
type Status string

const (
	StatusOwner         Status = "creator"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusKicked        Status = "kicked"
)

// IsParticipant reports whether the status counts as a current group
// participant for roster purposes.
func (s Status) IsParticipant() bool {
	return s == StatusMember || s == StatusAdministrator || s == StatusOwner
}

// IsAdmin reports whether the status grants moderation immunity.
func (s Status) IsAdmin() bool {
	return s == StatusAdministrator || s == StatusOwner
}

// Client is the subset of the platform API the core consumes. Thread id
// 0 means the chat's default thread. Calls may fail with transient
// platform errors; the core never retries them.
type Client interface {
	// ChatMember returns the normalized membership status of a user.
	ChatMember(chatID, userID int64) (Status, error)

	// MemberCount returns the number of members in a chat.
	MemberCount(chatID int64) (int, error)

	// Send posts a text message into a chat thread.
	Send(chatID int64, threadID int, text string) error

	// Delete removes a message.
	Delete(chatID int64, messageID int) error

	// Forward copies a message into a chat thread and returns the id of
	// the new copy.
	Forward(fromChatID, toChatID int64, messageID, threadID int) (int, error)
}
