// Package telegram is the only package that touches the Telegram API.
// It adapts telebot to the platform.Client boundary and routes inbound
// updates into the moderation core.
package telegram

import (
	"errors"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/example/curfewbot/internal/platform"
)

// Client implements platform.Client over a telebot bot.
type Client struct {
	bot *tele.Bot
}

// NewClient wraps the given bot.
func NewClient(bot *tele.Bot) *Client {
	return &Client{bot: bot}
}

// ChatMember resolves a user's membership status. A "not found" answer
// is normalized to left: it happens for users who interacted with the
// group before the bot had any record of them.
func (c *Client) ChatMember(chatID, userID int64) (platform.Status, error) {
	member, err := c.bot.ChatMemberOf(&tele.Chat{ID: chatID}, &tele.User{ID: userID})
	if err != nil {
		if isNotFound(err) {
			return platform.StatusLeft, nil
		}
		return "", err
	}
	switch member.Role {
	case tele.Creator:
		return platform.StatusOwner, nil
	case tele.Administrator:
		return platform.StatusAdministrator, nil
	case tele.Member:
		return platform.StatusMember, nil
	case tele.Restricted:
		return platform.StatusRestricted, nil
	case tele.Kicked:
		return platform.StatusKicked, nil
	default:
		return platform.StatusLeft, nil
	}
}

// MemberCount returns the number of members in a chat.
func (c *Client) MemberCount(chatID int64) (int, error) {
	return c.bot.Len(&tele.Chat{ID: chatID})
}

// Send posts a Markdown message without link previews, into the given
// thread when threadID is non-zero.
func (c *Client) Send(chatID int64, threadID int, text string) error {
	_, err := c.bot.Send(tele.ChatID(chatID), text, &tele.SendOptions{
		ThreadID:              threadID,
		ParseMode:             tele.ModeMarkdown,
		DisableWebPagePreview: true,
	})
	return err
}

// Delete removes a message.
func (c *Client) Delete(chatID int64, messageID int) error {
	return c.bot.Delete(tele.StoredMessage{
		ChatID:    chatID,
		MessageID: strconv.Itoa(messageID),
	})
}

// Forward copies a message into a chat thread and returns the new
// message id.
func (c *Client) Forward(fromChatID, toChatID int64, messageID, threadID int) (int, error) {
	msg, err := c.bot.Forward(tele.ChatID(toChatID), tele.StoredMessage{
		ChatID:    fromChatID,
		MessageID: strconv.Itoa(messageID),
	}, &tele.SendOptions{ThreadID: threadID})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

// isNotFound matches the Bot API "not found" family of errors (user,
// chat or participant).
func isNotFound(err error) bool {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return strings.Contains(strings.ToLower(apiErr.Description), "not found")
	}
	return false
}
