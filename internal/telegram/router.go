package telegram

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v4"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/moderation"
	"github.com/example/curfewbot/internal/platform"
	"github.com/example/curfewbot/internal/registry"
)

// Router wires Telegram updates to the moderation engine, the join
// path and the registration flow. Handlers run synchronously (telebot
// Settings.Synchronous), so shared state sees one update at a time.
type Router struct {
	bot    *tele.Bot
	log    *zap.Logger
	client platform.Client

	engine    *moderation.Engine
	registrar *Registrar
	registry  *registry.Registry

	groupID        int64
	statusThreadID int
	now            func() time.Time
}

// NewRouter creates the router.
func NewRouter(bot *tele.Bot, log *zap.Logger, client platform.Client, engine *moderation.Engine, registrar *Registrar, reg *registry.Registry, groupID int64, statusThreadID int, now func() time.Time) *Router {
	return &Router{
		bot:            bot,
		log:            log,
		client:         client,
		engine:         engine,
		registrar:      registrar,
		registry:       reg,
		groupID:        groupID,
		statusThreadID: statusThreadID,
		now:            now,
	}
}

// Register attaches the handlers. Join events bypass moderation
// entirely; everything else that carries content goes through it.
func (r *Router) Register() {
	content := []string{
		tele.OnText, tele.OnPhoto, tele.OnVideo, tele.OnAudio,
		tele.OnAnimation, tele.OnDocument, tele.OnVoice,
		tele.OnVideoNote, tele.OnSticker, tele.OnContact,
		tele.OnLocation, tele.OnVenue, tele.OnDice,
	}
	for _, endpoint := range content {
		r.bot.Handle(endpoint, r.onMessage)
	}
	r.bot.Handle(tele.OnEdited, r.onMessage)
	r.bot.Handle(tele.OnUserJoined, r.onUserJoined)
}

func (r *Router) onMessage(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil {
		return nil
	}
	if m.Chat.ID == r.groupID {
		return r.moderate(m)
	}
	if m.Chat.Type == tele.ChatPrivate {
		return r.registrar.Handle(m.Sender.ID, display(m.Sender), func(text string) error {
			return c.Send(text, &tele.SendOptions{
				ParseMode:             tele.ModeMarkdown,
				DisableWebPagePreview: true,
			})
		})
	}
	return nil
}

// moderate gathers the decision facts for a group message, asks the
// engine, and executes its verdict.
func (r *Router) moderate(m *tele.Message) error {
	status, err := r.client.ChatMember(r.groupID, m.Sender.ID)
	if err != nil {
		return fmt.Errorf("sender lookup: %w", err)
	}

	facts := moderation.Facts{
		MessageID:     m.ID,
		SenderID:      m.Sender.ID,
		SenderName:    displayName(m.Sender),
		SenderIsAdmin: status.IsAdmin(),
		EffectiveTime: effectiveTime(m),
		ThreadID:      m.ThreadID,
	}

	verdict := r.engine.Decide(r.now(), facts)
	if verdict.Action != moderation.Allow {
		r.log.Info("moderation verdict",
			zap.String("action", verdict.Action.String()),
			zap.String("rule", verdict.Rule),
			zap.Int64("sender_id", facts.SenderID),
			zap.Int("message_id", facts.MessageID),
			zap.Int("thread_id", facts.ThreadID),
		)
	}
	return r.engine.Enforce(verdict, facts)
}

// onUserJoined updates the roster for every joined user and posts the
// registration instructions. This path never evaluates deletion rules.
func (r *Router) onUserJoined(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Chat.ID != r.groupID {
		return nil
	}

	joined := m.UsersJoined
	if len(joined) == 0 && m.UserJoined != nil {
		joined = []tele.User{*m.UserJoined}
	}

	now := r.now()
	for i := range joined {
		u := &joined[i]
		if u.IsBot {
			continue
		}
		if err := r.registry.UpsertOnGroupJoin(u.ID, display(u), now); err != nil {
			return err
		}
		welcome := fmt.Sprintf(textWelcome,
			domain.Mention(u.ID, displayName(u)), r.bot.Me.Username)
		if err := r.client.Send(r.groupID, r.statusThreadID, welcome); err != nil {
			r.log.Error("welcome message failed",
				zap.Int64("user_id", u.ID), zap.Error(err))
		}
	}
	return nil
}

// effectiveTime is the timestamp the staleness guard compares against:
// forward origin for forwarded messages, edit time for edits, send time
// otherwise.
func effectiveTime(m *tele.Message) time.Time {
	if m.Origin != nil {
		return m.Origin.Time()
	}
	if m.LastEdit != 0 {
		return time.Unix(m.LastEdit, 0)
	}
	return m.Time()
}

func display(u *tele.User) domain.Display {
	return domain.Display{
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

func displayName(u *tele.User) string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return "@" + u.Username
	default:
		return fmt.Sprintf("%d", u.ID)
	}
}
