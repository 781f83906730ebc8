// Package night flips the quiet-hours regime on and off and performs
// the side effects of each flip: announcements, roster refresh and the
// replay of messages held back overnight.
package night

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/ledger"
	"github.com/example/curfewbot/internal/platform"
	"github.com/example/curfewbot/internal/registry"
	"github.com/example/curfewbot/internal/schedule"
)

// roster is the slice of the registry the controller drives.
type roster interface {
	RefreshActivity(lookup registry.Lookup) error
	UnregisteredActive() []domain.Member
	RegisteredActiveCount() int
}

// Controller owns the day/night transitions. Tick is called once per
// hour; it reconciles the flag against the wall-clock window, so a tick
// that arrives after downtime still performs the pending transition.
// Announcements for boundaries missed while offline are not backfilled.
type Controller struct {
	state *State
	sched *schedule.Schedule

	reg    roster
	ledger *ledger.Ledger
	client platform.Client
	log    *zap.Logger

	groupID        int64
	statusThreadID int
	allowedTopics  []string // names, for the announcement text
}

// Config carries the static parameters of the controller.
type Config struct {
	GroupID        int64
	StatusThreadID int
	AllowedTopics  []string
}

// NewController wires the controller to its collaborators.
func NewController(cfg Config, state *State, sched *schedule.Schedule, reg roster, led *ledger.Ledger, client platform.Client, log *zap.Logger) *Controller {
	return &Controller{
		state:          state,
		sched:          sched,
		reg:            reg,
		ledger:         led,
		client:         client,
		log:            log,
		groupID:        cfg.GroupID,
		statusThreadID: cfg.StatusThreadID,
		allowedTopics:  cfg.AllowedTopics,
	}
}

// Tick reconciles the flag with the quiet-hours window at the given
// time. At most one transition happens per call.
func (c *Controller) Tick(now time.Time) {
	inWindow := c.sched.InNightWindow(now)
	if inWindow == c.state.IsNight() {
		return
	}
	if inWindow {
		c.enterNight(now)
	} else {
		c.endNight(now)
	}
}

// enterNight flips the flag and announces the schedule for the night
// ahead. The end hour is evaluated on tomorrow's civil date, since that
// is the day the night ends on.
func (c *Controller) enterNight(now time.Time) {
	c.state.set(true)

	tomorrow := now.AddDate(0, 0, 1)
	endHour := c.sched.NightEndHour(tomorrow)
	dayKind := textWeekday
	if c.sched.IsWeekend(tomorrow) {
		dayKind = textWeekend
	}

	c.log.Info("night mode on", zap.Int("end_hour", endHour))

	text := fmt.Sprintf(textNightStart,
		c.sched.StartHour(), endHour, dayKind,
		strings.Join(c.allowedTopics, ", "),
	)
	if err := c.client.Send(c.groupID, 0, text); err != nil {
		c.log.Error("night announcement failed", zap.Error(err))
	}
}

// endNight flips the flag, refreshes the roster, reports registration
// compliance, reminds about fees on the configured days, and replays
// the overnight ledger.
func (c *Controller) endNight(now time.Time) {
	c.state.set(false)
	c.log.Info("night mode off")

	if err := c.reg.RefreshActivity(func(userID int64) (platform.Status, error) {
		return c.client.ChatMember(c.groupID, userID)
	}); err != nil {
		c.log.Error("roster refresh failed", zap.Error(err))
	}

	c.announceAllClear()

	if c.sched.IsPaymentReminderDay(now) {
		if err := c.client.Send(c.groupID, 0, textPaymentReminder); err != nil {
			c.log.Error("payment reminder failed", zap.Error(err))
		}
	}

	c.replayLedger()
}

func (c *Controller) announceAllClear() {
	memberCount, err := c.client.MemberCount(c.groupID)
	if err != nil {
		c.log.Error("member count failed", zap.Error(err))
	}
	// The bot itself shows up in the member count but not in the roster.
	registered := c.reg.RegisteredActiveCount() + 1

	text := fmt.Sprintf(textNightEnd, registered, memberCount)
	if unregistered := c.reg.UnregisteredActive(); len(unregistered) > 0 {
		mentions := make([]string, len(unregistered))
		for i, m := range unregistered {
			mentions[i] = domain.Mention(m.ID, m.DisplayName())
		}
		text += fmt.Sprintf(textUnregisteredList, strings.Join(mentions, ", "))
	}

	if err := c.client.Send(c.groupID, 0, text); err != nil {
		c.log.Error("all-clear announcement failed", zap.Error(err))
	}
}

// replayLedger re-forwards every held message into its original topic
// (default thread when none was recorded), then clears the ledger. A
// failed forward is logged and skipped; the clear is unconditional so a
// broken entry cannot be replayed twice on the next morning.
func (c *Controller) replayLedger() {
	entries := c.ledger.Entries()
	for _, e := range entries {
		threadID := 0
		if e.OriginTopic != nil {
			threadID = *e.OriginTopic
		}
		if _, err := c.client.Forward(c.groupID, c.groupID, e.MessageID, threadID); err != nil {
			c.log.Error("ledger replay failed for message",
				zap.Int("message_id", e.MessageID),
				zap.Int("thread_id", threadID),
				zap.Error(err),
			)
		}
	}
	if err := c.ledger.Clear(); err != nil {
		c.log.Error("ledger clear failed", zap.Error(err))
	}
	if len(entries) > 0 {
		c.log.Info("replayed overnight messages", zap.Int("count", len(entries)))
	}
}
