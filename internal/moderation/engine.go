// Package moderation decides, for every group message, whether it is
// allowed, ignored, deleted with a notice, or deleted and redirected
// into the night holding topic — and executes that decision.
package moderation

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/ledger"
	"github.com/example/curfewbot/internal/platform"
)

// staleAfter is how far in the past a message's effective timestamp may
// lie before the engine ignores it. Protects against acting on backlog
// and duplicate-delivery noise after downtime.
const staleAfter = 60 * time.Second

// Action is the outcome of a moderation decision.
type Action int

const (
	// Allow leaves the message alone.
	Allow Action = iota
	// Ignore skips the message entirely: no deletion, no notice.
	Ignore
	// DeleteNotify deletes the message and posts an explanation in the
	// status topic. No redirect: an unregistered sender has not proven
	// reachability, so there is nowhere useful to redirect to.
	DeleteNotify
	// DeleteRedirect copies the message into the night holding topic,
	// records it in the ledger, posts an explanation and deletes the
	// original.
	DeleteRedirect
)

func (a Action) String() string {
	switch a {
	case Allow:
		return "allow"
	case Ignore:
		return "ignore"
	case DeleteNotify:
		return "delete"
	case DeleteRedirect:
		return "delete+redirect"
	default:
		return "unknown"
	}
}

// Facts are the resolved inputs of one decision. ThreadID 0 means the
// message was posted outside any topic. EffectiveTime is the forward
// origin time for forwarded messages, the edit time for edits, and the
// send time otherwise.
type Facts struct {
	MessageID     int
	SenderID      int64
	SenderName    string
	SenderIsAdmin bool
	EffectiveTime time.Time
	ThreadID      int
}

// Verdict is a decided action together with the rule that produced it.
type Verdict struct {
	Action Action
	Rule   string
}

// registrations is the slice of the registry the engine reads.
type registrations interface {
	IsBotRegistered(id int64) bool
}

// nightFlag exposes the current day/night regime.
type nightFlag interface {
	IsNight() bool
}

// Engine evaluates an ordered rule list; the first applicable rule
// wins. The order is part of the contract: the registration gate fires
// before the night-topic gate, so a message violating both is deleted
// without a redirect.
type Engine struct {
	groupID        int64
	statusThreadID int
	nightThreadID  int
	allowedThreads map[int]bool
	cutover        time.Time

	registry registrations
	night    nightFlag
	ledger   *ledger.Ledger
	client   platform.Client
	log      *zap.Logger
}

// Config carries the static moderation parameters.
type Config struct {
	GroupID        int64
	StatusThreadID int
	NightThreadID  int
	AllowedThreads map[int]bool
	Cutover        time.Time
}

// NewEngine wires the engine to its collaborators.
func NewEngine(cfg Config, reg registrations, night nightFlag, led *ledger.Ledger, client platform.Client, log *zap.Logger) *Engine {
	return &Engine{
		groupID:        cfg.GroupID,
		statusThreadID: cfg.StatusThreadID,
		nightThreadID:  cfg.NightThreadID,
		allowedThreads: cfg.AllowedThreads,
		cutover:        cfg.Cutover,
		registry:       reg,
		night:          night,
		ledger:         led,
		client:         client,
		log:            log,
	}
}

// rule pairs a name with a predicate; a hit returns the action to take.
type rule struct {
	name string
	eval func(now time.Time, f Facts) (Action, bool)
}

func (e *Engine) rules() []rule {
	return []rule{
		{
			name: "admin-pass",
			eval: func(_ time.Time, f Facts) (Action, bool) {
				return Allow, f.SenderIsAdmin
			},
		},
		{
			name: "stale-ignore",
			eval: func(now time.Time, f Facts) (Action, bool) {
				return Ignore, now.Sub(f.EffectiveTime) > staleAfter
			},
		},
		{
			name: "registration-gate",
			eval: func(now time.Time, f Facts) (Action, bool) {
				return DeleteNotify, !now.Before(e.cutover) && !e.registry.IsBotRegistered(f.SenderID)
			},
		},
		{
			name: "night-topic-gate",
			eval: func(_ time.Time, f Facts) (Action, bool) {
				return DeleteRedirect, e.night.IsNight() && !e.allowedThreads[f.ThreadID]
			},
		},
	}
}

// Decide runs the rule list and returns the first hit, defaulting to
// Allow.
func (e *Engine) Decide(now time.Time, f Facts) Verdict {
	for _, r := range e.rules() {
		if action, ok := r.eval(now, f); ok {
			return Verdict{Action: action, Rule: r.name}
		}
	}
	return Verdict{Action: Allow, Rule: "default"}
}

// Enforce executes a verdict's side effects. Deletion and notification
// are best-effort and independent: a failed notice does not stop the
// deletion, and the combined failure is reported to the caller.
func (e *Engine) Enforce(v Verdict, f Facts) error {
	switch v.Action {
	case Allow, Ignore:
		return nil
	case DeleteNotify:
		return e.deleteWithNotice(f, fmt.Sprintf(textDeletedUnregistered, domain.Mention(f.SenderID, f.SenderName)))
	case DeleteRedirect:
		return e.redirect(f)
	default:
		return fmt.Errorf("unknown action %v", v.Action)
	}
}

func (e *Engine) deleteWithNotice(f Facts, notice string) error {
	sendErr := e.client.Send(e.groupID, e.statusThreadID, notice)
	if sendErr != nil {
		sendErr = fmt.Errorf("send notice: %w", sendErr)
	}
	delErr := e.client.Delete(e.groupID, f.MessageID)
	if delErr != nil {
		delErr = fmt.Errorf("delete message %d: %w", f.MessageID, delErr)
	}
	return errors.Join(sendErr, delErr)
}

// redirect copies the message into the night holding topic, records the
// copy in the ledger, then deletes the original with a notice. If the
// copy cannot be made the original stays put: losing a message outright
// is worse than leaving it visible until an admin steps in.
func (e *Engine) redirect(f Facts) error {
	copyID, err := e.client.Forward(e.groupID, e.groupID, f.MessageID, e.nightThreadID)
	if err != nil {
		return fmt.Errorf("forward message %d to night topic: %w", f.MessageID, err)
	}

	var origin *int
	if f.ThreadID != 0 {
		t := f.ThreadID
		origin = &t
	}
	if err := e.ledger.Append(copyID, origin); err != nil {
		return err
	}
	e.log.Debug("message held for morning replay",
		zap.Int("copy_id", copyID),
		zap.Int("origin_thread", f.ThreadID),
	)

	return e.deleteWithNotice(f, fmt.Sprintf(textDeletedNight, domain.Mention(f.SenderID, f.SenderName)))
}
