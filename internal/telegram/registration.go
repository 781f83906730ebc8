package telegram

import (
	"fmt"
	"time"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/platform"
	"github.com/example/curfewbot/internal/registry"
)

// Registrar handles private messages to the bot: the one-time
// registration flow every member must complete before they may post.
type Registrar struct {
	client       platform.Client
	registry     *registry.Registry
	groupID      int64
	maintainerID int64
	now          func() time.Time
}

// NewRegistrar wires the registration flow.
func NewRegistrar(client platform.Client, reg *registry.Registry, groupID, maintainerID int64, now func() time.Time) *Registrar {
	return &Registrar{
		client:       client,
		registry:     reg,
		groupID:      groupID,
		maintainerID: maintainerID,
		now:          now,
	}
}

// Handle processes one private message. reply sends the answer back to
// the private chat.
func (g *Registrar) Handle(senderID int64, d domain.Display, reply func(text string) error) error {
	status, err := g.client.ChatMember(g.groupID, senderID)
	if err != nil {
		return fmt.Errorf("membership check for %d: %w", senderID, err)
	}
	if !status.IsParticipant() {
		return reply(textNotActivist)
	}

	// The member may predate the bot; record them before registering.
	if err := g.registry.Observe(senderID, d); err != nil {
		return err
	}
	first, err := g.registry.MarkBotRegistered(senderID, g.now())
	if err != nil {
		return err
	}
	if first {
		return reply(textRegistrationThanks)
	}
	return reply(fmt.Sprintf(textNoCommands, g.maintainerID))
}
