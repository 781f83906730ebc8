// Package registry keeps the durable roster of group members: who has
// been seen joining the group, who has completed the one-time private
// registration with the bot, and who is still an active participant.
package registry

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/platform"
)

// Lookup resolves the live membership status of a user. A "not found"
// answer from the platform must already be normalized to StatusLeft.
type Lookup func(userID int64) (platform.Status, error)

// Store is the persistence surface the registry needs. Satisfied by
// *store.JSONFile[domain.Member].
type Store interface {
	Load() ([]domain.Member, error)
	Save([]domain.Member) error
}

// Registry is the in-memory roster backed by a whole-file JSON store.
// All methods are safe for concurrent use; message handling and the
// hourly tick run on different goroutines.
type Registry struct {
	mu      sync.Mutex
	members []domain.Member
	index   map[int64]int // id -> position in members

	file Store
	log  *zap.Logger
}

// New creates a registry over the given store.
func New(file Store, log *zap.Logger) *Registry {
	return &Registry{
		index: make(map[int64]int),
		file:  file,
		log:   log,
	}
}

// Load restores the roster from durable storage. A missing file leaves
// the roster empty; malformed content is returned as an error and the
// caller must not start with it.
func (r *Registry) Load() error {
	members, err := r.file.Load()
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members = members
	r.index = make(map[int64]int, len(members))
	for i, m := range members {
		r.index[m.ID] = i
	}
	return nil
}

// UpsertOnGroupJoin records a join event: a new member is created
// active and unregistered, a known one is reactivated with refreshed
// display metadata and join time.
func (r *Registry) UpsertOnGroupJoin(id int64, d domain.Display, joinTime time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[id]; ok {
		m := &r.members[i]
		m.Username = d.Username
		m.FirstName = d.FirstName
		m.LastName = d.LastName
		m.GroupRegistrationTime = &joinTime
		m.IsActive = true
	} else {
		r.index[id] = len(r.members)
		r.members = append(r.members, domain.Member{
			ID:                    id,
			Username:              d.Username,
			FirstName:             d.FirstName,
			LastName:              d.LastName,
			GroupRegistrationTime: &joinTime,
			IsActive:              true,
		})
	}
	return r.save()
}

// Observe makes sure a member record exists for a user whose group
// membership was just confirmed by a live lookup, without recording a
// join event. Used by the registration handler for members who joined
// before the bot existed. No-op for known members.
func (r *Registry) Observe(id int64, d domain.Display) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.index[id]; ok {
		return nil
	}
	r.index[id] = len(r.members)
	r.members = append(r.members, domain.Member{
		ID:        id,
		Username:  d.Username,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		IsActive:  true,
	})
	return r.save()
}

// MarkBotRegistered records the first private message from a member.
// The boolean reports whether this call was the first registration;
// repeated calls keep the original timestamp. Unknown ids are an error:
// a record must exist via UpsertOnGroupJoin or Observe first.
func (r *Registry) MarkBotRegistered(id int64, t time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[id]
	if !ok {
		return false, fmt.Errorf("mark registered: unknown member %d", id)
	}
	if r.members[i].BotRegistrationTime != nil {
		return false, nil
	}
	r.members[i].BotRegistrationTime = &t
	if err := r.save(); err != nil {
		return false, err
	}
	return true, nil
}

// IsBotRegistered reports whether the member completed registration.
func (r *Registry) IsBotRegistered(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	return ok && r.members[i].BotRegistrationTime != nil
}

// RefreshActivity re-checks every active member against the live chat
// membership and deactivates those who left or were kicked. Lookup
// failures keep the member active and are logged; a single flaky call
// must not knock a member off the roster.
func (r *Registry) RefreshActivity(lookup Lookup) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := false
	for i := range r.members {
		if !r.members[i].IsActive {
			continue
		}
		status, err := lookup(r.members[i].ID)
		if err != nil {
			r.log.Warn("membership lookup failed, keeping member active",
				zap.Int64("member_id", r.members[i].ID),
				zap.Error(err),
			)
			continue
		}
		if !status.IsParticipant() {
			r.members[i].IsActive = false
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return r.save()
}

// ActiveMembers returns a copy of all currently-active members.
func (r *Registry) ActiveMembers() []domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Member
	for _, m := range r.members {
		if m.IsActive {
			out = append(out, m)
		}
	}
	return out
}

// UnregisteredActive returns active members who never wrote the bot a
// private message, for the end-of-night compliance report.
func (r *Registry) UnregisteredActive() []domain.Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Member
	for _, m := range r.members {
		if m.IsActive && m.BotRegistrationTime == nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisteredActiveCount counts active members who completed
// registration.
func (r *Registry) RegisteredActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.members {
		if m.IsActive && m.BotRegistrationTime != nil {
			n++
		}
	}
	return n
}

// save writes the roster out. Callers must hold r.mu.
func (r *Registry) save() error {
	if err := r.file.Save(r.members); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
