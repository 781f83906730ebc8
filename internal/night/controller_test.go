package night

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/ledger"
	"github.com/example/curfewbot/internal/platform"
	"github.com/example/curfewbot/internal/registry"
	"github.com/example/curfewbot/internal/schedule"
	"github.com/example/curfewbot/internal/store"
)

const testGroupID = int64(-100200300)

type sendCall struct {
	chatID   int64
	threadID int
	text     string
}

type forwardCall struct {
	messageID, threadID int
}

type fakeClient struct {
	statuses map[int64]platform.Status
	count    int

	sends    []sendCall
	forwards []forwardCall
}

func (f *fakeClient) ChatMember(_ int64, userID int64) (platform.Status, error) {
	if s, ok := f.statuses[userID]; ok {
		return s, nil
	}
	return platform.StatusLeft, nil
}

func (f *fakeClient) MemberCount(int64) (int, error) { return f.count, nil }

func (f *fakeClient) Send(chatID int64, threadID int, text string) error {
	f.sends = append(f.sends, sendCall{chatID, threadID, text})
	return nil
}

func (f *fakeClient) Delete(int64, int) error { return nil }

func (f *fakeClient) Forward(_, _ int64, messageID, threadID int) (int, error) {
	f.forwards = append(f.forwards, forwardCall{messageID, threadID})
	return messageID + 1000, nil
}

type fixture struct {
	controller *Controller
	state      *State
	client     *fakeClient
	reg        *registry.Registry
	led        *ledger.Ledger
}

func newFixture(t *testing.T, night bool) *fixture {
	t.Helper()
	dir := t.TempDir()

	reg := registry.New(store.NewJSONFile[domain.Member](filepath.Join(dir, "users.json")), zap.NewNop())
	if err := reg.Load(); err != nil {
		t.Fatal(err)
	}
	led := ledger.New(store.NewJSONFile[domain.DeferredMessage](filepath.Join(dir, "ledger.json")))
	if err := led.Load(); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{statuses: map[int64]platform.Status{}, count: 50}
	state := NewState(night)
	sched := schedule.New(time.UTC, 22, 8, 9)

	c := NewController(Config{
		GroupID:        testGroupID,
		StatusThreadID: 113901,
		AllowedTopics:  []string{"SOS", "ВІЛЬНА ТЕМА"},
	}, state, sched, reg, led, client, zap.NewNop())

	return &fixture{controller: c, state: state, client: client, reg: reg, led: led}
}

func at(day, hour int) time.Time {
	// June 2024: the 3rd is a Monday.
	return time.Date(2024, time.June, day, hour, 0, 0, 0, time.UTC)
}

func TestTickIsNoOpBetweenBoundaries(t *testing.T) {
	f := newFixture(t, false)
	for _, hour := range []int{10, 14, 21} {
		f.controller.Tick(at(4, hour))
	}
	if f.state.IsNight() {
		t.Error("daytime ticks must not enter night mode")
	}
	if len(f.client.sends) != 0 {
		t.Errorf("no announcements expected, got %v", f.client.sends)
	}

	n := newFixture(t, true)
	n.controller.Tick(at(4, 3))
	if !n.state.IsNight() {
		t.Error("a 3am tick must stay in night mode")
	}
	if len(n.client.sends) != 0 {
		t.Error("no transition, no announcement")
	}
}

func TestEnterNight(t *testing.T) {
	f := newFixture(t, false)
	f.controller.Tick(at(4, 22)) // Tuesday evening

	if !f.state.IsNight() {
		t.Fatal("22:00 tick must enter night mode")
	}
	if len(f.client.sends) != 1 {
		t.Fatalf("expected one announcement, got %d", len(f.client.sends))
	}
	text := f.client.sends[0].text
	if !strings.Contains(text, "8:00") || !strings.Contains(text, textWeekday) {
		t.Errorf("announcement must carry tomorrow's end hour and day kind: %q", text)
	}

	// Second tick in the same hour changes nothing.
	f.controller.Tick(at(4, 22))
	if len(f.client.sends) != 1 {
		t.Error("repeated tick must not re-announce")
	}
}

func TestEnterNightBeforeWeekend(t *testing.T) {
	f := newFixture(t, false)
	f.controller.Tick(at(7, 22)) // Friday evening, Saturday ahead
	text := f.client.sends[0].text
	if !strings.Contains(text, "9:00") || !strings.Contains(text, textWeekend) {
		t.Errorf("weekend night must announce the 9:00 end: %q", text)
	}
}

func TestEndNightReplaysAndClearsLedger(t *testing.T) {
	f := newFixture(t, true)

	topic := 113812
	if err := f.led.Append(100, &topic); err != nil {
		t.Fatal(err)
	}
	if err := f.led.Append(101, nil); err != nil {
		t.Fatal(err)
	}

	f.controller.Tick(at(4, 8)) // Tuesday morning

	if f.state.IsNight() {
		t.Fatal("8:00 weekday tick must end night mode")
	}
	if len(f.client.forwards) != 2 {
		t.Fatalf("every entry must be forwarded exactly once, got %v", f.client.forwards)
	}
	if f.client.forwards[0].threadID != topic {
		t.Errorf("first entry must go to its recorded topic %d, got %d", topic, f.client.forwards[0].threadID)
	}
	if f.client.forwards[1].threadID != 0 {
		t.Errorf("second entry must go to the default thread, got %d", f.client.forwards[1].threadID)
	}
	if f.led.Len() != 0 {
		t.Error("ledger must be empty after replay")
	}
}

func TestEndNightComplianceReport(t *testing.T) {
	f := newFixture(t, true)
	join := at(1, 10)

	// Two active members: one registered, one not. One former member.
	for id := int64(1); id <= 3; id++ {
		if err := f.reg.UpsertOnGroupJoin(id, domain.Display{FirstName: "Член"}, join); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.reg.MarkBotRegistered(1, join.Add(time.Hour)); err != nil {
		t.Fatal(err)
	}
	f.client.statuses[1] = platform.StatusMember
	f.client.statuses[2] = platform.StatusMember
	// id 3 is absent from statuses: lookup normalizes to left.

	f.controller.Tick(at(4, 8)) // Tuesday: no payment reminder

	if active := f.reg.ActiveMembers(); len(active) != 2 {
		t.Errorf("roster refresh must deactivate departed members, %d active", len(active))
	}

	if len(f.client.sends) != 1 {
		t.Fatalf("expected only the all-clear on a Tuesday, got %d sends", len(f.client.sends))
	}
	report := f.client.sends[0].text
	// Registered count is 1 member + the bot itself, of 50.
	if !strings.Contains(report, "2") || !strings.Contains(report, "50") {
		t.Errorf("report must carry the counts: %q", report)
	}
	if !strings.Contains(report, "tg://user?id=2") {
		t.Errorf("report must name the unregistered member: %q", report)
	}
}

func TestEndNightPaymentReminder(t *testing.T) {
	f := newFixture(t, true)
	f.controller.Tick(at(3, 8)) // Monday morning

	var found bool
	for _, s := range f.client.sends {
		if s.text == textPaymentReminder {
			found = true
		}
	}
	if !found {
		t.Error("Monday morning must carry the payment reminder")
	}

	tue := newFixture(t, true)
	tue.controller.Tick(at(4, 8))
	for _, s := range tue.client.sends {
		if s.text == textPaymentReminder {
			t.Error("Tuesday must not carry the payment reminder")
		}
	}
}

func TestMissedBoundaryReconciles(t *testing.T) {
	// Process was down over the 8:00 boundary; flag still says night.
	f := newFixture(t, true)
	f.controller.Tick(at(4, 12))
	if f.state.IsNight() {
		t.Error("a midday tick after downtime must still end night mode")
	}
}
