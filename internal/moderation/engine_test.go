package moderation

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/curfewbot/internal/domain"
	"github.com/example/curfewbot/internal/ledger"
	"github.com/example/curfewbot/internal/platform"
	"github.com/example/curfewbot/internal/store"
)

const (
	testGroupID      = int64(-100200300)
	sosThread        = 113812
	freeThread       = 113831
	nightThread      = 113900
	statusThread     = 113901
	registeredUser   = int64(10)
	unregisteredUser = int64(20)
)

var cutover = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

type fakeRegistry struct {
	registered map[int64]bool
}

func (f *fakeRegistry) IsBotRegistered(id int64) bool { return f.registered[id] }

type fakeNight struct {
	night bool
}

func (f *fakeNight) IsNight() bool { return f.night }

type sendCall struct {
	chatID   int64
	threadID int
	text     string
}

type forwardCall struct {
	fromChatID, toChatID int64
	messageID, threadID  int
}

type fakeClient struct {
	sends    []sendCall
	deletes  []int
	forwards []forwardCall

	nextForwardID int
	forwardErr    error
}

func (f *fakeClient) ChatMember(int64, int64) (platform.Status, error) {
	return platform.StatusMember, nil
}

func (f *fakeClient) MemberCount(int64) (int, error) { return 0, nil }

func (f *fakeClient) Send(chatID int64, threadID int, text string) error {
	f.sends = append(f.sends, sendCall{chatID, threadID, text})
	return nil
}

func (f *fakeClient) Delete(_ int64, messageID int) error {
	f.deletes = append(f.deletes, messageID)
	return nil
}

func (f *fakeClient) Forward(fromChatID, toChatID int64, messageID, threadID int) (int, error) {
	if f.forwardErr != nil {
		return 0, f.forwardErr
	}
	f.forwards = append(f.forwards, forwardCall{fromChatID, toChatID, messageID, threadID})
	f.nextForwardID++
	return f.nextForwardID, nil
}

func newTestEngine(t *testing.T, night bool) (*Engine, *fakeClient, *ledger.Ledger) {
	t.Helper()
	led := ledger.New(store.NewJSONFile[domain.DeferredMessage](
		filepath.Join(t.TempDir(), "ledger.json")))
	if err := led.Load(); err != nil {
		t.Fatal(err)
	}
	client := &fakeClient{}
	eng := NewEngine(Config{
		GroupID:        testGroupID,
		StatusThreadID: statusThread,
		NightThreadID:  nightThread,
		AllowedThreads: map[int]bool{sosThread: true, freeThread: true, nightThread: true, statusThread: true},
		Cutover:        cutover,
	},
		&fakeRegistry{registered: map[int64]bool{registeredUser: true}},
		&fakeNight{night: night},
		led, client, zap.NewNop())
	return eng, client, led
}

func facts(sender int64, thread int, sent time.Time) Facts {
	return Facts{
		MessageID:     500,
		SenderID:      sender,
		SenderName:    "Тест",
		EffectiveTime: sent,
		ThreadID:      thread,
	}
}

func TestDecideRuleOrder(t *testing.T) {
	// Fixed "now": 2024-06-02 10:00, after the cutover, daytime.
	now := time.Date(2024, time.June, 2, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		night  bool
		modify func(*Facts)
		want   Action
		rule   string
	}{
		{
			name:   "admin always allowed even at night and unregistered",
			night:  true,
			modify: func(f *Facts) { f.SenderID = unregisteredUser; f.SenderIsAdmin = true },
			want:   Allow,
			rule:   "admin-pass",
		},
		{
			name:   "stale message ignored",
			night:  true,
			modify: func(f *Facts) { f.SenderID = unregisteredUser; f.EffectiveTime = now.Add(-2 * time.Minute) },
			want:   Ignore,
			rule:   "stale-ignore",
		},
		{
			name:   "unregistered after cutover deleted without redirect",
			night:  false,
			modify: func(f *Facts) { f.SenderID = unregisteredUser; f.ThreadID = 0 },
			want:   DeleteNotify,
			rule:   "registration-gate",
		},
		{
			name:   "registration gate wins over night gate",
			night:  true,
			modify: func(f *Facts) { f.SenderID = unregisteredUser; f.ThreadID = 777 },
			want:   DeleteNotify,
			rule:   "registration-gate",
		},
		{
			name:   "night: allow-listed topic allowed",
			night:  true,
			modify: func(f *Facts) { f.ThreadID = sosThread },
			want:   Allow,
		},
		{
			name:   "night: other topic redirected",
			night:  true,
			modify: func(f *Facts) { f.ThreadID = 777 },
			want:   DeleteRedirect,
			rule:   "night-topic-gate",
		},
		{
			name:   "night: no topic redirected",
			night:  true,
			modify: func(f *Facts) { f.ThreadID = 0 },
			want:   DeleteRedirect,
			rule:   "night-topic-gate",
		},
		{
			name:   "day: registered sender allowed anywhere",
			night:  false,
			modify: func(f *Facts) { f.ThreadID = 777 },
			want:   Allow,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eng, _, _ := newTestEngine(t, tc.night)
			f := facts(registeredUser, 0, now.Add(-10*time.Second))
			tc.modify(&f)
			v := eng.Decide(now, f)
			if v.Action != tc.want {
				t.Fatalf("Decide = %v (rule %s), want %v", v.Action, v.Rule, tc.want)
			}
			if tc.rule != "" && v.Rule != tc.rule {
				t.Errorf("rule = %s, want %s", v.Rule, tc.rule)
			}
		})
	}
}

func TestDecideBeforeCutover(t *testing.T) {
	now := cutover.Add(-24 * time.Hour)
	eng, _, _ := newTestEngine(t, false)
	f := facts(unregisteredUser, 0, now.Add(-5*time.Second))
	if v := eng.Decide(now, f); v.Action != Allow {
		t.Fatalf("before cutover unregistered senders are allowed, got %v", v.Action)
	}
}

func TestEnforceDeleteNotify(t *testing.T) {
	eng, client, led := newTestEngine(t, false)
	f := facts(unregisteredUser, 0, time.Now())

	if err := eng.Enforce(Verdict{Action: DeleteNotify, Rule: "registration-gate"}, f); err != nil {
		t.Fatal(err)
	}

	if len(client.forwards) != 0 {
		t.Error("registration gate must never redirect")
	}
	if led.Len() != 0 {
		t.Error("registration gate must not touch the ledger")
	}
	if len(client.deletes) != 1 || client.deletes[0] != f.MessageID {
		t.Errorf("deletes = %v, want [%d]", client.deletes, f.MessageID)
	}
	if len(client.sends) != 1 || client.sends[0].threadID != statusThread {
		t.Fatalf("exactly one notice in the status topic expected, got %v", client.sends)
	}
}

func TestEnforceDeleteRedirect(t *testing.T) {
	eng, client, led := newTestEngine(t, true)
	f := facts(registeredUser, 777, time.Now())

	if err := eng.Enforce(Verdict{Action: DeleteRedirect, Rule: "night-topic-gate"}, f); err != nil {
		t.Fatal(err)
	}

	if len(client.forwards) != 1 {
		t.Fatalf("forwards = %v, want one", client.forwards)
	}
	fw := client.forwards[0]
	if fw.toChatID != testGroupID || fw.threadID != nightThread || fw.messageID != f.MessageID {
		t.Errorf("forward call mismatch: %+v", fw)
	}

	entries := led.Entries()
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].MessageID != client.nextForwardID {
		t.Errorf("ledger must record the copy's id %d, got %d", client.nextForwardID, entries[0].MessageID)
	}
	if entries[0].OriginTopic == nil || *entries[0].OriginTopic != 777 {
		t.Errorf("ledger must record the origin topic, got %v", entries[0].OriginTopic)
	}

	if len(client.deletes) != 1 || len(client.sends) != 1 {
		t.Errorf("expected one delete and one notice, got %d/%d", len(client.deletes), len(client.sends))
	}
}

func TestEnforceRedirectNoTopic(t *testing.T) {
	eng, _, led := newTestEngine(t, true)
	f := facts(registeredUser, 0, time.Now())
	if err := eng.Enforce(Verdict{Action: DeleteRedirect}, f); err != nil {
		t.Fatal(err)
	}
	if entries := led.Entries(); entries[0].OriginTopic != nil {
		t.Errorf("topicless message must record nil origin, got %v", *entries[0].OriginTopic)
	}
}

func TestEnforceRedirectForwardFailureKeepsOriginal(t *testing.T) {
	eng, client, led := newTestEngine(t, true)
	client.forwardErr = errors.New("telegram: flood control")
	f := facts(registeredUser, 777, time.Now())

	if err := eng.Enforce(Verdict{Action: DeleteRedirect}, f); err == nil {
		t.Fatal("forward failure must surface")
	}
	if len(client.deletes) != 0 {
		t.Error("original must not be deleted when the copy failed")
	}
	if led.Len() != 0 {
		t.Error("nothing to replay when the copy failed")
	}
}

func TestEnforceAllowIsSideEffectFree(t *testing.T) {
	eng, client, _ := newTestEngine(t, true)
	for _, a := range []Action{Allow, Ignore} {
		if err := eng.Enforce(Verdict{Action: a}, facts(registeredUser, 0, time.Now())); err != nil {
			t.Fatal(err)
		}
	}
	if len(client.sends)+len(client.deletes)+len(client.forwards) != 0 {
		t.Error("allow/ignore must have no side effects")
	}
}
