package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/pathakanu/remindr/internal/database"
	"github.com/pathakanu/remindr/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type sentMessage struct {
	target string
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sentMessage
}

func (n *fakeNotifier) Send(_ context.Context, target, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{target: target, text: text})
	return n.err
}

type fakeCondenser struct {
	out string
	err error
}

func (c fakeCondenser) SummarizeDay(context.Context, []string) (string, error) {
	return c.out, c.err
}

type gateFixture struct {
	db        *gorm.DB
	users     *database.UserStore
	reminders *database.ReminderStore
	notifier  *fakeNotifier
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	db := database.SetupTestDB(t)
	return &gateFixture{
		db:        db,
		users:     database.NewUserStore(db),
		reminders: database.NewReminderStore(db),
		notifier:  &fakeNotifier{},
	}
}

func (f *gateFixture) gate(condenser Condenser, opts Options) *Gate {
	composer := NewComposer(f.reminders, condenser, zerolog.Nop())
	return NewGate(f.users, composer, f.notifier, opts, zerolog.Nop())
}

func (f *gateFixture) addUser(t *testing.T, u model.User) {
	t.Helper()
	if err := f.users.Create(context.Background(), &u); err != nil {
		t.Fatalf("create user %s: %v", u.ID, err)
	}
}

func (f *gateFixture) addReminder(t *testing.T, userID, message string, at time.Time) {
	t.Helper()
	r := model.Reminder{UserID: userID, ChannelTarget: "telegram:1", Message: message, ScheduledAt: at}
	if err := f.reminders.Create(context.Background(), &r); err != nil {
		t.Fatalf("create reminder: %v", err)
	}
}

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	return loc
}

func TestGateSendsOncePerLocalDay(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	ist := mustLoad(t, "Asia/Kolkata")

	f.addUser(t, model.User{ID: "kolkata", ChannelTarget: "telegram:1", IsActive: true,
		Preferences: model.Preferences{DailySummaryTime: "08:00", Timezone: "Asia/Kolkata"}})
	f.addUser(t, model.User{ID: "later", ChannelTarget: "sms:+1", IsActive: true,
		Preferences: model.Preferences{DailySummaryTime: "09:00"}})
	f.addUser(t, model.User{ID: "inactive", ChannelTarget: "sms:+2", IsActive: false,
		Preferences: model.Preferences{DailySummaryTime: "00:00"}})
	f.addUser(t, model.User{ID: "no-pref", ChannelTarget: "sms:+3", IsActive: true})
	f.addUser(t, model.User{ID: "bad-tz", ChannelTarget: "sms:+4", IsActive: true,
		Preferences: model.Preferences{DailySummaryTime: "00:00", Timezone: "Mars/Olympus"}})

	f.addReminder(t, "kolkata", "early task", time.Date(2026, 4, 2, 1, 0, 0, 0, ist))
	f.addReminder(t, "kolkata", "call mom", time.Date(2026, 4, 2, 18, 0, 0, 0, ist))
	f.addReminder(t, "kolkata", "tomorrow thing", time.Date(2026, 4, 3, 9, 0, 0, 0, ist))

	g := f.gate(nil, Options{SummaryHour: -1})
	// 08:15 in Kolkata, 02:45 in UTC
	now := time.Date(2026, 4, 2, 2, 45, 0, 0, time.UTC)

	if err := g.MaybeRun(context.Background(), now); err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected one summary, got %+v", f.notifier.sent)
	}
	msg := f.notifier.sent[0]
	if msg.target != "telegram:1" {
		t.Fatalf("summary sent to %q", msg.target)
	}
	if !strings.HasPrefix(msg.text, header) || !strings.Contains(msg.text, "• 01:00 early task") || !strings.Contains(msg.text, "• 18:00 call mom") {
		t.Fatalf("unexpected summary text %q", msg.text)
	}
	if strings.Contains(msg.text, "tomorrow thing") {
		t.Fatalf("summary includes another day: %q", msg.text)
	}

	var stored model.User
	if err := f.db.First(&stored, "id = ?", "kolkata").Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.LastSummaryDate != "2026-04-02" {
		t.Fatalf("last summary date = %q", stored.LastSummaryDate)
	}

	if err := g.MaybeRun(context.Background(), now.Add(10*time.Minute)); err != nil {
		t.Fatalf("second MaybeRun: %v", err)
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("summary repeated within the same day: %+v", f.notifier.sent)
	}

	if err := g.MaybeRun(context.Background(), now.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("next day MaybeRun: %v", err)
	}
	if len(f.notifier.sent) != 2 || !strings.Contains(f.notifier.sent[1].text, "tomorrow thing") {
		t.Fatalf("expected next day summary, got %+v", f.notifier.sent)
	}
}

func TestGateClaimsBeforeSending(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	f.notifier.err = errors.New("provider down")
	f.addUser(t, model.User{ID: "u1", ChannelTarget: "sms:+1", IsActive: true,
		Preferences: model.Preferences{DailySummaryTime: "07:30"}})
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	f.addReminder(t, "u1", "standup", now.Add(time.Hour))

	g := f.gate(nil, Options{SummaryHour: -1})
	for i := 0; i < 2; i++ {
		if err := g.MaybeRun(context.Background(), now.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("MaybeRun %d: %v", i, err)
		}
	}
	if len(f.notifier.sent) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(f.notifier.sent))
	}
}

func TestGateEmptyDaySendsNothing(t *testing.T) {
	t.Parallel()
	f := newGateFixture(t)
	f.addUser(t, model.User{ID: "u1", ChannelTarget: "sms:+1", IsActive: true,
		Preferences: model.Preferences{DailySummaryTime: "07:30"}})

	g := f.gate(nil, Options{SummaryHour: -1})
	if err := g.MaybeRun(context.Background(), time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("unexpected summary %+v", f.notifier.sent)
	}
}

func TestGateUsesCondenser(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		condenser fakeCondenser
		want      string
	}{
		{name: "digest", condenser: fakeCondenser{out: "Busy day: standup at 9."}, want: header + "Busy day: standup at 9."},
		{name: "fallback", condenser: fakeCondenser{err: errors.New("rate limited")}, want: header + "• 09:00 standup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGateFixture(t)
			f.addUser(t, model.User{ID: "u1", ChannelTarget: "sms:+1", IsActive: true,
				Preferences: model.Preferences{DailySummaryTime: "07:30"}})
			f.addReminder(t, "u1", "standup", now.Add(time.Hour))

			if err := f.gate(tt.condenser, Options{SummaryHour: -1}).MaybeRun(context.Background(), now); err != nil {
				t.Fatalf("MaybeRun: %v", err)
			}
			if len(f.notifier.sent) != 1 || f.notifier.sent[0].text != tt.want {
				t.Fatalf("got %+v, want text %q", f.notifier.sent, tt.want)
			}
		})
	}
}

type stubUsers struct {
	calls int
	err   error
}

func (s *stubUsers) FindAll(context.Context) ([]model.User, error) {
	s.calls++
	return nil, s.err
}

func (s *stubUsers) ClaimSummary(context.Context, string, string) (bool, error) {
	return false, errors.New("unexpected claim")
}

func TestGateHourPreFilter(t *testing.T) {
	t.Parallel()
	users := &stubUsers{}
	g := NewGate(users, nil, &fakeNotifier{}, Options{SummaryHour: 9}, zerolog.Nop())

	if err := g.MaybeRun(context.Background(), time.Date(2026, 4, 2, 8, 59, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if users.calls != 0 {
		t.Fatalf("gate opened outside the configured hour")
	}
	if err := g.MaybeRun(context.Background(), time.Date(2026, 4, 2, 9, 5, 0, 0, time.UTC)); err != nil {
		t.Fatalf("MaybeRun: %v", err)
	}
	if users.calls != 1 {
		t.Fatalf("gate stayed closed inside the configured hour")
	}
}

func TestGateLoadFailure(t *testing.T) {
	t.Parallel()
	boom := errors.New("users table missing")
	g := NewGate(&stubUsers{err: boom}, nil, &fakeNotifier{}, Options{SummaryHour: -1}, zerolog.Nop())

	if err := g.MaybeRun(context.Background(), time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
}

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in     string
		hour   int
		minute int
		ok     bool
	}{
		{in: "08:00", hour: 8, ok: true},
		{in: " 23:59 ", hour: 23, minute: 59, ok: true},
		{in: "7:05", hour: 7, minute: 5, ok: true},
		{in: "24:00"},
		{in: "12:60"},
		{in: "noon"},
		{in: ""},
	}
	for _, tt := range tests {
		hour, minute, err := parseClock(tt.in)
		if tt.ok != (err == nil) {
			t.Fatalf("parseClock(%q) error = %v", tt.in, err)
		}
		if tt.ok && (hour != tt.hour || minute != tt.minute) {
			t.Fatalf("parseClock(%q) = %d:%d", tt.in, hour, minute)
		}
	}
}
