package jobs

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/config"
	"caku/internal/models"
	"caku/internal/service"
	"caku/internal/testutil"
)

var wib = time.FixedZone("WIB", 7*3600)

type message struct {
	To   string
	Text string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []message
	failTo string
}

func (n *recordingNotifier) SendText(_ context.Context, to string, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if to == n.failTo {
		return errors.New("chat not found")
	}
	n.sent = append(n.sent, message{To: to, Text: text})
	return nil
}

func (n *recordingNotifier) byUser() map[string]string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := map[string]string{}
	for _, m := range n.sent {
		out[m.To] = m.Text
	}
	return out
}

type fixedCompleter string

func (c fixedCompleter) Complete(context.Context, string) (string, error) { return string(c), nil }

func newLedger(now time.Time) (*service.LedgerService, *testutil.FakeTransactionStore) {
	clock := func() time.Time { return now }
	txs := testutil.NewFakeTransactionStore(clock)
	ledger := service.NewLedgerService(txs, testutil.NewFakeSettingsStore(), wib, zerolog.Nop()).WithClock(clock)
	return ledger, txs
}

func TestDispatchRemindersMatchesLocalTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 14, 0, 30, 0, time.UTC) // 21:00 WIB
	ledger, _ := newLedger(now)

	_, err := ledger.SetReminder(ctx, "u1", "21:00")
	require.NoError(t, err)
	_, err = ledger.SetReminderMessage(ctx, "u1", "Jangan lupa catat!")
	require.NoError(t, err)
	_, err = ledger.SetReminder(ctx, "u2", "21:00")
	require.NoError(t, err)
	_, err = ledger.SetReminder(ctx, "u3", "08:00")
	require.NoError(t, err)

	_, err = ledger.Add(ctx, models.Transaction{UserID: "u1", Amount: 100000, Description: "gaji", CreatedAt: time.Date(2024, 5, 2, 9, 0, 0, 0, wib)})
	require.NoError(t, err)
	_, err = ledger.Add(ctx, models.Transaction{UserID: "u1", Amount: -30000, Description: "april", CreatedAt: time.Date(2024, 4, 30, 9, 0, 0, 0, wib)})
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	s := NewScheduler(Deps{Ledger: ledger, Notifier: notifier}, config.JobsConfig{}, zerolog.Nop())

	assert.Equal(t, 2, s.DispatchReminders(ctx, now))
	got := notifier.byUser()
	assert.Equal(t, "Jangan lupa catat!\n\nSaldo bulan ini: Rp100.000\nKetik *laporan bulan MM-YYYY* untuk detail.", got["u1"])
	assert.Equal(t, ReminderText("", 0), got["u2"])
	assert.Contains(t, got["u2"], service.DefaultReminderMessage)
	assert.NotContains(t, got, "u3")

	assert.Zero(t, s.DispatchReminders(ctx, now.Add(time.Minute)))
}

func TestDispatchRemindersSkipsFailedUsers(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 15, 1, 0, 0, 0, time.UTC) // 08:00 WIB
	ledger, _ := newLedger(now)
	for _, u := range []string{"a", "b"} {
		_, err := ledger.SetReminder(ctx, u, "08:00")
		require.NoError(t, err)
	}

	notifier := &recordingNotifier{failTo: "a"}
	s := NewScheduler(Deps{Ledger: ledger, Notifier: notifier}, config.JobsConfig{}, zerolog.Nop())

	assert.Equal(t, 1, s.DispatchReminders(ctx, now))
	assert.Contains(t, notifier.byUser(), "b")
}

func TestSendMotivationGreetsAdmins(t *testing.T) {
	ledger, _ := newLedger(time.Now())
	auth := service.NewAuthService(testutil.NewFakeTokenStore(time.Now), []string{"admin-1", "admin-2"}, zerolog.Nop())
	coach := service.NewCoachService(fixedCompleter("Kerja keras bagai kuda."), zerolog.Nop())
	notifier := &recordingNotifier{}

	s := NewScheduler(Deps{Ledger: ledger, Auth: auth, Coach: coach, Notifier: notifier}, config.JobsConfig{}, zerolog.Nop())
	s.SendMotivation(context.Background(), "Selamat pagi! 🌞")

	got := notifier.byUser()
	assert.Len(t, got, 2)
	assert.Equal(t, "Selamat pagi! 🌞 Kerja keras bagai kuda.", got["admin-1"])
}

func TestWishlistRefreshIsQueued(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ledger, _ := newLedger(time.Now())
	s := NewScheduler(Deps{Ledger: ledger, Notifier: &recordingNotifier{}, Queue: client, Stream: "caku:tasks"}, config.JobsConfig{}, zerolog.Nop())
	s.refreshWishlist(context.Background())

	entries, err := client.XRange(context.Background(), "caku:tasks", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "wishlist_refresh", entries[0].Values["type"])
}

func TestStartRejectsBadSpec(t *testing.T) {
	ledger, _ := newLedger(time.Now())
	s := NewScheduler(Deps{Ledger: ledger, Notifier: &recordingNotifier{}}, config.JobsConfig{ReminderSpec: "not a spec"}, zerolog.Nop())
	assert.Error(t, s.Start())

	ok := NewScheduler(Deps{Ledger: ledger, Notifier: &recordingNotifier{}}, config.JobsConfig{ReminderSpec: "0 * * * * *"}, zerolog.Nop())
	require.NoError(t, ok.Start())
	<-ok.Stop().Done()
}

func TestPanickingJobIsRecovered(t *testing.T) {
	ledger, _ := newLedger(time.Now())
	var logs bytes.Buffer
	s := NewScheduler(Deps{Ledger: ledger}, config.JobsConfig{}, zerolog.New(&logs))

	require.NoError(t, s.schedule("@every 1h", "boom", func(context.Context) { panic("boom") }))
	entries := s.cron.Entries()
	require.Len(t, entries, 1)

	assert.NotPanics(t, entries[0].WrappedJob.Run)
	assert.Contains(t, logs.String(), "boom")
	assert.Contains(t, logs.String(), `"level":"error"`)
}
