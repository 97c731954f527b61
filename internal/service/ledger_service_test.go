package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"caku/internal/models"
	"caku/internal/testutil"
)

var wib = time.FixedZone("WIB", 7*60*60)

func newLedger(t *testing.T) (*LedgerService, *testutil.FakeTransactionStore, *testutil.FakeSettingsStore, *testutil.Clock) {
	t.Helper()
	clock := testutil.NewClock(time.Date(2024, 5, 15, 10, 0, 0, 0, wib))
	txs := testutil.NewFakeTransactionStore(clock.Now)
	settings := testutil.NewFakeSettingsStore()
	svc := NewLedgerService(txs, settings, wib, zerolog.Nop()).WithClock(clock.Now)
	return svc, txs, settings, clock
}

func strPtr(s string) *string { return &s }

func TestOwnershipIsolation(t *testing.T) {
	svc, txs, _, _ := newLedger(t)
	ctx := context.Background()

	id, err := svc.Add(ctx, models.Transaction{UserID: "alice", Amount: -5000, Description: "kopi"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "bob", id), ErrTransactionAbsent)
	assert.ErrorIs(t, svc.Edit(ctx, models.Transaction{ID: id, UserID: "bob", Amount: -1, Description: "hijack"}), ErrTransactionAbsent)

	rows := txs.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, int64(-5000), rows[0].Amount)
	assert.Equal(t, "kopi", rows[0].Description)

	bobRows, err := svc.List(ctx, "bob", models.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, bobRows)

	n, err := svc.Reset(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, txs.Rows(), 1)

	require.NoError(t, svc.Edit(ctx, models.Transaction{ID: id, UserID: "alice", Amount: -7000, Description: "kopi susu"}))
	require.NoError(t, svc.Delete(ctx, "alice", id))
	assert.Empty(t, txs.Rows())
}

func TestAddRejectsZeroAmount(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	_, err := svc.Add(context.Background(), models.Transaction{UserID: "u1", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMonthSummary(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	ctx := context.Background()

	add := func(amount int64, at time.Time) {
		_, err := svc.Add(ctx, models.Transaction{UserID: "u1", Amount: amount, Description: "x", CreatedAt: at})
		require.NoError(t, err)
	}
	add(1_000_000, time.Date(2024, 4, 30, 23, 59, 0, 0, wib))
	add(200_000, time.Date(2024, 5, 1, 0, 0, 0, 0, wib))
	add(-50_000, time.Date(2024, 5, 31, 23, 0, 0, 0, wib))
	add(-1, time.Date(2024, 6, 1, 0, 0, 0, 0, wib))

	summary, err := svc.Summary(ctx, "u1", svc.CurrentMonth())
	require.NoError(t, err)
	assert.Equal(t, int64(150_000), summary.Balance)
	assert.Len(t, summary.Rows, 2)

	year, month, err := svc.ParseMonth("04-2024")
	require.NoError(t, err)
	april, err := svc.Balance(ctx, "u1", svc.MonthRange(year, month))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), april)

	_, _, err = svc.ParseMonth("2024-04")
	assert.Error(t, err)
}

func TestTodayAndWeek(t *testing.T) {
	svc, _, _, _ := newLedger(t)

	today := svc.Today()
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, wib), *today.Since)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 0, 0, 0, wib), *today.Until)

	week := svc.ThisWeek()
	assert.Equal(t, time.Sunday, week.Since.Weekday())
	assert.Equal(t, time.Date(2024, 5, 12, 0, 0, 0, 0, wib), *week.Since)
}

func TestCategoriesAndSearch(t *testing.T) {
	svc, _, _, clock := newLedger(t)
	ctx := context.Background()

	for _, tx := range []models.Transaction{
		{UserID: "u1", Amount: -20_000, Description: "nasi padang", Category: strPtr("makan")},
		{UserID: "u1", Amount: -100_000, Description: "bensin motor", Category: strPtr("transport")},
		{UserID: "u1", Amount: -15_000, Description: "Nasi uduk", Category: strPtr("makan")},
		{UserID: "u1", Amount: 500_000, Description: "freelance"},
	} {
		clock.Advance(time.Minute)
		_, err := svc.Add(ctx, tx)
		require.NoError(t, err)
	}

	cats, err := svc.Categories(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"makan", "transport"}, cats)

	found, err := svc.Search(ctx, "u1", "nasi")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	totals, err := svc.CategoryTotals(ctx, "u1", models.TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, totals, 3)
	assert.Nil(t, totals[0].Category)
	assert.Equal(t, "transport", *totals[1].Category)
	assert.Equal(t, int64(-35_000), totals[2].Total)

	st, err := svc.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, 2, st.Categories)
	assert.Equal(t, int64(500_000), st.Income)
	assert.Equal(t, int64(135_000), st.Expense)
	assert.True(t, decimal.NewFromInt(91_250).Equal(st.AveragePerItem))
}

func TestYearly(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, models.Transaction{UserID: "u1", Amount: 10, CreatedAt: time.Date(2024, 2, 10, 0, 0, 0, 0, wib)})
	require.NoError(t, err)

	months, err := svc.Yearly(ctx, "u1", 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.Equal(t, int64(10), months[1].Total)
	assert.Equal(t, 1, months[1].Count)
	assert.Zero(t, months[0].Count)
}

func TestTargetProgress(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := svc.Progress(ctx, "u1")
	assert.Error(t, err)
	assert.ErrorIs(t, svc.SetTarget(ctx, "u1", 0), ErrInvalidTarget)

	require.NoError(t, svc.SetTarget(ctx, "u1", 1_000_000))
	_, err = svc.Add(ctx, models.Transaction{UserID: "u1", Amount: 250_000, Description: "gaji"})
	require.NoError(t, err)

	p, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(250_000), p.Saved)
	assert.True(t, decimal.NewFromInt(25).Equal(p.Percent))

	_, err = svc.Add(ctx, models.Transaction{UserID: "u1", Amount: 5_000_000, Description: "bonus"})
	require.NoError(t, err)
	p, err = svc.Progress(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(p.Percent))
}

func TestReminderSettings(t *testing.T) {
	svc, _, settings, _ := newLedger(t)
	ctx := context.Background()

	_, err := svc.SetReminder(ctx, "u1", "24:00")
	assert.ErrorIs(t, err, ErrInvalidReminder)
	_, err = svc.SetReminder(ctx, "u1", "7:00")
	assert.ErrorIs(t, err, ErrInvalidReminder)

	at, err := svc.SetReminderMessage(ctx, "u1", "catat ya")
	require.NoError(t, err)
	assert.Equal(t, "00:00", at)

	msg, err := svc.SetReminder(ctx, "u1", "21:30")
	require.NoError(t, err)
	assert.Equal(t, "catat ya", msg)

	stored, err := settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "21:30", *stored.ReminderTime)

	require.NoError(t, svc.DisableReminder(ctx, "u1"))
	stored, err = settings.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderTime)
	assert.Equal(t, "catat ya", *stored.ReminderMsg)
}

func TestDueRemindersUsesBotTimezone(t *testing.T) {
	svc, _, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := svc.SetReminder(ctx, "u1", "21:30")
	require.NoError(t, err)
	_, err = svc.SetReminder(ctx, "u2", "08:00")
	require.NoError(t, err)

	due, err := svc.DueReminders(ctx, time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "u1", due[0].UserID)

	due, err = svc.DueReminders(ctx, time.Date(2024, 5, 15, 14, 31, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestSplitBillAndPercent(t *testing.T) {
	assert.Equal(t, int64(33_333), SplitBill(100_000, 3))
	assert.Equal(t, int64(50_000), SplitBill(100_000, 2))
	assert.Equal(t, int64(3), SplitBill(5, 2))
	assert.Equal(t, int64(100), SplitBill(100, 0))

	assert.True(t, decimal.NewFromInt(33).Equal(Percent(1, 3)))
	assert.True(t, decimal.Zero.Equal(Percent(10, 0)))
}
