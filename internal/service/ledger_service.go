package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"caku/internal/apperr"
	"caku/internal/models"
	"caku/internal/repository"
)

const (
	DefaultReminderMessage = "⏰ Reminder catat keuangan hari ini!"
	defaultReminderTime    = "00:00"
	summaryRowLimit        = 100
	exportRowLimit         = 5000
)

var reminderTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Stats struct {
	Count          int
	Categories     int
	Income         int64
	Expense        int64
	AveragePerItem decimal.Decimal
}

type TargetProgress struct {
	Target  int64
	Saved   int64
	Percent decimal.Decimal
}

type MonthTotal struct {
	Month time.Month
	Year  int
	Total int64
	Count int
}

type LedgerService struct {
	tx       TransactionStore
	settings SettingsStore
	loc      *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

func NewLedgerService(tx TransactionStore, settings SettingsStore, loc *time.Location, log zerolog.Logger) *LedgerService {
	if loc == nil {
		loc = time.UTC
	}
	return &LedgerService{
		tx:       tx,
		settings: settings,
		loc:      loc,
		now:      time.Now,
		log:      log,
	}
}

func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func (s *LedgerService) Location() *time.Location {
	return s.loc
}

func (s *LedgerService) Now() time.Time {
	return s.now().In(s.loc)
}

// MonthRange turns a calendar month into a [since, until) filter.
func (s *LedgerService) MonthRange(year int, month time.Month) models.TransactionFilter {
	since := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
	until := since.AddDate(0, 1, 0)
	return models.TransactionFilter{Since: &since, Until: &until}
}

// ParseMonth accepts MM-YYYY.
func (s *LedgerService) ParseMonth(raw string) (int, time.Month, error) {
	t, err := time.ParseInLocation("01-2006", strings.TrimSpace(raw), s.loc)
	if err != nil {
		return 0, 0, apperr.Validation("Format bulan: MM-YYYY")
	}
	return t.Year(), t.Month(), nil
}

func (s *LedgerService) CurrentMonth() models.TransactionFilter {
	now := s.Now()
	return s.MonthRange(now.Year(), now.Month())
}

func (s *LedgerService) Today() models.TransactionFilter {
	now := s.Now()
	since := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	until := since.AddDate(0, 0, 1)
	return models.TransactionFilter{Since: &since, Until: &until}
}

// ThisWeek starts on Sunday.
func (s *LedgerService) ThisWeek() models.TransactionFilter {
	now := s.Now()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	since := day.AddDate(0, 0, -int(day.Weekday()))
	until := since.AddDate(0, 0, 7)
	return models.TransactionFilter{Since: &since, Until: &until}
}

func (s *LedgerService) Add(ctx context.Context, tx models.Transaction) (int64, error) {
	if tx.Amount == 0 {
		return 0, ErrInvalidAmount
	}
	if strings.TrimSpace(tx.Description) == "" {
		tx.Description = "-"
	}
	id, err := s.tx.Insert(ctx, tx)
	if err != nil {
		return 0, apperr.Downstream("gagal mencatat transaksi", err)
	}
	return id, nil
}

// Edit only touches rows owned by tx.UserID.
func (s *LedgerService) Edit(ctx context.Context, tx models.Transaction) error {
	if tx.Amount == 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(tx.Description) == "" {
		tx.Description = "-"
	}
	n, err := s.tx.Update(ctx, tx)
	if err != nil {
		return apperr.Downstream("gagal mengubah transaksi", err)
	}
	if n == 0 {
		return ErrTransactionAbsent
	}
	return nil
}

func (s *LedgerService) Delete(ctx context.Context, userID string, id int64) error {
	n, err := s.tx.Delete(ctx, id, userID)
	if err != nil {
		return apperr.Downstream("gagal menghapus transaksi", err)
	}
	if n == 0 {
		return ErrTransactionAbsent
	}
	return nil
}

func (s *LedgerService) Reset(ctx context.Context, userID string) (int64, error) {
	n, err := s.tx.DeleteAll(ctx, userID)
	if err != nil {
		return 0, apperr.Downstream("gagal menghapus transaksi", err)
	}
	s.log.Info().Str("user_id", userID).Int64("rows", n).Msg("ledger reset")
	return n, nil
}

func (s *LedgerService) List(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	rows, err := s.tx.Query(ctx, userID, filter)
	if err != nil {
		return nil, apperr.Downstream("gagal memuat transaksi", err)
	}
	return rows, nil
}

// All returns up to the export cap, newest first.
func (s *LedgerService) All(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.Transaction, error) {
	filter.Limit = exportRowLimit
	return s.List(ctx, userID, filter)
}

func (s *LedgerService) Summary(ctx context.Context, userID string, filter models.TransactionFilter) (models.Summary, error) {
	balance, err := s.tx.Balance(ctx, userID, filter)
	if err != nil {
		return models.Summary{}, apperr.Downstream("gagal menghitung saldo", err)
	}
	filter.Limit = summaryRowLimit
	rows, err := s.List(ctx, userID, filter)
	if err != nil {
		return models.Summary{}, err
	}
	return models.Summary{Balance: balance, Rows: rows}, nil
}

func (s *LedgerService) Balance(ctx context.Context, userID string, filter models.TransactionFilter) (int64, error) {
	balance, err := s.tx.Balance(ctx, userID, filter)
	if err != nil {
		return 0, apperr.Downstream("gagal menghitung saldo", err)
	}
	return balance, nil
}

// CategoryTotals is ordered by absolute total, largest first.
func (s *LedgerService) CategoryTotals(ctx context.Context, userID string, filter models.TransactionFilter) ([]models.CategoryTotal, error) {
	totals, err := s.tx.CategoryTotals(ctx, userID, filter)
	if err != nil {
		return nil, apperr.Downstream("gagal menghitung kategori", err)
	}
	sort.SliceStable(totals, func(i, j int) bool {
		return abs(totals[i].Total) > abs(totals[j].Total)
	})
	return totals, nil
}

// Categories lists distinct non-empty category names in first-seen order.
func (s *LedgerService) Categories(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.All(ctx, userID, models.TransactionFilter{})
	if err != nil {
		return nil, err
	}
	return distinctCategories(rows), nil
}

func (s *LedgerService) Search(ctx context.Context, userID string, keyword string) ([]models.Transaction, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.Validation("Format: cari <kata>")
	}
	return s.All(ctx, userID, models.TransactionFilter{Keyword: keyword})
}

func (s *LedgerService) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := s.All(ctx, userID, models.TransactionFilter{})
	if err != nil {
		return Stats{}, err
	}
	st := Stats{Count: len(rows), Categories: len(distinctCategories(rows))}
	for _, r := range rows {
		if r.Amount > 0 {
			st.Income += r.Amount
		} else {
			st.Expense += -r.Amount
		}
	}
	st.AveragePerItem = Average(st.Income-st.Expense, st.Count).Abs()
	return st, nil
}

// Yearly returns the twelve month totals of year.
func (s *LedgerService) Yearly(ctx context.Context, userID string, year int) ([]MonthTotal, error) {
	out := make([]MonthTotal, 0, 12)
	for m := time.January; m <= time.December; m++ {
		filter := s.MonthRange(year, m)
		total, err := s.Balance(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		rows, err := s.All(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, MonthTotal{Month: m, Year: year, Total: total, Count: len(rows)})
	}
	return out, nil
}

func (s *LedgerService) SetTarget(ctx context.Context, userID string, target int64) error {
	if target <= 0 {
		return ErrInvalidTarget
	}
	if err := s.settings.UpsertTarget(ctx, userID, target); err != nil {
		return apperr.Downstream("gagal menyimpan target", err)
	}
	return nil
}

// Progress compares the all-time balance with the savings target. Percent
// is capped at 100.
func (s *LedgerService) Progress(ctx context.Context, userID string) (TargetProgress, error) {
	settings, err := s.getSettings(ctx, userID)
	if err != nil {
		return TargetProgress{}, err
	}
	if settings.Target == nil || *settings.Target <= 0 {
		return TargetProgress{}, apperr.NotFound("Belum ada target. Set target dengan: target 10000000")
	}
	saved, err := s.Balance(ctx, userID, models.TransactionFilter{})
	if err != nil {
		return TargetProgress{}, err
	}
	return TargetProgress{
		Target:  *settings.Target,
		Saved:   saved,
		Percent: decimal.Min(Percent(saved, *settings.Target), decimal.NewFromInt(100)),
	}, nil
}

func (s *LedgerService) Settings(ctx context.Context, userID string) (models.Settings, error) {
	return s.getSettings(ctx, userID)
}

// SetReminder keeps any previously stored message.
func (s *LedgerService) SetReminder(ctx context.Context, userID string, hhmm string) (string, error) {
	if !reminderTimePattern.MatchString(hhmm) {
		return "", ErrInvalidReminder
	}
	settings, err := s.getSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	msg := ""
	if settings.ReminderMsg != nil {
		msg = *settings.ReminderMsg
	}
	if err := s.settings.UpsertReminder(ctx, userID, &hhmm, msg); err != nil {
		return "", apperr.Downstream("gagal menyimpan reminder", err)
	}
	return msg, nil
}

func (s *LedgerService) DisableReminder(ctx context.Context, userID string) error {
	settings, err := s.getSettings(ctx, userID)
	if err != nil {
		return err
	}
	msg := ""
	if settings.ReminderMsg != nil {
		msg = *settings.ReminderMsg
	}
	if err := s.settings.UpsertReminder(ctx, userID, nil, msg); err != nil {
		return apperr.Downstream("gagal menyimpan reminder", err)
	}
	return nil
}

// SetReminderMessage stores msg and returns the active reminder time,
// defaulting to 00:00 when none was set.
func (s *LedgerService) SetReminderMessage(ctx context.Context, userID string, msg string) (string, error) {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", apperr.Validation("Format: reminder pesan <teks>")
	}
	settings, err := s.getSettings(ctx, userID)
	if err != nil {
		return "", err
	}
	at := defaultReminderTime
	if settings.ReminderTime != nil {
		at = *settings.ReminderTime
	}
	if err := s.settings.UpsertReminder(ctx, userID, &at, msg); err != nil {
		return "", apperr.Downstream("gagal menyimpan reminder", err)
	}
	return at, nil
}

// DueReminders returns the users whose reminder time equals now's HH:mm in
// the bot time zone.
func (s *LedgerService) DueReminders(ctx context.Context, now time.Time) ([]models.ReminderSetting, error) {
	all, err := s.settings.ListWithReminder(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	clock := now.In(s.loc).Format("15:04")
	var due []models.ReminderSetting
	for _, r := range all {
		if r.ReminderTime == clock {
			due = append(due, r)
		}
	}
	return due, nil
}

func (s *LedgerService) getSettings(ctx context.Context, userID string) (models.Settings, error) {
	settings, err := s.settings.Get(ctx, userID)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return models.Settings{UserID: userID}, nil
	}
	if err != nil {
		return models.Settings{}, apperr.Downstream("gagal memuat pengaturan", err)
	}
	return settings, nil
}

// SplitBill divides total between payer and others, rounding half up.
func SplitBill(total int64, participants int) int64 {
	if participants <= 0 {
		return total
	}
	return decimal.NewFromInt(total).
		Div(decimal.NewFromInt(int64(participants))).
		Round(0).
		IntPart()
}

// Percent returns part/whole*100 rounded to whole percent.
func Percent(part, whole int64) decimal.Decimal {
	if whole == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(whole)).
		Round(0)
}

func Average(total int64, n int) decimal.Decimal {
	if n == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(total).Div(decimal.NewFromInt(int64(n))).Round(0)
}

func distinctCategories(rows []models.Transaction) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range rows {
		if r.Category == nil {
			continue
		}
		c := strings.TrimSpace(*r.Category)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
