package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"caku/internal/bot"
	"caku/internal/config"
	"caku/internal/metrics"
	"caku/internal/service"
	"caku/internal/tasks"
)

const jobTimeout = 50 * time.Second

type Notifier interface {
	SendText(ctx context.Context, to string, text string) error
}

type Deps struct {
	Ledger   *service.LedgerService
	Auth     *service.AuthService
	Coach    *service.CoachService
	Wishlist *service.WishlistService
	Notifier Notifier
	Metrics  *metrics.Metrics
	// Queue is optional; without it wishlist refreshes run in-process.
	Queue  *redis.Client
	Stream string
}

type Scheduler struct {
	Deps
	cron  *cron.Cron
	specs config.JobsConfig
	now   func() time.Time
	log   zerolog.Logger
}

func NewScheduler(deps Deps, specs config.JobsConfig, log zerolog.Logger) *Scheduler {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(deps.Ledger.Location()),
		cron.WithChain(cron.Recover(cronLogger{log})),
	)
	return &Scheduler{
		Deps:  deps,
		cron:  c,
		specs: specs,
		now:   time.Now,
		log:   log,
	}
}

func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context)
	}{
		{s.specs.ReminderSpec, "reminders", func(ctx context.Context) { s.DispatchReminders(ctx, s.now()) }},
		{s.specs.MorningMotivation, "morning motivation", func(ctx context.Context) { s.SendMotivation(ctx, "Selamat pagi! 🌞") }},
		{s.specs.EveningMotivation, "evening motivation", func(ctx context.Context) { s.SendMotivation(ctx, "Selamat malam! 🌙") }},
		{s.specs.WishlistRefreshSpec, "wishlist refresh", s.refreshWishlist},
	}

	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if err := s.schedule(job.spec, job.name, job.run); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

func (s *Scheduler) schedule(spec, name string, run func(context.Context)) error {
	if _, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		run(ctx)
	}); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// cronLogger routes cron's own messages, including recovered panics, to
// zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// Stop halts the cron loop; the returned context is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// DispatchReminders sends every reminder whose HH:mm matches now. A failing
// user is logged and skipped. It returns how many reminders went out.
func (s *Scheduler) DispatchReminders(ctx context.Context, now time.Time) int {
	due, err := s.Ledger.DueReminders(ctx, now)
	if err != nil {
		s.log.Error().Err(err).Msg("load reminders failed")
		return 0
	}

	local := now.In(s.Ledger.Location())
	month := s.Ledger.MonthRange(local.Year(), local.Month())

	sent := 0
	for _, r := range due {
		balance, err := s.Ledger.Balance(ctx, r.UserID, month)
		if err != nil {
			s.log.Error().Err(err).Str("user_id", r.UserID).Msg("reminder balance failed")
			continue
		}
		if err := s.Notifier.SendText(ctx, r.UserID, ReminderText(r.ReminderMsg, balance)); err != nil {
			s.log.Error().Err(err).Str("user_id", r.UserID).Msg("send reminder failed")
			continue
		}
		s.Metrics.ReminderSent()
		sent++
	}
	if sent > 0 {
		s.log.Info().Int("sent", sent).Str("at", local.Format("15:04")).Msg("reminders dispatched")
	}
	return sent
}

func ReminderText(msg string, balance int64) string {
	if strings.TrimSpace(msg) == "" {
		msg = service.DefaultReminderMessage
	}
	return fmt.Sprintf("%s\n\nSaldo bulan ini: %s\nKetik *laporan bulan MM-YYYY* untuk detail.", msg, bot.Rupiah(balance))
}

// SendMotivation greets every admin with a generated line.
func (s *Scheduler) SendMotivation(ctx context.Context, greeting string) {
	if s.Coach == nil || s.Auth == nil {
		return
	}
	line := s.Coach.Motivation(ctx, "")
	for _, admin := range s.Auth.Admins() {
		if err := s.Notifier.SendText(ctx, admin, greeting+" "+line); err != nil {
			s.log.Error().Err(err).Str("user_id", admin).Msg("send motivation failed")
		}
	}
}

func (s *Scheduler) refreshWishlist(ctx context.Context) {
	if s.Queue != nil {
		if err := tasks.Enqueue(ctx, s.Queue, s.Stream, tasks.TaskPayload{Type: tasks.TypeWishlistRefresh}); err != nil {
			s.log.Error().Err(err).Msg("enqueue wishlist refresh failed")
		}
		return
	}
	if s.Wishlist == nil {
		return
	}
	if err := tasks.NewProcessor(s.Wishlist, s.Notifier, s.Metrics, s.log).RefreshWishlist(ctx, ""); err != nil {
		s.log.Error().Err(err).Msg("wishlist refresh failed")
	}
}
