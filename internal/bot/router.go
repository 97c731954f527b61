// Package bot turns inbound chat messages into commands and replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/clients/osint"
	"caku/internal/metrics"
	"caku/internal/service"
)

const (
	defaultHandlerTimeout = 60 * time.Second

	unauthorizedPrompt = "🔒 Kamu belum punya akses.\nKirim token dari admin dengan format: token <KODE>"
	genericFailure     = "⚠️ Terjadi kesalahan. Coba lagi nanti."
	noPendingUpload    = "Tidak ada upload yang menunggu. Ketik: upload video <judul> <local|remote>"
)

var (
	errUnhandledKind = errors.New("unhandled command kind")
	errRateLimited   = errors.New("rate limited")
	errNotConfigured = apperr.Validation("Fitur ini belum dikonfigurasi.")
)

type OSINT interface {
	Run(ctx context.Context, query string) (string, error)
	HunterCheck(ctx context.Context, q osint.HunterQuery) (string, error)
}

type ChartRenderer interface {
	Render(ctx context.Context, labels []string, values []int64, title string) ([]byte, error)
}

// Deps are the collaborators the handlers call. Optional features (OSINT,
// Charts, Coach, Wishlist, Dashboard) may be nil.
type Deps struct {
	Auth      *service.AuthService
	Ledger    *service.LedgerService
	Vault     *service.VaultService
	Wishlist  *service.WishlistService
	Coach     *service.CoachService
	OSINT     OSINT
	Charts    ChartRenderer
	Dashboard *DashboardLinks
	Sender    Sender
	Metrics   *metrics.Metrics
}

type Config struct {
	HandlerTimeout time.Duration
	RateLimit      float64
	RateBurst      int
}

type Router struct {
	Deps
	timeout time.Duration
	limiter *senderLimiter
	log     zerolog.Logger
}

type command struct {
	Kind   Kind
	Sender string
	Args   []string
	Raw    string
}

func (c command) arg(i int) string {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return ""
}

// rest joins the arguments from index i on.
func (c command) rest(i int) string {
	if i >= len(c.Args) {
		return ""
	}
	return strings.Join(c.Args[i:], " ")
}

func NewRouter(deps Deps, cfg Config, log zerolog.Logger) *Router {
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = defaultHandlerTimeout
	}
	return &Router{
		Deps:    deps,
		timeout: cfg.HandlerTimeout,
		limiter: newSenderLimiter(cfg.RateLimit, cfg.RateBurst),
		log:     log,
	}
}

// Handle processes one message. It never panics and never returns an
// error: failures become replies and log lines.
func (r *Router) Handle(ctx context.Context, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	kind := KindUnknown
	outcome := "ok"

	defer func() {
		if rec := recover(); rec != nil {
			outcome = "panic"
			r.log.Error().
				Str("user_id", msg.SenderID).
				Str("kind", kind.String()).
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Msg("command handler panicked")
			r.send(ctx, msg.SenderID, genericFailure)
		}
		r.Metrics.ObserveCommand(kind.String(), outcome, time.Since(start))
	}()

	var err error
	kind, err = r.route(ctx, msg)
	switch {
	case err == nil:
	case errors.Is(err, errRateLimited):
		outcome = "limited"
		r.log.Debug().Str("user_id", msg.SenderID).Msg("message dropped by rate limiter")
	default:
		outcome = "error"
		r.replyError(ctx, msg.SenderID, kind, err)
	}
}

// route applies the dispatch order after the flood limiter: admin verbs,
// global keywords, token redemption, authorization, media, shorthand, then
// the command table.
func (r *Router) route(ctx context.Context, msg Message) (Kind, error) {
	text := strings.TrimSpace(msg.Text)
	fields := strings.Fields(text)
	first := ""
	if len(fields) > 0 {
		first = strings.ToLower(fields[0])
	}
	cmd := command{Sender: msg.SenderID, Raw: text}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}

	if !r.limiter.Allow(msg.SenderID) {
		return KindUnknown, errRateLimited
	}

	if r.Auth.IsAdmin(msg.SenderID) {
		if k := adminKind(first); k != KindUnknown {
			cmd.Kind = k
			return k, r.dispatch(ctx, cmd)
		}
	}

	if isGlobalWord(first) {
		cmd.Kind = KindHelp
		return KindHelp, r.dispatch(ctx, cmd)
	}

	if first == "token" {
		cmd.Kind = KindToken
		return KindToken, r.dispatch(ctx, cmd)
	}

	ok, err := r.Auth.IsAuthorized(ctx, msg.SenderID)
	if err != nil {
		return KindUnknown, err
	}
	if !ok {
		r.send(ctx, msg.SenderID, unauthorizedPrompt)
		return KindUnknown, nil
	}

	if msg.Media != nil {
		consumed, err := r.consumeMedia(ctx, msg)
		if consumed || err != nil || text == "" {
			return KindUpload, err
		}
	}

	if text == "" {
		return KindUnknown, nil
	}

	if shorthandPattern.MatchString(first) {
		cmd.Kind = KindAdd
		return KindAdd, r.dispatch(ctx, cmd)
	}

	cmd.Kind = ParseKind(first)
	if cmd.Kind == KindUnknown {
		return KindUnknown, r.handleHelp(ctx, cmd)
	}
	return cmd.Kind, r.dispatch(ctx, cmd)
}

// dispatch is a total switch over Kind.
func (r *Router) dispatch(ctx context.Context, cmd command) error {
	switch cmd.Kind {
	case KindHelp:
		return r.handleHelp(ctx, cmd)
	case KindAdd:
		return r.handleAdd(ctx, cmd)
	case KindReport:
		return r.handleReport(ctx, cmd)
	case KindChart:
		return r.handleChart(ctx, cmd)
	case KindBalance:
		return r.handleBalance(ctx, cmd)
	case KindCategories:
		return r.handleCategories(ctx, cmd)
	case KindSearch:
		return r.handleSearch(ctx, cmd)
	case KindExpense:
		return r.handleSignedTotal(ctx, cmd, false)
	case KindIncome:
		return r.handleSignedTotal(ctx, cmd, true)
	case KindToday:
		return r.handleToday(ctx, cmd)
	case KindWeek:
		return r.handleWeek(ctx, cmd)
	case KindYearly:
		return r.handleYearly(ctx, cmd)
	case KindRanking:
		return r.handleRanking(ctx, cmd)
	case KindStat:
		return r.handleStat(ctx, cmd)
	case KindReminder:
		return r.handleReminder(ctx, cmd)
	case KindBackup:
		return r.handleBackup(ctx, cmd)
	case KindReset:
		return r.handleReset(ctx, cmd)
	case KindAdvice:
		return r.handleAdvice(ctx, cmd)
	case KindProgress:
		return r.handleProgress(ctx, cmd)
	case KindTarget:
		return r.handleTarget(ctx, cmd)
	case KindDelete:
		return r.handleDelete(ctx, cmd)
	case KindEdit:
		return r.handleEdit(ctx, cmd)
	case KindSplit:
		return r.handleSplit(ctx, cmd)
	case KindMotivation:
		return r.handleMotivation(ctx, cmd)
	case KindOSINT:
		return r.handleOSINT(ctx, cmd)
	case KindHunter:
		return r.handleHunter(ctx, cmd)
	case KindWishlist:
		return r.handleWishlist(ctx, cmd)
	case KindVault:
		return r.handleVault(ctx, cmd)
	case KindUpload:
		return r.handleUpload(ctx, cmd)
	case KindDashboard:
		return r.handleDashboard(ctx, cmd)
	case KindToken:
		return r.handleToken(ctx, cmd)
	case KindIssueToken:
		return r.handleIssueToken(ctx, cmd)
	case KindListUsers:
		return r.handleListUsers(ctx, cmd)
	case KindDeactivate:
		return r.handleDeactivate(ctx, cmd)
	case KindUnknown, kindCount:
		return fmt.Errorf("%w: %s", errUnhandledKind, cmd.Kind)
	}
	return fmt.Errorf("%w: %d", errUnhandledKind, int(cmd.Kind))
}

func (r *Router) replyError(ctx context.Context, to string, kind Kind, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		r.log.Error().Err(err).Str("user_id", to).Str("kind", kind.String()).Msg("command failed")
		r.send(ctx, to, genericFailure)
		return
	}
	if appErr.Kind == apperr.KindDownstream {
		r.log.Error().Err(err).Str("user_id", to).Str("kind", kind.String()).Msg("downstream failure")
		r.send(ctx, to, "⚠️ "+appErr.Message)
		return
	}
	r.log.Debug().Str("user_id", to).Str("kind", kind.String()).Str("reason", appErr.Kind.String()).Msg(appErr.Message)
	r.send(ctx, to, appErr.Message)
}

// send delivers text and only logs delivery failures.
func (r *Router) send(ctx context.Context, to string, text string) {
	if err := r.Sender.SendText(ctx, to, text); err != nil {
		r.log.Warn().Err(err).Str("user_id", to).Msg("send reply")
	}
}

func (r *Router) reply(ctx context.Context, cmd command, text string) error {
	r.send(ctx, cmd.Sender, text)
	return nil
}
