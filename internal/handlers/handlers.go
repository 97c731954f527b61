package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/middleware"
	"caku/internal/security"
	"caku/internal/service"
)

// Checker probes one dependency for /healthz.
type Checker func(ctx context.Context) error

type HandlerSet struct {
	log      zerolog.Logger
	env      string
	secret   string
	ledger   *service.LedgerService
	auth     *service.AuthService
	wishlist *service.WishlistService
	checks   map[string]Checker
}

type Options struct {
	Environment string
	JWTSecret   string
	Ledger      *service.LedgerService
	Auth        *service.AuthService
	Wishlist    *service.WishlistService
	Checks      map[string]Checker
}

func NewHandlerSet(log zerolog.Logger, opts Options) HandlerSet {
	return HandlerSet{
		log:      log,
		env:      opts.Environment,
		secret:   opts.JWTSecret,
		ledger:   opts.Ledger,
		auth:     opts.Auth,
		wishlist: opts.Wishlist,
		checks:   opts.Checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")
	v1.Use(
		middleware.Auth(h.secret, h.auth),
		middleware.RequireScope(security.DashboardScope),
	)
	{
		v1.GET("/me", h.Me)
		v1.GET("/transactions", h.ListTransactions)
		v1.GET("/summary", h.Summary)
		v1.GET("/categories", h.Categories)
		v1.GET("/wishlist", h.Wishlist)
	}

	admin := v1.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.auth.IsAdmin))
	admin.GET("/tokens", h.AdminListTokens)
	admin.POST("/tokens", h.AdminIssueToken)
}

var statusByKind = map[apperr.Kind]int{
	apperr.KindValidation:    http.StatusBadRequest,
	apperr.KindAuthorization: http.StatusForbidden,
	apperr.KindNotFound:      http.StatusNotFound,
	apperr.KindStateConflict: http.StatusConflict,
	apperr.KindDownstream:    http.StatusBadGateway,
}

// respondError maps the error taxonomy onto HTTP. Untyped errors are logged
// and hidden behind a generic body.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_server_error"})
		return
	}
	if e.Kind == apperr.KindDownstream {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("downstream failure")
	}
	c.JSON(statusByKind[e.Kind], gin.H{"error": e.Kind.String(), "message": e.Message})
}
