package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/models"
	"caku/internal/repository"
	"caku/internal/security"
)

const (
	DefaultTokenDays = 3
	accessCodeLength = 8
	issueAttempts    = 5
	maxReapsPerCheck = 8
)

type TokenStatus string

const (
	TokenUnused   TokenStatus = "unused"
	TokenActive   TokenStatus = "active"
	TokenInactive TokenStatus = "inactive"
	TokenLapsed   TokenStatus = "expired"
)

// TokenView is a listing row for administrators.
type TokenView struct {
	Token         string
	OwnerID       string
	Status        TokenStatus
	RemainingDays int
	ExpiresInDays int
}

type AuthService struct {
	tokens TokenStore
	admins map[string]struct{}
	now    func() time.Time
	log    zerolog.Logger
}

func NewAuthService(tokens TokenStore, admins []string, log zerolog.Logger) *AuthService {
	set := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		a = strings.TrimSpace(a)
		if a != "" {
			set[a] = struct{}{}
		}
	}
	return &AuthService{
		tokens: tokens,
		admins: set,
		now:    time.Now,
		log:    log,
	}
}

// WithClock swaps the time source.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// IsAdmin compares the literal sender identity against the configured set.
func (s *AuthService) IsAdmin(userID string) bool {
	_, ok := s.admins[userID]
	return ok
}

func (s *AuthService) Admins() []string {
	out := make([]string, 0, len(s.admins))
	for id := range s.admins {
		out = append(out, id)
	}
	return out
}

func (s *AuthService) IssueToken(ctx context.Context, days int) (models.AccessToken, error) {
	if days <= 0 {
		days = DefaultTokenDays
	}

	for attempt := 0; attempt < issueAttempts; attempt++ {
		code, err := security.GenerateAccessCode(accessCodeLength)
		if err != nil {
			return models.AccessToken{}, apperr.Downstream("gagal membuat token", err)
		}

		tok := models.AccessToken{Token: code, ExpiresInDays: days, CreatedAt: s.now()}
		err = s.tokens.Create(ctx, tok)
		if err == nil {
			s.log.Info().Str("token", code).Int("days", days).Msg("access token issued")
			return tok, nil
		}
		if !errors.Is(err, repository.ErrTokenDuplicate) {
			return models.AccessToken{}, apperr.Downstream("gagal menyimpan token", err)
		}
	}
	return models.AccessToken{}, apperr.Downstream("gagal membuat token", fmt.Errorf("no unique code after %d attempts", issueAttempts))
}

// Redeem binds code to userID. It succeeds at most once per code.
func (s *AuthService) Redeem(ctx context.Context, userID string, code string) (models.AccessToken, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return models.AccessToken{}, ErrTokenInvalid
	}

	tok, err := s.tokens.Activate(ctx, code, userID)
	switch {
	case err == nil:
		s.log.Info().Str("user_id", userID).Str("token", code).Msg("access token redeemed")
		return tok, nil
	case errors.Is(err, repository.ErrTokenNotFound):
		return models.AccessToken{}, ErrTokenInvalid
	case errors.Is(err, repository.ErrTokenRedeemed):
		return models.AccessToken{}, ErrTokenAlreadyUsed
	default:
		return models.AccessToken{}, apperr.Downstream("gagal mengaktifkan token", err)
	}
}

// TokenExpired reports whether whole days since activation reached the
// token lifetime. Unredeemed tokens never expire.
func TokenExpired(tok models.AccessToken, now time.Time) bool {
	if !tok.Redeemed() {
		return false
	}
	return tok.DaysSinceActivation(now) >= tok.ExpiresInDays
}

// ReapExpired clears the active flag; repeating it is harmless.
func (s *AuthService) ReapExpired(ctx context.Context, tok models.AccessToken) error {
	if err := s.tokens.Deactivate(ctx, tok.Token); err != nil {
		return fmt.Errorf("reap token %s: %w", tok.Token, err)
	}
	s.log.Info().Str("token", tok.Token).Msg("access token expired")
	return nil
}

func (s *AuthService) IsAuthorized(ctx context.Context, userID string) (bool, error) {
	now := s.now()
	for i := 0; i < maxReapsPerCheck; i++ {
		tok, err := s.tokens.FindActiveByOwner(ctx, userID)
		if errors.Is(err, repository.ErrTokenNotFound) {
			return false, nil
		}
		if err != nil {
			return false, apperr.Downstream("gagal memeriksa token", err)
		}
		if !TokenExpired(tok, now) {
			return true, nil
		}
		if err := s.ReapExpired(ctx, tok); err != nil {
			return false, apperr.Downstream("gagal memeriksa token", err)
		}
	}
	return false, nil
}

// Deactivate revokes every active token bound to ownerID.
func (s *AuthService) Deactivate(ctx context.Context, ownerID string) error {
	n, err := s.tokens.DeactivateOwner(ctx, ownerID)
	if err != nil {
		return apperr.Downstream("gagal menonaktifkan user", err)
	}
	if n == 0 {
		return ErrNoActiveToken
	}
	s.log.Info().Str("user_id", ownerID).Int64("tokens", n).Msg("user deactivated")
	return nil
}

func (s *AuthService) ListTokens(ctx context.Context) ([]TokenView, error) {
	tokens, err := s.tokens.List(ctx)
	if err != nil {
		return nil, apperr.Downstream("gagal memuat daftar token", err)
	}

	now := s.now()
	views := make([]TokenView, 0, len(tokens))
	for _, tok := range tokens {
		view := TokenView{Token: tok.Token, ExpiresInDays: tok.ExpiresInDays}
		if tok.OwnerID != nil {
			view.OwnerID = *tok.OwnerID
		}
		switch {
		case !tok.Redeemed():
			view.Status = TokenUnused
		case !tok.Active:
			view.Status = TokenInactive
		case TokenExpired(tok, now):
			view.Status = TokenLapsed
		default:
			view.Status = TokenActive
			view.RemainingDays = tok.ExpiresInDays - tok.DaysSinceActivation(now)
		}
		views = append(views, view)
	}
	return views, nil
}
