package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"caku/internal/apperr"
	"caku/internal/service"
)

func (r *Router) handleToken(ctx context.Context, cmd command) error {
	if cmd.arg(0) == "" {
		return apperr.Validation("Format: token <KODE>")
	}
	if _, err := r.Auth.Redeem(ctx, cmd.Sender, cmd.arg(0)); err != nil {
		return err
	}
	return r.reply(ctx, cmd, "Token berhasil diaktifkan!")
}

func (r *Router) handleIssueToken(ctx context.Context, cmd command) error {
	days := service.DefaultTokenDays
	if a := cmd.arg(0); a != "" {
		n, err := strconv.Atoi(a)
		if err != nil || n <= 0 {
			return apperr.Validation("Format: buatoken <hari>")
		}
		days = n
	}
	tok, err := r.Auth.IssueToken(ctx, days)
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("🔑 Token baru: *%s*\nBerlaku %d hari setelah diaktifkan.", tok.Token, tok.ExpiresInDays))
}

func (r *Router) handleListUsers(ctx context.Context, cmd command) error {
	views, err := r.Auth.ListTokens(ctx)
	if err != nil {
		return err
	}
	if len(views) == 0 {
		return r.reply(ctx, cmd, "Belum ada token.")
	}

	var b strings.Builder
	b.WriteString("👥 Daftar Token:\n\n")
	for _, v := range views {
		owner := v.OwnerID
		if owner == "" {
			owner = "-"
		}
		fmt.Fprintf(&b, "%s | %s | %s | %d hari\n", v.Token, owner, statusLabel(v), v.ExpiresInDays)
	}
	return r.reply(ctx, cmd, strings.TrimRight(b.String(), "\n"))
}

func statusLabel(v service.TokenView) string {
	switch v.Status {
	case service.TokenActive:
		return fmt.Sprintf("✅ Aktif (%d hari tersisa)", v.RemainingDays)
	case service.TokenLapsed:
		return "⚠️ Kadaluarsa"
	default:
		return "❌ Tidak aktif"
	}
}

func (r *Router) handleDeactivate(ctx context.Context, cmd command) error {
	target := strings.TrimPrefix(cmd.arg(0), "@")
	if target == "" {
		return apperr.Validation("Format: nonaktif <user_id>")
	}
	if err := r.Auth.Deactivate(ctx, target); err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("✅ User %s dinonaktifkan.", target))
}
