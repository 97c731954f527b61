package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"caku/internal/apperr"
	"caku/internal/service"
)

const vaultUsage = "🔐 *Vault Video*\n" +
	"- `vault pin <pin>` : set PIN (sekali saja)\n" +
	"- `vault login <pin>` : buka vault\n" +
	"- `vault logout` : kunci vault\n" +
	"- `vault list` : daftar video\n" +
	"- `vault ambil <n>` : ambil video ke-n\n" +
	"- `upload video <judul> <local|remote>` : lalu kirim videonya"

func (r *Router) handleVault(ctx context.Context, cmd command) error {
	switch strings.ToLower(cmd.arg(0)) {
	case "pin":
		if err := r.Vault.SetPin(ctx, cmd.Sender, cmd.arg(1)); err != nil {
			return err
		}
		return r.reply(ctx, cmd, "✅ PIN vault tersimpan. Login dengan: vault login <pin>")

	case "login":
		if err := r.Vault.Login(ctx, cmd.Sender, cmd.arg(1)); err != nil {
			return err
		}
		return r.reply(ctx, cmd, fmt.Sprintf("🔓 Vault terbuka. Sesi berakhir setelah %s tanpa aktivitas.", r.Vault.Timeout()))

	case "logout":
		if err := r.Vault.Logout(ctx, cmd.Sender); err != nil {
			return err
		}
		return r.reply(ctx, cmd, "🔒 Vault dikunci.")

	case "list":
		return r.vaultList(ctx, cmd)

	case "ambil":
		n, err := strconv.Atoi(cmd.arg(1))
		if err != nil {
			return apperr.Validation("Format: vault ambil <n>")
		}
		return r.vaultFetch(ctx, cmd, n)
	}
	return r.reply(ctx, cmd, vaultUsage)
}

func (r *Router) vaultList(ctx context.Context, cmd command) error {
	videos, err := r.Vault.ListVideos(ctx, cmd.Sender)
	if err != nil {
		return err
	}
	if len(videos) == 0 {
		return r.reply(ctx, cmd, "Vault masih kosong.")
	}

	loc := r.Ledger.Location()
	var b strings.Builder
	b.WriteString("🎞️ Video di vault:\n\n")
	for i, v := range videos {
		fmt.Fprintf(&b, "%d. %s (%s, %s) %s\n", i+1, v.Title, v.Destination, sizeLabel(v.SizeBytes), v.CreatedAt.In(loc).Format("02/01/2006"))
	}

	usage, err := r.Vault.Usage(ctx, cmd.Sender)
	if err != nil {
		r.log.Warn().Err(err).Str("user_id", cmd.Sender).Msg("vault usage")
	} else if usage.RemoteObjects > 0 {
		fmt.Fprintf(&b, "\nRemote: %d file, %s", usage.RemoteObjects, sizeLabel(usage.RemoteBytes))
	}
	return r.reply(ctx, cmd, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) vaultFetch(ctx context.Context, cmd command, n int) error {
	content, err := r.Vault.FetchVideo(ctx, cmd.Sender, n)
	if err != nil {
		return err
	}

	caption := "🎞️ " + content.Video.Title
	if content.URL != "" {
		caption += "\n🔗 " + content.URL
	}
	if len(content.Data) == 0 {
		return r.reply(ctx, cmd, caption)
	}

	name := content.Video.ID + extensionFor(content.Video.MIMEType)
	if err := r.Sender.SendDocument(ctx, cmd.Sender, name, content.Data, caption); err != nil {
		return apperr.Downstream("gagal mengirim video", err)
	}
	return nil
}

// handleUpload arms the vault for "upload video <title> <local|remote>".
func (r *Router) handleUpload(ctx context.Context, cmd command) error {
	if !strings.EqualFold(cmd.arg(0), "video") || len(cmd.Args) < 3 {
		return apperr.Validation("Format: upload video <judul> <local|remote>")
	}
	dest, err := service.ParseDestination(cmd.Args[len(cmd.Args)-1])
	if err != nil {
		return err
	}
	title := strings.Join(cmd.Args[1:len(cmd.Args)-1], " ")

	superseded := r.Vault.HasPendingUpload(ctx, cmd.Sender)
	if err := r.Vault.BeginUpload(ctx, cmd.Sender, title, dest); err != nil {
		return err
	}
	text := fmt.Sprintf("📤 Siap menerima video *%s* (%s). Kirim videonya sekarang.", title, dest)
	if superseded {
		text += "\nUpload sebelumnya dibatalkan."
	}
	return r.reply(ctx, cmd, text)
}

// consumeMedia feeds a media message to a pending vault upload. consumed
// is false when no upload was waiting.
func (r *Router) consumeMedia(ctx context.Context, msg Message) (bool, error) {
	video, consumed, err := r.Vault.ConsumeUpload(ctx, msg.SenderID, service.Upload{
		Data:     msg.Media.Data,
		FileName: msg.Media.FileName,
		MIMEType: msg.Media.MIMEType,
		Size:     msg.Media.Size,
		Fetch:    msg.Media.Fetch,
	})
	if err != nil {
		return true, err
	}
	if !consumed {
		if strings.TrimSpace(msg.Text) == "" {
			r.send(ctx, msg.SenderID, noPendingUpload)
		}
		return false, nil
	}
	r.send(ctx, msg.SenderID, fmt.Sprintf("✅ Video *%s* tersimpan di vault (%s, %s).", video.Title, video.Destination, sizeLabel(video.SizeBytes)))
	return true, nil
}

func sizeLabel(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%.1f MB", float64(n)/mb)
	}
	return fmt.Sprintf("%d KB", (n+1023)/1024)
}

func extensionFor(mime string) string {
	switch mime {
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	case "video/x-matroska":
		return ".mkv"
	case "video/3gpp":
		return ".3gp"
	default:
		return ".mp4"
	}
}

