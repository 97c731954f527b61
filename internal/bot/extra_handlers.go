package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"caku/internal/apperr"
	"caku/internal/models"
	"caku/internal/service"
)

func (r *Router) handleMotivation(ctx context.Context, cmd command) error {
	if r.Coach == nil {
		return errNotConfigured
	}
	mode := strings.ToLower(cmd.arg(0))
	return r.reply(ctx, cmd, "🔥 "+r.Coach.Motivation(ctx, mode))
}

func (r *Router) handleOSINT(ctx context.Context, cmd command) error {
	if r.OSINT == nil {
		return errNotConfigured
	}
	query := cmd.rest(0)
	if query == "" {
		return apperr.Validation("Format: osint <nama | email | nomor>")
	}
	r.send(ctx, cmd.Sender, "🔎 Mencari data publik...")
	report, err := r.OSINT.Run(ctx, query)
	if err != nil {
		return apperr.Downstream("pencarian OSINT gagal", err)
	}
	return r.reply(ctx, cmd, report)
}

func (r *Router) handleHunter(ctx context.Context, cmd command) error {
	if r.OSINT == nil {
		return errNotConfigured
	}
	q, ok := ParseHunterQuery(cmd.Args)
	if !ok {
		return apperr.Validation("Format: hunter <email> | hunter <domain> | hunter <nama depan> <nama belakang> <domain>")
	}
	report, err := r.OSINT.HunterCheck(ctx, q)
	if err != nil {
		return apperr.Downstream("pengecekan Hunter gagal", err)
	}
	return r.reply(ctx, cmd, report)
}

func (r *Router) handleWishlist(ctx context.Context, cmd command) error {
	if r.Wishlist == nil {
		return errNotConfigured
	}

	switch strings.ToLower(cmd.arg(0)) {
	case "add", "tambah":
		item, err := r.Wishlist.Add(ctx, cmd.Sender, cmd.rest(1))
		if err != nil {
			return err
		}
		return r.reply(ctx, cmd, fmt.Sprintf("✅ *%s* ditambahkan ke wishlist (ID %d).", item.Name, item.ID))

	case "hapus":
		id, err := strconv.ParseInt(cmd.arg(1), 10, 64)
		if err != nil {
			return apperr.Validation("Format: wishlist hapus <id>")
		}
		if err := r.Wishlist.Remove(ctx, cmd.Sender, id); err != nil {
			return err
		}
		return r.reply(ctx, cmd, fmt.Sprintf("🗑️ Wishlist ID %d dihapus.", id))

	case "cek":
		r.send(ctx, cmd.Sender, "🔎 Mengecek harga terbaru...")
		items, drops, err := r.Wishlist.RefreshUser(ctx, cmd.Sender)
		if err != nil {
			return err
		}
		text := wishlistText(items)
		for _, d := range drops {
			text += "\n\n" + PriceDropText(d)
		}
		return r.reply(ctx, cmd, text)

	case "list", "":
		items, err := r.Wishlist.List(ctx, cmd.Sender)
		if err != nil {
			return err
		}
		return r.reply(ctx, cmd, wishlistText(items))
	}
	return r.reply(ctx, cmd, "Format: wishlist add <barang> | wishlist list | wishlist cek | wishlist hapus <id>")
}

// PriceDropText is the notification for one wishlist item getting cheaper.
func PriceDropText(d service.PriceDrop) string {
	text := fmt.Sprintf("📉 Harga *%s* turun: %s → %s", d.Item.Name, Rupiah(d.OldPrice), Rupiah(d.NewPrice))
	if d.Item.URL != nil && *d.Item.URL != "" {
		text += "\n🔗 " + *d.Item.URL
	}
	return text
}

func wishlistText(items []models.WishlistItem) string {
	if len(items) == 0 {
		return "Wishlist kamu masih kosong. Tambah dengan: wishlist add <barang>"
	}
	var b strings.Builder
	b.WriteString("🛍️ Wishlist kamu:\n")
	for _, it := range items {
		price := "belum dicek"
		if it.Price != nil {
			price = Rupiah(*it.Price)
		}
		fmt.Fprintf(&b, "\n#%d %s: %s", it.ID, it.Name, price)
		if it.URL != nil && *it.URL != "" {
			fmt.Fprintf(&b, "\n   %s", *it.URL)
		}
	}
	return b.String()
}

func (r *Router) handleDashboard(ctx context.Context, cmd command) error {
	if r.Dashboard == nil {
		return errNotConfigured
	}
	link, expires, err := r.Dashboard.Link(cmd.Sender)
	if err != nil {
		return apperr.Downstream("gagal membuat link dashboard", err)
	}
	return r.reply(ctx, cmd, fmt.Sprintf("🔗 Dashboard: %s\nBerlaku sampai %s.", link, expires.In(r.Ledger.Location()).Format("02/01/2006 15:04")))
}
