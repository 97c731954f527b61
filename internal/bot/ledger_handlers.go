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

const (
	recentRows   = 30
	searchRows   = 50
	rankingRows  = 10
	stampLayout  = "02/01 15:04"
	monthLayout  = "01-2006"
	csvMediaType = "text/csv"
)

const helpText = `📌 *Perintah Bot Keuangan*
- ` + "`+100000 Gaji [salary]`" + ` : tambah pemasukan
- ` + "`-50000 Makan [food] 01-05-2024`" + ` : tambah pengeluaran (kategori & tanggal opsional)
- ` + "`laporan`" + ` : laporan singkat
- ` + "`laporan bulan MM-YYYY`" + ` : laporan per bulan
- ` + "`laporan kategori <kategori>`" + ` : laporan per kategori
- ` + "`laporan export MM-YYYY`" + ` : export CSV
- ` + "`grafik MM-YYYY`" + ` : pie chart kategori
- ` + "`saldo`" + ` : cek saldo saat ini
- ` + "`target 10000000`" + ` : set target tabungan
- ` + "`progress`" + ` : progres target tabungan
- ` + "`reminder HH:mm | list | off | pesan <teks>`" + ` : reminder harian
- ` + "`hapus <id>`" + ` : hapus transaksi
- ` + "`edit <id> <amount> <desc> [kategori]`" + ` : edit transaksi
- ` + "`kategori`" + ` : daftar kategori
- ` + "`cari <kata>`" + ` : cari transaksi
- ` + "`pengeluaran [MM-YYYY]`" + ` / ` + "`pemasukan [MM-YYYY]`" + ` : total per arah
- ` + "`hari ini`" + ` / ` + "`minggu ini`" + ` : transaksi hari/minggu ini
- ` + "`tahunan YYYY`" + ` : ringkasan per bulan
- ` + "`ranking kategori [MM-YYYY]`" + ` : urutan kategori
- ` + "`stat`" + ` : statistik singkat
- ` + "`backup`" + ` : kirim file backup
- ` + "`reset`" + ` : hapus semua transaksi (butuh konfirmasi)
- ` + "`saran`" + ` : saran keuangan AI
- ` + "`bayar 150000 makan - bareng @id1, @id2 via Dana`" + ` : patungan
- ` + "`motivasi [lucu|dark]`" + ` : kalimat motivasi
- ` + "`wishlist add|list|cek|hapus`" + ` : pantau harga barang
- ` + "`osint <nama|email|nomor>`" + ` / ` + "`hunter <email|domain>`" + ` : pencarian publik
- ` + "`vault pin|login|logout|list|ambil <n>`" + ` : vault video
- ` + "`upload video <judul> <local|remote>`" + ` : simpan video ke vault
- ` + "`dashboard`" + ` : link dashboard web
- ` + "`help`" + ` : tampilkan bantuan`

func (r *Router) handleHelp(ctx context.Context, cmd command) error {
	return r.reply(ctx, cmd, helpText)
}

func (r *Router) handleAdd(ctx context.Context, cmd command) error {
	raw := cmd.Raw
	if !shorthandPattern.MatchString(raw) {
		raw = cmd.rest(0)
	}
	entry, err := ParseEntry(raw, r.Ledger.Now())
	if err != nil {
		return err
	}

	tx := models.Transaction{
		UserID:      cmd.Sender,
		Amount:      entry.Amount,
		Description: entry.Description,
		Category:    entry.Category,
	}
	if entry.At != nil {
		tx.CreatedAt = *entry.At
	}
	id, err := r.Ledger.Add(ctx, tx)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("✅ Tercatat (ID %d): %s - %s", id, Rupiah(entry.Amount), entry.Description)
	if entry.Category != nil {
		text += " [" + *entry.Category + "]"
	}
	if entry.At != nil {
		text += " (" + entry.At.Format("02-01-2006") + ")"
	}
	return r.reply(ctx, cmd, text)
}

// monthArg reads an optional "MM-YYYY" or "bulan MM-YYYY" argument
// starting at index i. ok is false when no month was given.
func (r *Router) monthArg(cmd command, i int) (models.TransactionFilter, string, bool, error) {
	raw := cmd.arg(i)
	if strings.EqualFold(raw, "bulan") {
		raw = cmd.arg(i + 1)
	}
	if raw == "" {
		return models.TransactionFilter{}, "", false, nil
	}
	year, month, err := r.Ledger.ParseMonth(raw)
	if err != nil {
		return models.TransactionFilter{}, "", false, err
	}
	return r.Ledger.MonthRange(year, month), raw, true, nil
}

func (r *Router) handleReport(ctx context.Context, cmd command) error {
	loc := r.Ledger.Location()

	switch strings.ToLower(cmd.arg(0)) {
	case "bulan":
		filter, label, ok, err := r.monthArg(cmd, 1)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Validation("Format: laporan bulan MM-YYYY")
		}
		summary, err := r.Ledger.Summary(ctx, cmd.Sender, filter)
		if err != nil {
			return err
		}
		header := fmt.Sprintf("📊 Laporan Bulan %s\nSaldo: %s", label, Rupiah(summary.Balance))
		return r.reply(ctx, cmd, transactionList(header, summary.Rows, loc, stampLayout, 0))

	case "kategori":
		category := cmd.rest(1)
		if category == "" {
			return apperr.Validation("Format: laporan kategori <kategori>")
		}
		rows, err := r.Ledger.List(ctx, cmd.Sender, models.TransactionFilter{Category: category, Limit: 200})
		if err != nil {
			return err
		}
		var b strings.Builder
		fmt.Fprintf(&b, "📊 Laporan Kategori: %s\n\n", category)
		for _, row := range rows {
			b.WriteString(transactionLine(row, loc, stampLayout, false))
			b.WriteByte('\n')
		}
		return r.reply(ctx, cmd, strings.TrimRight(b.String(), "\n"))

	case "export":
		filter, _, _, err := r.monthArg(cmd, 1)
		if err != nil {
			return err
		}
		rows, err := r.Ledger.All(ctx, cmd.Sender, filter)
		if err != nil {
			return err
		}
		r.send(ctx, cmd.Sender, "Menyiapkan file export...")
		return r.sendExport(ctx, cmd.Sender, rows)
	}

	summary, err := r.Ledger.Summary(ctx, cmd.Sender, models.TransactionFilter{})
	if err != nil {
		return err
	}
	header := fmt.Sprintf("📊 Laporan Terbaru\nSaldo: %s", Rupiah(summary.Balance))
	rows := summary.Rows
	if len(rows) > recentRows {
		rows = rows[:recentRows]
	}
	return r.reply(ctx, cmd, transactionList(header, rows, loc, stampLayout, 0))
}

func (r *Router) sendExport(ctx context.Context, to string, rows []models.Transaction) error {
	now := r.Ledger.Now()
	data, err := exportCSV(to, rows, r.Ledger.Location(), now)
	if err != nil {
		return apperr.Downstream("gagal membuat file export", err)
	}
	if err := r.Sender.SendDocument(ctx, to, exportName(to, now), data, fmt.Sprintf("%d transaksi", len(rows))); err != nil {
		return apperr.Downstream("gagal mengirim file", err)
	}
	return nil
}

func (r *Router) handleChart(ctx context.Context, cmd command) error {
	if r.Charts == nil {
		return errNotConfigured
	}
	filter, label, _, err := r.monthArg(cmd, 0)
	if err != nil {
		return err
	}
	totals, err := r.Ledger.CategoryTotals(ctx, cmd.Sender, filter)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return r.reply(ctx, cmd, "Tidak ada data untuk membuat grafik.")
	}

	labels := make([]string, 0, len(totals))
	values := make([]int64, 0, len(totals))
	for _, t := range totals {
		labels = append(labels, categoryLabel(t.Category, "Uncategorized"))
		values = append(values, absAmount(t.Total))
	}
	img, err := r.Charts.Render(ctx, labels, values, strings.TrimSpace("Pengeluaran "+label))
	if err != nil {
		return apperr.Downstream("gagal membuat grafik", err)
	}
	if err := r.Sender.SendImage(ctx, cmd.Sender, img, strings.TrimSpace("📊 Grafik "+label)); err != nil {
		return apperr.Downstream("gagal mengirim grafik", err)
	}
	return nil
}

func (r *Router) handleBalance(ctx context.Context, cmd command) error {
	balance, err := r.Ledger.Balance(ctx, cmd.Sender, models.TransactionFilter{})
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, "💰 Saldo saat ini: "+Rupiah(balance))
}

func (r *Router) handleCategories(ctx context.Context, cmd command) error {
	cats, err := r.Ledger.Categories(ctx, cmd.Sender)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		return r.reply(ctx, cmd, "Belum ada kategori yang tercatat.")
	}
	lines := make([]string, len(cats))
	for i, c := range cats {
		lines[i] = fmt.Sprintf("%d. %s", i+1, c)
	}
	return r.reply(ctx, cmd, "📊 Daftar Kategori Tercatat:\n\n"+strings.Join(lines, "\n"))
}

func (r *Router) handleSearch(ctx context.Context, cmd command) error {
	keyword := strings.ToLower(cmd.rest(0))
	rows, err := r.Ledger.Search(ctx, cmd.Sender, keyword)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.reply(ctx, cmd, "Tidak ditemukan transaksi yang cocok.")
	}
	header := fmt.Sprintf("🔍 Hasil pencarian: %q", keyword)
	return r.reply(ctx, cmd, transactionList(header, rows, r.Ledger.Location(), stampLayout, searchRows))
}

func (r *Router) handleSignedTotal(ctx context.Context, cmd command, income bool) error {
	filter, label, ok, err := r.monthArg(cmd, 0)
	if err != nil {
		return err
	}
	rows, err := r.Ledger.All(ctx, cmd.Sender, filter)
	if err != nil {
		return err
	}

	var total int64
	for _, row := range rows {
		if income && row.Amount > 0 {
			total += row.Amount
		}
		if !income && row.Amount < 0 {
			total -= row.Amount
		}
	}

	title := "📉 Total Pengeluaran"
	if income {
		title = "📈 Total Pemasukan"
	}
	if ok {
		title += " bulan " + label
	}
	return r.reply(ctx, cmd, title+": "+Rupiah(total))
}

func (r *Router) handleToday(ctx context.Context, cmd command) error {
	if a := cmd.arg(0); a != "" && !strings.EqualFold(a, "ini") {
		return r.reply(ctx, cmd, `Gunakan: "hari ini"`)
	}
	rows, err := r.Ledger.All(ctx, cmd.Sender, r.Ledger.Today())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.reply(ctx, cmd, "Tidak ada transaksi hari ini.")
	}
	return r.reply(ctx, cmd, transactionList("📅 Transaksi Hari Ini:", rows, r.Ledger.Location(), "15:04", 0))
}

func (r *Router) handleWeek(ctx context.Context, cmd command) error {
	if a := cmd.arg(0); a != "" && !strings.EqualFold(a, "ini") {
		return r.reply(ctx, cmd, `Gunakan: "minggu ini"`)
	}
	rows, err := r.Ledger.All(ctx, cmd.Sender, r.Ledger.ThisWeek())
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.reply(ctx, cmd, "Tidak ada transaksi minggu ini.")
	}
	return r.reply(ctx, cmd, transactionList("📅 Transaksi Minggu Ini:", rows, r.Ledger.Location(), "Mon 02/01 15:04", 0))
}

func (r *Router) handleYearly(ctx context.Context, cmd command) error {
	year := r.Ledger.Now().Year()
	if a := cmd.arg(0); a != "" {
		y, err := strconv.Atoi(a)
		if err != nil || y < 1970 || y > 9999 {
			return apperr.Validation("Format: tahunan YYYY")
		}
		year = y
	}
	months, err := r.Ledger.Yearly(ctx, cmd.Sender, year)
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Ringkasan Tahun %d\n\n", year)
	for _, m := range months {
		fmt.Fprintf(&b, "%02d-%d: %s (%d transaksi)\n", int(m.Month), m.Year, Rupiah(m.Total), m.Count)
	}
	return r.reply(ctx, cmd, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleRanking(ctx context.Context, cmd command) error {
	if !strings.EqualFold(cmd.arg(0), "kategori") {
		return r.reply(ctx, cmd, "Format: ranking kategori MM-YYYY")
	}
	filter, label, ok, err := r.monthArg(cmd, 1)
	if err != nil {
		return err
	}
	if !ok {
		filter = r.Ledger.CurrentMonth()
		label = r.Ledger.Now().Format(monthLayout)
	}
	totals, err := r.Ledger.CategoryTotals(ctx, cmd.Sender, filter)
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		return r.reply(ctx, cmd, "Tidak ada data.")
	}
	if len(totals) > rankingRows {
		totals = totals[:rankingRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Ranking Kategori %s:\n\n", label)
	for i, t := range totals {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, categoryLabel(t.Category, "Uncategorized"), Rupiah(absAmount(t.Total)))
	}
	return r.reply(ctx, cmd, strings.TrimRight(b.String(), "\n"))
}

func (r *Router) handleStat(ctx context.Context, cmd command) error {
	st, err := r.Ledger.Stats(ctx, cmd.Sender)
	if err != nil {
		return err
	}
	lines := []string{
		"📊 Statistik Singkat",
		fmt.Sprintf("Transaksi: %d", st.Count),
		fmt.Sprintf("Kategori aktif: %d", st.Categories),
		"Total Pemasukan: " + Rupiah(st.Income),
		"Total Pengeluaran: " + Rupiah(st.Expense),
		"Rata-rata per transaksi: " + Rupiah(st.AveragePerItem.IntPart()),
	}
	return r.reply(ctx, cmd, strings.Join(lines, "\n"))
}

func (r *Router) handleReminder(ctx context.Context, cmd command) error {
	sub := strings.ToLower(cmd.arg(0))
	switch sub {
	case "":
		return r.reply(ctx, cmd, "Format: reminder HH:mm | reminder list | reminder off | reminder pesan <teks>")

	case "list":
		settings, err := r.Ledger.Settings(ctx, cmd.Sender)
		if err != nil {
			return err
		}
		if settings.ReminderTime == nil {
			return r.reply(ctx, cmd, "Belum ada reminder diset.")
		}
		msg := "-"
		if settings.ReminderMsg != nil && *settings.ReminderMsg != "" {
			msg = *settings.ReminderMsg
		}
		return r.reply(ctx, cmd, fmt.Sprintf("Reminder: %s\nPesan: %s", *settings.ReminderTime, msg))

	case "off":
		if err := r.Ledger.DisableReminder(ctx, cmd.Sender); err != nil {
			return err
		}
		return r.reply(ctx, cmd, "Reminder dimatikan.")

	case "pesan":
		text := cmd.rest(1)
		at, err := r.Ledger.SetReminderMessage(ctx, cmd.Sender, text)
		if err != nil {
			return err
		}
		return r.reply(ctx, cmd, fmt.Sprintf("✅ Pesan reminder berhasil diubah menjadi:\n*%s*.\nReminder aktif pada: %s", text, at))
	}

	msg, err := r.Ledger.SetReminder(ctx, cmd.Sender, cmd.arg(0))
	if err != nil {
		return err
	}
	text := "⏰ Reminder harian diset pada " + cmd.arg(0)
	if msg != "" {
		text += "\nPesan: " + msg
	}
	return r.reply(ctx, cmd, text)
}

func (r *Router) handleBackup(ctx context.Context, cmd command) error {
	rows, err := r.Ledger.All(ctx, cmd.Sender, models.TransactionFilter{})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return r.reply(ctx, cmd, "Belum ada transaksi untuk di-backup.")
	}
	return r.sendExport(ctx, cmd.Sender, rows)
}

func (r *Router) handleReset(ctx context.Context, cmd command) error {
	confirm := strings.ToLower(cmd.arg(0))
	if confirm != "iya" && confirm != "yes" {
		return r.reply(ctx, cmd, "Konfirmasi reset: ketik `reset iya` untuk menghapus semua transaksi Anda. (PERMANENT)")
	}
	if _, err := r.Ledger.Reset(ctx, cmd.Sender); err != nil {
		return err
	}
	return r.reply(ctx, cmd, "✅ Semua transaksi Anda telah dihapus.")
}

func (r *Router) handleProgress(ctx context.Context, cmd command) error {
	p, err := r.Ledger.Progress(ctx, cmd.Sender)
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("🎯 Target: %s\nTerkumpul: %s (%s%%)", Rupiah(p.Target), Rupiah(p.Saved), p.Percent.String()))
}

func (r *Router) handleTarget(ctx context.Context, cmd command) error {
	target, err := strconv.ParseInt(strings.ReplaceAll(cmd.arg(0), ".", ""), 10, 64)
	if err != nil {
		return apperr.Validation("Format: target 10000000")
	}
	if err := r.Ledger.SetTarget(ctx, cmd.Sender, target); err != nil {
		return err
	}
	return r.reply(ctx, cmd, "🎯 Target diset: "+Rupiah(target))
}

func (r *Router) handleDelete(ctx context.Context, cmd command) error {
	id, err := strconv.ParseInt(cmd.arg(0), 10, 64)
	if err != nil || id <= 0 {
		return apperr.Validation("Format: hapus <id>")
	}
	if err := r.Ledger.Delete(ctx, cmd.Sender, id); err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("✅ Terhapus transaksi ID %d", id))
}

func (r *Router) handleEdit(ctx context.Context, cmd command) error {
	id, err := strconv.ParseInt(cmd.arg(0), 10, 64)
	if err != nil || id <= 0 {
		return apperr.Validation("Format: edit <id> <amount> <desc> [kategori]")
	}
	entry, err := ParseEntry(cmd.rest(1), r.Ledger.Now())
	if err != nil {
		return err
	}
	err = r.Ledger.Edit(ctx, models.Transaction{
		ID:          id,
		UserID:      cmd.Sender,
		Amount:      entry.Amount,
		Description: entry.Description,
		Category:    entry.Category,
	})
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("✅ Terupdate ID %d", id))
}

func (r *Router) handleAdvice(ctx context.Context, cmd command) error {
	if r.Coach == nil {
		return errNotConfigured
	}
	month := r.Ledger.Now().Format(monthLayout)
	totals, err := r.Ledger.CategoryTotals(ctx, cmd.Sender, r.Ledger.CurrentMonth())
	if err != nil {
		return err
	}
	advice, err := r.Coach.Advice(ctx, month, totals, Rupiah)
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("💡 *Saran Keuangan AI (%s)*\n\n%s", month, advice))
}

func (r *Router) handleSplit(ctx context.Context, cmd command) error {
	split, ok := ParseSplit(cmd.Raw)
	if !ok {
		return r.reply(ctx, cmd, "⚠️ Format salah.\n\n📘 Contoh benar:\nbayar 150000 makan - bareng @12345, @67890 via Dana")
	}

	perPerson := splitShare(split)
	for _, p := range split.People {
		text := fmt.Sprintf("💸 *Patungan Otomatis*\n%s telah membayar *%s* untuk *%s* melalui *%s*.\n\nSilakan konfirmasi bila sudah diterima.",
			cmd.Sender, Rupiah(perPerson), split.Description, split.Method)
		if err := r.Sender.SendText(ctx, p, text); err != nil {
			r.log.Warn().Err(err).Str("user_id", cmd.Sender).Str("participant", p).Msg("notify split participant")
		}
	}

	category := "Patungan"
	_, err := r.Ledger.Add(ctx, models.Transaction{
		UserID:      cmd.Sender,
		Amount:      -split.Total,
		Description: split.Description + " (Patungan)",
		Category:    &category,
	})
	if err != nil {
		return err
	}
	return r.reply(ctx, cmd, fmt.Sprintf("✅ Transaksi dibagi rata ke %d orang.\nMasing-masing: %s (%s).", len(split.People), Rupiah(perPerson), split.Method))
}

// splitShare divides the bill between the payer and every participant.
func splitShare(s Split) int64 {
	return service.SplitBill(s.Total, len(s.People)+1)
}
