package bot

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"caku/internal/models"
)

// Rupiah formats n with Indonesian thousand separators, e.g. Rp1.250.000.
func Rupiah(n int64) string {
	sign := ""
	if n < 0 {
		sign = "-"
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	return "Rp" + sign + b.String()
}

func arrow(amount int64) string {
	if amount >= 0 {
		return "➕"
	}
	return "➖"
}

func absAmount(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func categoryLabel(c *string, fallback string) string {
	if c == nil || strings.TrimSpace(*c) == "" {
		return fallback
	}
	return *c
}

// transactionLine renders "#id ➖ Rp… | desc | cat | stamp".
func transactionLine(tx models.Transaction, loc *time.Location, layout string, withCategory bool) string {
	parts := []string{
		fmt.Sprintf("#%d %s %s", tx.ID, arrow(tx.Amount), Rupiah(absAmount(tx.Amount))),
		tx.Description,
	}
	if withCategory {
		parts = append(parts, tx.CategoryOr("-"))
	}
	parts = append(parts, tx.CreatedAt.In(loc).Format(layout))
	return strings.Join(parts, " | ")
}

func transactionList(header string, rows []models.Transaction, loc *time.Location, layout string, limit int) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	for i, r := range rows {
		if limit > 0 && i == limit {
			fmt.Fprintf(&b, "\n...dan %d transaksi lainnya.", len(rows)-limit)
			break
		}
		b.WriteString(transactionLine(r, loc, layout, true))
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// exportCSV writes the report rows with a two-line preamble.
func exportCSV(userID string, rows []models.Transaction, loc *time.Location, generated time.Time) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{
		{"Laporan Keuangan"},
		{"User: " + userID, "Generated: " + generated.In(loc).Format("2006-01-02 15:04")},
		{"ID", "Tanggal", "Amount", "Description", "Category"},
	}
	for _, r := range rows {
		records = append(records, []string{
			strconv.FormatInt(r.ID, 10),
			r.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			strconv.FormatInt(r.Amount, 10),
			r.Description,
			r.CategoryOr(""),
		})
	}
	if err := w.WriteAll(records); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}

func exportName(userID string, now time.Time) string {
	return fmt.Sprintf("laporan_%s_%s.csv", userID, now.Format("20060102_150405"))
}
