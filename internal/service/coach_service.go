package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"caku/internal/apperr"
	"caku/internal/models"
)

const fallbackMotivation = "Tetap semangat hari ini! 💪"

type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CoachService produces LLM-written spending advice and motivation.
type CoachService struct {
	llm Completer
	log zerolog.Logger
}

func NewCoachService(llm Completer, log zerolog.Logger) *CoachService {
	return &CoachService{llm: llm, log: log}
}

// Advice asks for a short analysis of the month's category totals.
func (s *CoachService) Advice(ctx context.Context, month string, totals []models.CategoryTotal, format func(int64) string) (string, error) {
	if len(totals) == 0 {
		return "", apperr.NotFound("Belum ada data bulan ini untuk memberi saran.")
	}

	lines := make([]string, 0, len(totals))
	for _, t := range totals {
		name := "Tanpa Kategori"
		if t.Category != nil && *t.Category != "" {
			name = *t.Category
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, format(abs(t.Total))))
	}

	prompt := fmt.Sprintf(`Kamu adalah asisten keuangan pribadi yang ramah dan cerdas.
Berikut ringkasan pengeluaran bulan %s:
%s

Buatkan analisis singkat dan 2-3 saran praktis yang membantu user mengatur pengeluaran bulan depan.
Gunakan gaya santai tapi tetap profesional, maksimal 5 kalimat.`, month, strings.Join(lines, "\n"))

	advice, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		return "", apperr.Downstream("Gagal mendapatkan saran. Coba lagi nanti.", err)
	}
	return advice, nil
}

// Motivation never fails; a canned line replaces LLM errors.
func (s *CoachService) Motivation(ctx context.Context, mode string) string {
	var prompt string
	switch mode {
	case "lucu":
		prompt = "Buat satu kalimat motivasi pagi yang lucu tapi tetap membangkitkan semangat."
	case "dark":
		prompt = "Buat satu kalimat motivasi pendek untuk pagi hari dengan nuansa dark humor, bahasa Indonesia, tetap membangkitkan semangat."
	default:
		prompt = "Buat satu kalimat motivasi inspiratif pendek untuk pagi hari, bahasa Indonesia."
	}

	text, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		s.log.Warn().Err(err).Str("mode", mode).Msg("motivation completion failed")
		return fallbackMotivation
	}
	return text
}
