// Package osint runs public-data lookups for phone numbers, e-mail
// addresses and names, and renders the findings as chat text.
package osint

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"caku/internal/clients/httpx"
	"caku/internal/config"
)

var (
	phonePattern = regexp.MustCompile(`^\+?\d{9,15}$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

type Endpoints struct {
	SerpAPI   string
	Google    string
	NumVerify string
	Hunter    string
}

var DefaultEndpoints = Endpoints{
	SerpAPI:   "https://serpapi.com/search.json",
	Google:    "https://www.googleapis.com/customsearch/v1",
	NumVerify: "http://apilayer.net/api/validate",
	Hunter:    "https://api.hunter.io/v2",
}

type Service struct {
	http      *httpx.Client
	cfg       config.OSINTConfig
	endpoints Endpoints
	log       zerolog.Logger
}

func NewService(cfg config.OSINTConfig, log zerolog.Logger) *Service {
	return &Service{
		http:      httpx.New(cfg.Timeout, cfg.RatePerSecond),
		cfg:       cfg,
		endpoints: DefaultEndpoints,
		log:       log,
	}
}

func (s *Service) WithEndpoints(e Endpoints) *Service {
	s.endpoints = e
	return s
}

// Kind classifies a query the way Run dispatches it.
func Kind(query string) string {
	query = strings.TrimSpace(query)
	switch {
	case phonePattern.MatchString(query):
		return "phone"
	case emailPattern.MatchString(query):
		return "email"
	default:
		return "name"
	}
}

// Run picks the lookup by query shape: phone number, e-mail, otherwise a
// free-text name search.
func (s *Service) Run(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("empty query")
	}
	switch Kind(query) {
	case "phone":
		return s.phoneReport(ctx, query), nil
	case "email":
		return s.emailReport(ctx, query), nil
	default:
		return s.nameReport(ctx, query), nil
	}
}

func (s *Service) nameReport(ctx context.Context, name string) string {
	source, results := s.Search(ctx, name, 10)
	if len(results) == 0 {
		return fmt.Sprintf("🔍 Tidak ditemukan hasil publik untuk *%s*.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🌐 *Hasil OSINT Nama:* _%s_ (via %s)\n\n", name, source)
	writeResults(&b, results)
	return b.String()
}

func (s *Service) phoneReport(ctx context.Context, number string) string {
	info, err := s.Phone(ctx, number)
	if err != nil {
		s.log.Warn().Err(err).Msg("numverify lookup failed")
		return "❌ Gagal memeriksa nomor."
	}
	if !info.Valid {
		return fmt.Sprintf("🚫 Nomor *%s* tidak valid atau tidak ditemukan.", number)
	}

	lines := []string{
		"📱 *Hasil OSINT Nomor HP:*",
		"",
		"• Valid: Ya",
		"• Number: " + dash(info.Number),
		"• Local Format: " + dash(info.LocalFormat),
		"• International Format: " + dash(info.InternationalFormat),
		fmt.Sprintf("• Country: %s (%s)", dash(info.CountryName), dash(info.CountryCode)),
		"• Location: " + dash(info.Location),
		"• Carrier: " + dash(info.Carrier),
		"• Line Type: " + dash(info.LineType),
	}
	return strings.Join(lines, "\n")
}

func (s *Service) emailReport(ctx context.Context, email string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📧 *Hasil OSINT Email (Hunter.io)* untuk: _%s_\n\n", email)

	for _, sec := range s.emailSections(ctx, email) {
		if sec.Err != nil || len(sec.Fields) == 0 {
			continue
		}
		fmt.Fprintf(&b, "🧩 *%s:*\n", sec.Name)
		for _, f := range sec.Fields {
			fmt.Fprintf(&b, "• %s: %s\n", f.Key, f.Value)
		}
		b.WriteString("\n")
	}

	source, results := s.Search(ctx, email, 10)
	if len(results) == 0 {
		if source == "" {
			source = "pencarian umum"
		}
		fmt.Fprintf(&b, "🌐 Tidak ditemukan hasil publik (%s).\n", source)
		return b.String()
	}
	fmt.Fprintf(&b, "🌐 *Ditemukan (%s):*\n", source)
	writeResults(&b, results)
	return b.String()
}

func writeResults(b *strings.Builder, results []SearchResult) {
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(b, "%d. *%s*\n%s", i+1, r.Title, r.Link)
	}
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
