package bot

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"caku/internal/clients/osint"
	"caku/internal/service"
)

var (
	shorthandPattern = regexp.MustCompile(`^[+-]\d+`)
	categoryPattern  = regexp.MustCompile(`\[(.+?)\]\s*$`)
	datePattern      = regexp.MustCompile(`\s*(\d{2}-\d{2}-\d{4})\s*$`)
	splitPattern     = regexp.MustCompile(`(?i)bayar\s+(\d+)\s+(.*?)\s*-\s*bareng\s+(@[\d\s,@]+?)(?:\s+via\s+([\w\s]+))?\s*$`)
	peopleSeparator  = regexp.MustCompile(`[,\s]+`)
)

// Entry is a parsed transaction shorthand.
type Entry struct {
	Amount      int64
	Description string
	Category    *string
	At          *time.Time
}

// ParseEntry reads "±amount description [category] [DD-MM-YYYY]". A date
// keeps the time of day of now.
func ParseEntry(text string, now time.Time) (Entry, error) {
	text = strings.TrimSpace(text)

	var at *time.Time
	if m := datePattern.FindStringSubmatchIndex(text); m != nil {
		day, err := time.ParseInLocation("02-01-2006", text[m[2]:m[3]], now.Location())
		if err != nil {
			return Entry{}, service.ErrInvalidAmount
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), now.Second(), 0, now.Location())
		at = &t
		text = strings.TrimSpace(text[:m[0]])
	}

	var category *string
	if m := categoryPattern.FindStringSubmatchIndex(text); m != nil {
		c := strings.TrimSpace(text[m[2]:m[3]])
		if c != "" {
			category = &c
		}
		text = strings.TrimSpace(text[:m[0]])
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return Entry{}, service.ErrInvalidAmount
	}
	amount, err := parseAmount(parts[0])
	if err != nil {
		return Entry{}, err
	}

	desc := strings.Join(parts[1:], " ")
	if desc == "" {
		desc = "-"
	}
	return Entry{Amount: amount, Description: desc, Category: category, At: at}, nil
}

// parseAmount accepts a signed integer with optional thousand separators.
func parseAmount(raw string) (int64, error) {
	cleaned := strings.NewReplacer(".", "", ",", "", "_", "").Replace(raw)
	amount, err := strconv.ParseInt(cleaned, 10, 64)
	if err != nil || amount == 0 {
		return 0, service.ErrInvalidAmount
	}
	return amount, nil
}

type Split struct {
	Total       int64
	Description string
	People      []string
	Method      string
}

// ParseSplit reads "bayar 150000 makan - bareng @111, @222 via Dana".
func ParseSplit(text string) (Split, bool) {
	m := splitPattern.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return Split{}, false
	}
	total, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || total <= 0 {
		return Split{}, false
	}

	var people []string
	for _, p := range peopleSeparator.Split(m[3], -1) {
		p = strings.TrimSpace(strings.ReplaceAll(p, "@", ""))
		if p != "" {
			people = append(people, p)
		}
	}
	if len(people) == 0 {
		return Split{}, false
	}

	method := strings.TrimSpace(m[4])
	if method == "" {
		method = "Transfer"
	}
	method = strings.ToUpper(method[:1]) + strings.ToLower(method[1:])

	return Split{
		Total:       total,
		Description: strings.TrimSpace(m[2]),
		People:      people,
		Method:      method,
	}, true
}

// ParseHunterQuery accepts an e-mail, a domain, or "first last domain".
func ParseHunterQuery(args []string) (osint.HunterQuery, bool) {
	switch len(args) {
	case 1:
		if strings.Contains(args[0], "@") {
			return osint.HunterQuery{Email: args[0]}, true
		}
		if strings.Contains(args[0], ".") {
			return osint.HunterQuery{Domain: args[0]}, true
		}
	case 3:
		if strings.Contains(args[2], ".") {
			return osint.HunterQuery{FirstName: args[0], LastName: args[1], Domain: args[2]}, true
		}
	}
	return osint.HunterQuery{}, false
}
