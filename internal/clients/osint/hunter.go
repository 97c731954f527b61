package osint

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
)

type Field struct {
	Key   string
	Value string
}

// Section is the outcome of one Hunter.io endpoint.
type Section struct {
	Name   string
	Fields []Field
	Data   map[string]any
	Err    error
}

type HunterQuery struct {
	Domain    string
	Email     string
	FirstName string
	LastName  string
}

type hunterCall struct {
	name   string
	path   string
	params url.Values
}

// emailSections queries the e-mail oriented endpoints in order.
func (s *Service) emailSections(ctx context.Context, email string) []Section {
	calls := []hunterCall{
		{name: "Discover", path: "/discover", params: url.Values{"email": {email}}},
		{name: "Email Verifier", path: "/email-verifier", params: url.Values{"email": {email}}},
		{name: "People Finder", path: "/people/find", params: url.Values{"email": {email}}},
		{name: "Combined", path: "/combined/find", params: url.Values{"email": {email}}},
	}
	return s.runHunter(ctx, calls)
}

// HunterCheck runs every endpoint relevant to q concurrently and renders a
// multi-check report.
func (s *Service) HunterCheck(ctx context.Context, q HunterQuery) (string, error) {
	var calls []hunterCall
	if q.Domain != "" {
		calls = append(calls,
			hunterCall{name: "discover", path: "/discover", params: url.Values{"q": {q.Domain}}},
			hunterCall{name: "domain_search", path: "/domain-search", params: url.Values{"domain": {q.Domain}}},
			hunterCall{name: "companies_find", path: "/companies/find", params: url.Values{"domain": {q.Domain}}},
		)
		if q.FirstName != "" && q.LastName != "" {
			calls = append(calls, hunterCall{name: "email_finder", path: "/email-finder", params: url.Values{
				"domain":     {q.Domain},
				"first_name": {q.FirstName},
				"last_name":  {q.LastName},
			}})
		}
	}
	if q.Email != "" {
		calls = append(calls,
			hunterCall{name: "email_verifier", path: "/email-verifier", params: url.Values{"email": {q.Email}}},
			hunterCall{name: "people_find", path: "/people/find", params: url.Values{"email": {q.Email}}},
			hunterCall{name: "combined_find", path: "/combined/find", params: url.Values{"email": {q.Email}}},
		)
	}
	if len(calls) == 0 {
		return "", fmt.Errorf("nothing to check")
	}

	lines := []string{"🔎 *Hunter.io Multi-Check Report*"}
	if q.Domain != "" {
		lines = append(lines, "Domain: "+q.Domain)
	}
	if q.Email != "" {
		lines = append(lines, "Email: "+q.Email)
	}
	if q.FirstName != "" && q.LastName != "" {
		lines = append(lines, fmt.Sprintf("Name: %s %s", q.FirstName, q.LastName))
	}
	lines = append(lines, "")

	for _, sec := range s.runHunter(ctx, calls) {
		lines = append(lines, summarize(sec))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) runHunter(ctx context.Context, calls []hunterCall) []Section {
	out := make([]Section, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call hunterCall) {
			defer wg.Done()
			out[i] = s.callHunter(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return out
}

func (s *Service) callHunter(ctx context.Context, call hunterCall) Section {
	sec := Section{Name: call.name}
	params := url.Values{}
	for k, v := range call.params {
		params[k] = v
	}
	params.Set("api_key", s.cfg.HunterAPIKey)

	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := s.http.JSON(ctx, http.MethodGet, s.endpoints.Hunter+call.path+"?"+params.Encode(), nil, nil, &resp); err != nil {
		sec.Err = err
		return sec
	}

	data := map[string]any{}
	if len(resp.Data) > 0 && resp.Data[0] == '{' {
		if err := json.Unmarshal(resp.Data, &data); err != nil {
			sec.Err = err
			return sec
		}
	}
	sec.Data = data
	sec.Fields = scalarFields(data)
	return sec
}

func scalarFields(data map[string]any) []Field {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []Field
	for _, k := range keys {
		switch v := data[k].(type) {
		case string:
			fields = append(fields, Field{Key: k, Value: v})
		case float64:
			fields = append(fields, Field{Key: k, Value: fmt.Sprintf("%g", v)})
		case bool:
			fields = append(fields, Field{Key: k, Value: fmt.Sprintf("%t", v)})
		}
	}
	return fields
}

func summarize(sec Section) string {
	if sec.Err != nil {
		return fmt.Sprintf("• %s: ❌ %v", sec.Name, sec.Err)
	}
	switch sec.Name {
	case "domain_search":
		emails, _ := sec.Data["emails"].([]any)
		return fmt.Sprintf("• domain_search: ✅ %d email(s) found.", len(emails))
	case "email_verifier":
		return fmt.Sprintf("• email_verifier: ✅ result=%s (score: %s)", fieldOr(sec, "result", "unknown"), fieldOr(sec, "score", "-"))
	case "email_finder":
		if e := fieldOr(sec, "email", ""); e != "" {
			return "• email_finder: ✅ " + e
		}
		return "• email_finder: ❌ not found"
	case "companies_find":
		return "• companies_find: ✅ " + fieldOr(sec, "name", "-")
	case "people_find":
		if name, ok := sec.Data["name"].(map[string]any); ok {
			if full, ok := name["fullName"].(string); ok && full != "" {
				return "• people_find: ✅ " + full
			}
		}
		return "• people_find: ✅ found"
	default:
		return fmt.Sprintf("• %s: ✅ result returned", sec.Name)
	}
}

func fieldOr(sec Section, key, fallback string) string {
	for _, f := range sec.Fields {
		if f.Key == key && f.Value != "" {
			return f.Value
		}
	}
	return fallback
}
