package osint

import (
	"context"
	"net/http"
	"net/url"
)

type SearchResult struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

const (
	sourceSerpAPI = "SerpAPI"
	sourceGoogle  = "Google Custom Search"
)

// Search tries SerpAPI first and falls back to Google Custom Search when
// SerpAPI fails or returns nothing. source is empty when both come back
// empty.
func (s *Service) Search(ctx context.Context, query string, limit int) (source string, results []SearchResult) {
	if s.cfg.SerpAPIKey != "" {
		res, err := s.serpAPI(ctx, query)
		if err != nil {
			s.log.Warn().Err(err).Msg("serpapi search failed")
		} else if len(res) > 0 {
			return sourceSerpAPI, truncate(res, limit)
		}
	}

	if s.cfg.GoogleAPIKey != "" && s.cfg.GoogleCX != "" {
		res, err := s.google(ctx, query)
		if err != nil {
			s.log.Warn().Err(err).Msg("google custom search failed")
		} else if len(res) > 0 {
			return sourceGoogle, truncate(res, limit)
		}
	}

	return "", nil
}

func (s *Service) serpAPI(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("api_key", s.cfg.SerpAPIKey)

	var resp struct {
		OrganicResults []SearchResult `json:"organic_results"`
	}
	if err := s.http.JSON(ctx, http.MethodGet, s.endpoints.SerpAPI+"?"+params.Encode(), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.OrganicResults, nil
}

func (s *Service) google(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("key", s.cfg.GoogleAPIKey)
	params.Set("cx", s.cfg.GoogleCX)

	var resp struct {
		Items []SearchResult `json:"items"`
	}
	if err := s.http.JSON(ctx, http.MethodGet, s.endpoints.Google+"?"+params.Encode(), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func truncate(res []SearchResult, limit int) []SearchResult {
	if limit > 0 && len(res) > limit {
		return res[:limit]
	}
	return res
}
