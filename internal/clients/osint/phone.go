package osint

import (
	"context"
	"net/http"
	"net/url"
)

type PhoneInfo struct {
	Valid               bool   `json:"valid"`
	Number              string `json:"number"`
	LocalFormat         string `json:"local_format"`
	InternationalFormat string `json:"international_format"`
	CountryName         string `json:"country_name"`
	CountryCode         string `json:"country_code"`
	Location            string `json:"location"`
	Carrier             string `json:"carrier"`
	LineType            string `json:"line_type"`
}

// Phone validates a number with NumVerify.
func (s *Service) Phone(ctx context.Context, number string) (PhoneInfo, error) {
	params := url.Values{}
	params.Set("access_key", s.cfg.NumVerifyAPIKey)
	params.Set("number", number)
	params.Set("format", "1")

	var info PhoneInfo
	if err := s.http.JSON(ctx, http.MethodGet, s.endpoints.NumVerify+"?"+params.Encode(), nil, nil, &info); err != nil {
		return PhoneInfo{}, err
	}
	return info, nil
}
