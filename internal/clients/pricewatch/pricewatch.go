// Package pricewatch finds a marketplace listing for a keyword through
// Serper.dev and scrapes its displayed price.
package pricewatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"caku/internal/clients/httpx"
	"caku/internal/config"
)

const (
	DefaultEndpoint = "https://google.serper.dev/search"
	browserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

var (
	ErrNoListing = errors.New("no listing found")

	pricePattern = regexp.MustCompile(`Rp\s?[\d.]+`)
)

// Quote is a listing match. Price is nil when the page showed none.
type Quote struct {
	Name  string
	Price *int64
	URL   string
}

type Client struct {
	http     *httpx.Client
	apiKey   string
	site     string
	endpoint string
}

func New(cfg config.PriceWatchConfig) *Client {
	site := cfg.Site
	if site == "" {
		site = "shopee.co.id"
	}
	return &Client{
		http:     httpx.New(cfg.Timeout, 1),
		apiKey:   cfg.SerperAPIKey,
		site:     site,
		endpoint: DefaultEndpoint,
	}
}

func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

type serperResponse struct {
	Organic []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic"`
}

func (c *Client) Lookup(ctx context.Context, keyword string) (Quote, error) {
	headers := map[string]string{"X-API-KEY": c.apiKey}
	body := map[string]string{"q": fmt.Sprintf("site:%s %s", c.site, keyword)}

	var resp serperResponse
	if err := c.http.JSON(ctx, http.MethodPost, c.endpoint, headers, body, &resp); err != nil {
		return Quote{}, fmt.Errorf("serper search: %w", err)
	}

	for _, hit := range resp.Organic {
		if !strings.Contains(hit.Link, c.site) {
			continue
		}
		quote := Quote{Name: hit.Title, URL: hit.Link}
		if quote.Name == "" {
			quote.Name = keyword
		}

		page, err := c.http.Bytes(ctx, hit.Link, map[string]string{"User-Agent": browserAgent})
		if err != nil {
			return quote, nil
		}
		quote.Price = ParsePrice(string(page))
		return quote, nil
	}
	return Quote{}, ErrNoListing
}

// ParsePrice extracts the first "Rp 499.000" style amount.
func ParsePrice(text string) *int64 {
	match := pricePattern.FindString(text)
	if match == "" {
		return nil
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, match)
	if digits == "" {
		return nil
	}
	v, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || v == 0 {
		return nil
	}
	return &v
}
