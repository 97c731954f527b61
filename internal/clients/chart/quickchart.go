// Package chart renders pie charts through QuickChart.
package chart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"caku/internal/clients/httpx"
)

const DefaultBaseURL = "https://quickchart.io/chart"

type Renderer struct {
	http    *httpx.Client
	baseURL string
}

func New(timeout time.Duration) *Renderer {
	return &Renderer{http: httpx.New(timeout, 2), baseURL: DefaultBaseURL}
}

func (r *Renderer) WithBaseURL(u string) *Renderer {
	r.baseURL = u
	return r
}

type pieConfig struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string `json:"labels"`
		Datasets []struct {
			Data []int64 `json:"data"`
		} `json:"datasets"`
	} `json:"data"`
	Options struct {
		Title struct {
			Display bool   `json:"display"`
			Text    string `json:"text"`
		} `json:"title"`
	} `json:"options"`
}

// URL builds the PNG chart address for labels/values.
func (r *Renderer) URL(labels []string, values []int64, title string) (string, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf("labels and values differ in length")
	}

	var cfg pieConfig
	cfg.Type = "pie"
	cfg.Data.Labels = labels
	cfg.Data.Datasets = []struct {
		Data []int64 `json:"data"`
	}{{Data: values}}
	cfg.Options.Title.Display = true
	cfg.Options.Title.Text = title

	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}

	q := url.Values{}
	q.Set("c", string(raw))
	q.Set("format", "png")
	q.Set("width", "800")
	q.Set("height", "400")
	return r.baseURL + "?" + q.Encode(), nil
}

// Render downloads the PNG.
func (r *Renderer) Render(ctx context.Context, labels []string, values []int64, title string) ([]byte, error) {
	u, err := r.URL(labels, values, title)
	if err != nil {
		return nil, err
	}
	png, err := r.http.Bytes(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("quickchart: %w", err)
	}
	return png, nil
}
