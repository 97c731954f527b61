package bot

import (
	"net/url"
	"time"

	"caku/internal/security"
)

// DashboardLinks hands out signed read-only links to the web dashboard.
type DashboardLinks struct {
	secret  string
	ttl     time.Duration
	baseURL string
}

func NewDashboardLinks(secret string, ttl time.Duration, baseURL string) *DashboardLinks {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DashboardLinks{secret: secret, ttl: ttl, baseURL: baseURL}
}

func (d *DashboardLinks) Link(userID string) (string, time.Time, error) {
	token, expires, err := security.GenerateDashboardToken(d.secret, userID, d.ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	u, err := url.Parse(d.baseURL)
	if err != nil {
		return "", time.Time{}, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), expires, nil
}
