package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const defaultCookieDomain = ".tradingview.com"

// Cookie is one entry of a JSON cookie export, as produced by the common
// browser extensions. ExpirationDate is a unix timestamp; zero means a
// session cookie.
type Cookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HTTPOnly       bool    `json:"httpOnly"`
	ExpirationDate float64 `json:"expirationDate"`
}

// LoadCookies reads a cookie export file. Both a bare JSON array and the
// {"cookies": [...]} wrapper shape are accepted; a missing file is not an
// error. Entries get the default domain and path filled in when absent.
func LoadCookies(path string) ([]Cookie, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cookie file: %w", err)
	}

	var cookies []Cookie
	if err := json.Unmarshal(data, &cookies); err == nil {
		return normalizeCookies(cookies), nil
	}
	var wrapper struct {
		Cookies []Cookie `json:"cookies"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse cookie file: %w", err)
	}
	return normalizeCookies(wrapper.Cookies), nil
}

func normalizeCookies(cookies []Cookie) []Cookie {
	for i := range cookies {
		if cookies[i].Domain == "" {
			cookies[i].Domain = defaultCookieDomain
		}
		if cookies[i].Path == "" {
			cookies[i].Path = "/"
		}
	}
	return cookies
}

// injectCookies loads the configured cookie file and sets each usable entry
// on the session. Unusable entries are skipped with a warning; only a file
// level failure is returned.
func (m *Manager) injectCookies(browserCtx context.Context) error {
	cookies, err := LoadCookies(m.cfg.CookieFile)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(browserCtx, m.cfg.ActionTimeout)
	defer cancel()

	injected := 0
	for _, c := range cookies {
		if c.Name == "" || c.Value == "" {
			m.logger.Warn("skipping cookie without name or value", zap.String("name", c.Name))
			continue
		}
		if err := chromedp.Run(ctx, setCookieAction(c)); err != nil {
			m.logger.Warn("set cookie failed", zap.String("name", c.Name), zap.Error(err))
			continue
		}
		injected++
	}
	m.logger.Info("cookies injected",
		zap.Int("injected", injected), zap.Int("total", len(cookies)))
	return nil
}

func setCookieAction(c Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		params := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly)
		if c.ExpirationDate > 0 {
			expires := cdp.TimeSinceEpoch(time.Unix(int64(c.ExpirationDate), 0))
			params = params.WithExpires(&expires)
		}
		return params.Do(ctx)
	})
}
