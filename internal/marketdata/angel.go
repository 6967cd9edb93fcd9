// Package marketdata supplies index spot prices for the hedge estimator.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"trade-trackerv1/pkg/smartconnect"

	"github.com/pquerna/otp/totp"
)

// ErrUnavailable marks a price lookup that could not be served (no session,
// network failure, market closed). Callers degrade to "hedge unavailable".
var ErrUnavailable = errors.New("market data unavailable")

// index maps a dashboard ticker to its Angel One instrument identity.
type index struct {
	exchange string
	symbol   string
	token    string
}

// NSE index tokens per the Angel One scrip master.
var indices = map[string]index{
	"NIFTY":     {exchange: "NSE", symbol: "Nifty 50", token: "99926000"},
	"BANKNIFTY": {exchange: "NSE", symbol: "Nifty Bank", token: "99926009"},
}

// Config holds Angel One credentials.
type Config struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string
}

// AngelSource implements model.MarketData over the SmartAPI LTP endpoint.
// The session is established lazily and re-established after the API
// reports an expired token.
type AngelSource struct {
	cfg    Config
	client *smartconnect.Client

	mu sync.Mutex
}

// NewAngelSource creates an AngelSource. No network calls happen here;
// login runs on first use so a dead broker API never blocks startup.
func NewAngelSource(cfg Config) *AngelSource {
	src := &AngelSource{
		cfg:    cfg,
		client: smartconnect.NewClient(smartconnect.Config{APIKey: cfg.APIKey}),
	}
	src.client.SessionExpiryHook = func() {
		log.Printf("[marketdata] session expired, will re-login on next request")
	}
	return src
}

// LatestClose returns the last traded price for the given index ticker.
func (a *AngelSource) LatestClose(ctx context.Context, ticker string) (float64, error) {
	idx, ok := indices[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: unknown ticker %q", ErrUnavailable, ticker)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if !a.client.HasSession() {
		if err := a.login(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	quote, err := a.client.LTP(idx.exchange, idx.symbol, idx.token)
	if err != nil {
		// One retry after a fresh login covers expired sessions.
		if loginErr := a.login(); loginErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if quote, err = a.client.LTP(idx.exchange, idx.symbol, idx.token); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if quote.LTP <= 0 {
		return 0, fmt.Errorf("%w: no price for %s", ErrUnavailable, ticker)
	}
	return quote.LTP, nil
}

func (a *AngelSource) login() error {
	code, err := totp.GenerateCode(a.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("totp generate: %w", err)
	}
	if err := a.client.GenerateSession(a.cfg.ClientCode, a.cfg.Password, code); err != nil {
		return fmt.Errorf("smartapi login: %w", err)
	}
	return nil
}
