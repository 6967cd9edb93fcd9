// Package smartconnect is a minimal Angel One SmartAPI client covering the
// two calls this service needs: session login and last-traded-price lookup.
package smartconnect

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const (
	defaultRoot    = "https://apiconnect.angelone.in"
	defaultTimeout = 7 * time.Second
)

var routes = map[string]string{
	"api.login":    "/rest/auth/angelbroking/user/v1/loginByPassword",
	"api.logout":   "/rest/secure/angelbroking/user/v1/logout",
	"api.ltp.data": "/rest/secure/angelbroking/order/v1/getLtpData",
}

// Config configures a SmartAPI client.
type Config struct {
	APIKey string

	RootURL string        // default: https://apiconnect.angelone.in
	Timeout time.Duration // default: 7s
	Debug   bool

	// Header identity fields the API requires; defaults are fine for a
	// single-operator deployment.
	ClientLocalIP  string
	ClientPublicIP string
	ClientMAC      string
}

// Client is a SmartAPI HTTP client holding the session token.
type Client struct {
	apiKey      string
	rootURL     string
	debug       bool
	accessToken string

	clientLocalIP  string
	clientPublicIP string
	clientMAC      string

	httpClient *http.Client

	// SessionExpiryHook is called when the API rejects the token, so the
	// owner can re-login.
	SessionExpiryHook func()
}

// NewClient creates a SmartAPI client.
func NewClient(cfg Config) *Client {
	root := cfg.RootURL
	if root == "" {
		root = defaultRoot
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	localIP := cfg.ClientLocalIP
	if localIP == "" {
		localIP = "127.0.0.1"
	}
	publicIP := cfg.ClientPublicIP
	if publicIP == "" {
		publicIP = localIP
	}
	mac := cfg.ClientMAC
	if mac == "" {
		mac = "00:00:00:00:00:00"
	}

	return &Client{
		apiKey:         cfg.APIKey,
		rootURL:        root,
		debug:          cfg.Debug,
		clientLocalIP:  localIP,
		clientPublicIP: publicIP,
		clientMAC:      mac,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// apiResponse is the common SmartAPI envelope.
type apiResponse struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
}

// GenerateSession logs in with client code, password and a fresh TOTP and
// stores the session token on the client.
func (c *Client) GenerateSession(clientCode, password, totp string) error {
	params := map[string]string{
		"clientcode": clientCode,
		"password":   password,
		"totp":       totp,
	}
	resp, err := c.post("api.login", params)
	if err != nil {
		return err
	}

	var data struct {
		JWTToken string `json:"jwtToken"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return fmt.Errorf("unexpected login response: %w", err)
	}
	if data.JWTToken == "" {
		return errors.New("login succeeded but no session token returned")
	}
	c.accessToken = data.JWTToken

	log.Printf("[smartconnect] session established for %s", clientCode)
	return nil
}

// HasSession reports whether a session token is held.
func (c *Client) HasSession() bool { return c.accessToken != "" }

// LTPQuote is the last-traded-price payload for one instrument.
type LTPQuote struct {
	Exchange      string  `json:"exchange"`
	TradingSymbol string  `json:"tradingsymbol"`
	SymbolToken   string  `json:"symboltoken"`
	Open          float64 `json:"open,string"`
	High          float64 `json:"high,string"`
	Low           float64 `json:"low,string"`
	Close         float64 `json:"close,string"`
	LTP           float64 `json:"ltp,string"`
}

// LTP fetches the last traded price for one instrument.
func (c *Client) LTP(exchange, tradingSymbol, symbolToken string) (LTPQuote, error) {
	params := map[string]string{
		"exchange":      exchange,
		"tradingsymbol": tradingSymbol,
		"symboltoken":   symbolToken,
	}
	resp, err := c.post("api.ltp.data", params)
	if err != nil {
		return LTPQuote{}, err
	}

	var quote LTPQuote
	if err := json.Unmarshal(resp.Data, &quote); err != nil {
		return LTPQuote{}, fmt.Errorf("unexpected ltp response: %w", err)
	}
	return quote, nil
}

func (c *Client) post(route string, params map[string]string) (*apiResponse, error) {
	uri, ok := routes[route]
	if !ok {
		return nil, fmt.Errorf("unknown route: %s", route)
	}
	reqURL := c.rootURL + uri

	body, _ := json.Marshal(params)
	req, err := http.NewRequest(http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = c.requestHeaders()

	if c.debug {
		log.Printf("[smartconnect] POST %s", reqURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("smartapi %s: %w", route, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("smartapi %s read: %w", route, err)
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("smartapi %s: couldn't parse response: %w", route, err)
	}

	if out.ErrorType != "" {
		if resp.StatusCode == http.StatusForbidden && out.ErrorType == "TokenException" && c.SessionExpiryHook != nil {
			c.SessionExpiryHook()
		}
		return nil, fmt.Errorf("smartapi %s: %s: %s", route, out.ErrorType, out.Message)
	}
	if !out.Status {
		return nil, fmt.Errorf("smartapi %s failed: %s (code %s)", route, out.Message, out.ErrorCode)
	}
	return &out, nil
}

func (c *Client) requestHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("X-ClientLocalIP", c.clientLocalIP)
	h.Set("X-ClientPublicIP", c.clientPublicIP)
	h.Set("X-MACAddress", c.clientMAC)
	h.Set("X-PrivateKey", c.apiKey)
	h.Set("X-UserType", "USER")
	h.Set("X-SourceID", "WEB")
	if c.accessToken != "" {
		h.Set("Authorization", "Bearer "+c.accessToken)
	}
	return h
}
