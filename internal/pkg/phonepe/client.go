package phonepe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ecellhq/launchpad/internal/pkg/env"
)

const (
	defaultProductionAuthURL = "https://api.phonepe.com/apis/identity-manager"
	defaultProductionAPIURL  = "https://api.phonepe.com/apis/pg"
	defaultSandboxAuthURL    = "https://api-preprod.phonepe.com/apis/pg-sandbox"
	defaultSandboxAPIURL     = "https://api-preprod.phonepe.com/apis/pg-sandbox"
)

// MinAmountPaise is the gateway-imposed minimum charge (one rupee).
const MinAmountPaise = 100

var (
	// ErrNotConfigured means client credentials are missing from the environment.
	ErrNotConfigured = errors.New("phonepe: client credentials are not configured")
	// ErrAmountTooLow means the charge is below the gateway minimum of 100 paise.
	ErrAmountTooLow = errors.New("phonepe: amount is below the gateway minimum of 100 paise")
)

// GatewayError wraps transport or API failures talking to PhonePe. A gateway
// error during a status check does NOT mean the charge failed; callers must
// surface it distinctly instead of marking the payment failed.
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("phonepe: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("phonepe: %s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Client talks to the PhonePe Standard Checkout v2 API. It is a pure
// pass-through boundary: no business logic, no state beyond the memoized
// OAuth token. Construct one instance and inject it into handlers so tests
// can substitute a fake.
type Client struct {
	ClientID      string
	ClientSecret  string
	ClientVersion string

	AuthBaseURL string
	APIBaseURL  string

	HTTPClient *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClientFromEnv builds a client from PHONEPE_* environment variables.
// PHONEPE_ENV selects sandbox (default) or production base URLs; explicit
// PHONEPE_AUTH_URL / PHONEPE_API_URL override both.
func NewClientFromEnv() *Client {
	authURL := defaultSandboxAuthURL
	apiURL := defaultSandboxAPIURL
	if strings.EqualFold(env.GetEnv("PHONEPE_ENV", "sandbox"), "production") {
		authURL = defaultProductionAuthURL
		apiURL = defaultProductionAPIURL
	}

	return &Client{
		ClientID:      strings.TrimSpace(env.GetEnv("PHONEPE_CLIENT_ID", "")),
		ClientSecret:  strings.TrimSpace(env.GetEnv("PHONEPE_CLIENT_SECRET", "")),
		ClientVersion: strings.TrimSpace(env.GetEnv("PHONEPE_CLIENT_VERSION", "1")),
		AuthBaseURL:   strings.TrimRight(env.GetEnv("PHONEPE_AUTH_URL", authURL), "/"),
		APIBaseURL:    strings.TrimRight(env.GetEnv("PHONEPE_API_URL", apiURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// IsConfigured reports whether credentials are present.
func (c *Client) IsConfigured() bool {
	return strings.TrimSpace(c.ClientID) != "" && strings.TrimSpace(c.ClientSecret) != ""
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
	TokenType   string `json:"token_type"`
}

// token returns a cached OAuth token, fetching a fresh one when the cached
// token is missing or expires within the next minute.
func (c *Client) token(ctx context.Context) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("client_version", c.ClientVersion)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthBaseURL+"/v1/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", &GatewayError{Op: "token", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", &GatewayError{Op: "token", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &GatewayError{Op: "token", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &GatewayError{Op: "token", Err: err}
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", &GatewayError{Op: "token", Err: errors.New("empty access_token in response")}
	}

	c.accessToken = out.AccessToken
	c.tokenExpiry = time.Unix(out.ExpiresAt, 0)
	if out.ExpiresAt == 0 {
		c.tokenExpiry = time.Now().Add(10 * time.Minute)
	}
	return c.accessToken, nil
}

// OrderResponse is the gateway's answer to a create-order call.
type OrderResponse struct {
	OrderID     string `json:"orderId"`
	State       string `json:"state"`
	ExpireAt    int64  `json:"expireAt"`
	RedirectURL string `json:"redirectUrl"`
}

// PaymentDetail is one payment attempt inside an order status response.
type PaymentDetail struct {
	PaymentMode   string `json:"paymentMode"`
	TransactionID string `json:"transactionId"`
	Timestamp     int64  `json:"timestamp"`
	State         string `json:"state"`
	Amount        int64  `json:"amount"`
}

// StatusResponse is the gateway's authoritative order status.
type StatusResponse struct {
	OrderID        string          `json:"orderId"`
	State          string          `json:"state"`
	Amount         int64           `json:"amount"`
	ExpireAt       int64           `json:"expireAt"`
	PaymentDetails []PaymentDetail `json:"paymentDetails"`
	Raw            json.RawMessage `json:"-"`
}

type createOrderRequest struct {
	MerchantOrderID string            `json:"merchantOrderId"`
	Amount          int64             `json:"amount"`
	ExpireAfter     int64             `json:"expireAfter,omitempty"`
	MetaInfo        map[string]string `json:"metaInfo,omitempty"`
	PaymentFlow     paymentFlow       `json:"paymentFlow"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	Message      string       `json:"message,omitempty"`
	MerchantURLs merchantURLs `json:"merchantUrls"`
}

type merchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

// CreateOrder registers a checkout with the gateway and returns the hosted
// payment page URL. amountPaise is the charge in minor units.
func (c *Client) CreateOrder(ctx context.Context, merchantOrderID string, amountPaise int64, redirectURL string, metaInfo map[string]string) (*OrderResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if amountPaise < MinAmountPaise {
		return nil, ErrAmountTooLow
	}
	if strings.TrimSpace(merchantOrderID) == "" {
		return nil, &GatewayError{Op: "create order", Err: errors.New("merchant order id is required")}
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := createOrderRequest{
		MerchantOrderID: merchantOrderID,
		Amount:          amountPaise,
		MetaInfo:        metaInfo,
		PaymentFlow: paymentFlow{
			Type:         "PG_CHECKOUT",
			MerchantURLs: merchantURLs{RedirectURL: redirectURL},
		},
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+"/checkout/v2/pay", bytes.NewReader(raw))
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Op: "create order", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out OrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Op: "create order", Err: err}
	}
	if strings.TrimSpace(out.RedirectURL) == "" {
		return nil, &GatewayError{Op: "create order", Err: errors.New("response missing redirectUrl")}
	}
	return &out, nil
}

// OrderStatus fetches the authoritative state of an order. details=true asks
// the gateway to include every payment attempt, not only the latest.
func (c *Client) OrderStatus(ctx context.Context, merchantOrderID string, details bool) (*StatusResponse, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(merchantOrderID) == "" {
		return nil, &GatewayError{Op: "order status", Err: errors.New("merchant order id is required")}
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/checkout/v2/order/%s/status?details=%t", c.APIBaseURL, url.PathEscape(merchantOrderID), details)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &GatewayError{Op: "order status", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "O-Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &GatewayError{Op: "order status", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &GatewayError{Op: "order status", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out StatusResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &GatewayError{Op: "order status", Err: err}
	}
	out.Raw = append([]byte(nil), body...)
	return &out, nil
}
