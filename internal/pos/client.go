// Package pos is the HTTP client for the restaurant POS order API: session
// login, the newest-first paginated order list, and per-order detail.
package pos

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/dineflow/ordersync/internal/config"
)

// ErrNotLoggedIn is returned when a call needs a session that was never
// established.
var ErrNotLoggedIn = fmt.Errorf("pos: not logged in")

// Module wires the POS API client.
var Module = fx.Module("pos",
	fx.Provide(NewClient),
)

type Params struct {
	fx.In

	Config config.Config
	Logger *zap.Logger
}

// Client calls the POS order API. It is safe for sequential use per session;
// sessions for different restaurants are independent values.
type Client struct {
	httpClient *http.Client
	cfg        config.APIConfig
	log        *zap.Logger
}

// Session identifies one authenticated restaurant account.
type Session struct {
	Token          string
	CompanyID      int64
	CompanyName    string
	RestaurantID   int64
	RestaurantName string
}

func NewClient(p Params) *Client {
	return &Client{
		cfg: p.Config.API,
		log: p.Logger.Named("pos"),
		httpClient: &http.Client{
			Timeout: time.Duration(p.Config.API.RequestTimeout) * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
			},
		},
	}
}

type loginResponse struct {
	SessionToken string `json:"SessionToken"`
	Company      struct {
		ID   int64  `json:"ID"`
		Name string `json:"Name"`
	} `json:"Company"`
	Restaurant struct {
		ID   int64  `json:"ID"`
		Name string `json:"Name"`
	} `json:"Restaurant"`
}

// Login authenticates a restaurant account and returns its session. The
// company id is read from the session token's JWT payload when present,
// falling back to the response body.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/Account/Login")
	if err != nil {
		return nil, fmt.Errorf("pos: invalid base url: %w", err)
	}
	q := u.Query()
	q.Set("email", email)
	q.Set("password", password)
	q.Set("apiClient", strconv.Itoa(c.cfg.APIClient))
	q.Set("apiClientVersion", strconv.Itoa(c.cfg.APIClientVersion))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("pos: build login request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pos: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pos: login failed with status %d", resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("pos: parse login response: %w", err)
	}
	if body.SessionToken == "" {
		return nil, fmt.Errorf("pos: session token missing in login response")
	}

	companyID := decodeJWTCompanyID(body.SessionToken)
	if companyID == 0 {
		companyID = body.Company.ID
	}
	if companyID == 0 {
		return nil, fmt.Errorf("pos: company id missing in login response and token")
	}

	c.log.Info("login successful",
		zap.String("company", body.Company.Name),
		zap.String("restaurant", body.Restaurant.Name),
	)
	return &Session{
		Token:          body.SessionToken,
		CompanyID:      companyID,
		CompanyName:    body.Company.Name,
		RestaurantID:   body.Restaurant.ID,
		RestaurantName: body.Restaurant.Name,
	}, nil
}

// ListOrders fetches one page of the order list, newest orders first. Page
// indexes start at 1.
func (c *Client) ListOrders(ctx context.Context, s *Session, pageIndex int) ([]OrderSummary, error) {
	if s == nil || s.Token == "" {
		return nil, ErrNotLoggedIn
	}

	var body listResponse
	err := c.get(ctx, "/Order/List", url.Values{
		"pageSize":     {strconv.Itoa(c.cfg.PageSize)},
		"pageIndex":    {strconv.Itoa(pageIndex)},
		"sessionToken": {s.Token},
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.ErrorCode != 0 {
		return nil, fmt.Errorf("pos: order list error %d: %s", body.ErrorCode, body.Message)
	}
	return body.Data, nil
}

// FetchOrderDetail fetches the full order payload.
func (c *Client) FetchOrderDetail(ctx context.Context, s *Session, orderID int64) (*OrderDetail, error) {
	if s == nil || s.Token == "" {
		return nil, ErrNotLoggedIn
	}

	var body detailResponse
	err := c.get(ctx, "/order/Detail", url.Values{
		"ID":           {strconv.FormatInt(orderID, 10)},
		"SessionToken": {s.Token},
	}, &body)
	if err != nil {
		return nil, err
	}
	if body.ErrorCode != 0 {
		return nil, fmt.Errorf("pos: order %d detail error %d: %s", orderID, body.ErrorCode, body.Message)
	}
	if body.Data == nil {
		return nil, fmt.Errorf("pos: order %d detail payload missing", orderID)
	}
	return body.Data, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u, err := url.Parse(c.cfg.BaseURL + path)
	if err != nil {
		return fmt.Errorf("pos: invalid base url: %w", err)
	}
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("pos: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pos: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pos: %s failed with status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("pos: parse %s response: %w", path, err)
	}
	return nil
}

// decodeJWTCompanyID reads the CompanyID claim from an unverified JWT
// payload, returning 0 when absent or unreadable.
func decodeJWTCompanyID(token string) int64 {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return 0
	}
	var claims struct {
		CompanyID FlexID `json:"CompanyID"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return 0
	}
	return int64(claims.CompanyID)
}
