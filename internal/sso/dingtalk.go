// Package sso resolves DingTalk login codes into identities.
package sso

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/erazemk/auditit/internal/errs"
)

// Default DingTalk endpoints.
const (
	DefaultAPIBase  = "https://api.dingtalk.com"
	DefaultOAPIBase = "https://oapi.dingtalk.com"
)

// tokenRefreshMargin is subtracted from the token lifetime DingTalk reports.
const tokenRefreshMargin = 120 * time.Second

// Identity is the user a login code resolved to.
type Identity struct {
	ExternalUserID string
	DisplayName    string
	IsAdmin        bool
}

// Config configures a Client.
type Config struct {
	AppKey    string
	AppSecret string
	APIBase   string
	OAPIBase  string
	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client
	// Now defaults to time.Now.
	Now func() time.Time
}

type accessToken struct {
	value   string
	expires time.Time
}

// Client talks to the DingTalk open platform. It is safe for concurrent use.
type Client struct {
	appKey    string
	appSecret string
	apiBase   string
	oapiBase  string
	http      *http.Client
	now       func() time.Time

	// token is shared by every request. Two goroutines may refresh it at
	// the same time; the last write wins and both tokens are valid.
	token atomic.Pointer[accessToken]
}

// New returns a Client.
func New(cfg Config) *Client {
	c := &Client{
		appKey:    cfg.AppKey,
		appSecret: cfg.AppSecret,
		apiBase:   cfg.APIBase,
		oapiBase:  cfg.OAPIBase,
		http:      cfg.HTTPClient,
		now:       cfg.Now,
	}
	if c.apiBase == "" {
		c.apiBase = DefaultAPIBase
	}
	if c.oapiBase == "" {
		c.oapiBase = DefaultOAPIBase
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 10 * time.Second}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Configured reports whether app credentials were provided.
func (c *Client) Configured() bool {
	return c.appKey != "" && c.appSecret != ""
}

// AccessToken returns the app access token, fetching a new one when the
// cached token is missing or about to expire.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if tok := c.token.Load(); tok != nil && c.now().Before(tok.expires) {
		return tok.value, nil
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
		ExpireIn    int64  `json:"expireIn"`
	}
	body := map[string]string{"appKey": c.appKey, "appSecret": c.appSecret}
	if err := c.do(ctx, http.MethodPost, c.apiBase+"/v1.0/oauth2/accessToken", body, nil, &resp); err != nil {
		return "", errs.Upstream(err, "getting dingtalk access token")
	}
	if resp.AccessToken == "" {
		return "", errs.Upstream(nil, "getting dingtalk access token: empty token")
	}

	lifetime := time.Duration(resp.ExpireIn)*time.Second - tokenRefreshMargin
	c.token.Store(&accessToken{value: resp.AccessToken, expires: c.now().Add(lifetime)})
	return resp.AccessToken, nil
}

// UserByAuthCode resolves a legacy in-app authorization code.
func (c *Client) UserByAuthCode(ctx context.Context, code string) (*Identity, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	var resp struct {
		ErrCode int    `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
		Result  struct {
			UserID  string `json:"userid"`
			UnionID string `json:"unionid"`
			Name    string `json:"name"`
			Sys     bool   `json:"sys"`
		} `json:"result"`
	}
	endpoint := c.oapiBase + "/topapi/v2/user/getuserinfo?access_token=" + url.QueryEscape(token)
	if err := c.do(ctx, http.MethodPost, endpoint, map[string]string{"code": code}, nil, &resp); err != nil {
		return nil, errs.Upstream(err, "getting dingtalk user")
	}
	if resp.ErrCode != 0 {
		return nil, errs.Upstream(fmt.Errorf("errcode %d: %s", resp.ErrCode, resp.ErrMsg), "getting dingtalk user")
	}

	id := resp.Result.UserID
	if id == "" {
		id = resp.Result.UnionID
	}
	if id == "" {
		return nil, errs.Upstream(nil, "getting dingtalk user: response has no user id")
	}

	return &Identity{
		ExternalUserID: id,
		DisplayName:    resp.Result.Name,
		IsAdmin:        resp.Result.Sys,
	}, nil
}

// UserBySSOCode resolves a single sign-on code. The request is signed with
// an HMAC-SHA256 of the current millisecond timestamp keyed by the app secret.
func (c *Client) UserBySSOCode(ctx context.Context, code string) (*Identity, error) {
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("x-acs-dingtalk-app-key", c.appKey)
	headers.Set("x-acs-dingtalk-timestamp", timestamp)
	headers.Set("x-acs-dingtalk-signature", Sign(timestamp, c.appSecret))
	headers.Set("x-acs-dingtalk-access-token", code)

	var resp struct {
		UserID   string `json:"userId"`
		UnionID  string `json:"unionId"`
		UserName string `json:"userName"`
		Nick     string `json:"nick"`
		IsAdmin  bool   `json:"isAdmin"`
	}
	if err := c.do(ctx, http.MethodGet, c.apiBase+"/v1.0/contact/users/me", nil, headers, &resp); err != nil {
		return nil, errs.Upstream(err, "getting dingtalk sso user")
	}

	id := resp.UserID
	if id == "" {
		id = resp.UnionID
	}
	if id == "" {
		return nil, errs.Upstream(nil, "getting dingtalk sso user: response has no user id")
	}
	name := resp.UserName
	if name == "" {
		name = resp.Nick
	}

	return &Identity{ExternalUserID: id, DisplayName: name, IsAdmin: resp.IsAdmin}, nil
}

// Sign returns the base64 HMAC-SHA256 of timestamp keyed by secret.
func Sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, endpoint string, in any, headers http.Header, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
