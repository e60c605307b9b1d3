package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"sdpublish/internal/config"
	"sdpublish/internal/services"
)

// Token is an ArcGIS access token and its expiry, when reported.
type Token struct {
	Value   string
	Expires time.Time
}

// TokenProvider resolves the token a run is bound to. A static token from
// configuration is used as-is; otherwise one is generated from the admin
// credentials on first use and cached for the life of the provider.
type TokenProvider struct {
	contextURL string
	username   string
	password   string
	referer    string
	expiration time.Duration
	static     string
	http       HTTPDoer

	once  sync.Once
	token Token
	err   error
}

// NewTokenProvider builds a provider from the [server] configuration.
func NewTokenProvider(cfg *config.Config, client HTTPDoer) *TokenProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenProvider{
		contextURL: cfg.ServerContextURL(),
		username:   strings.TrimSpace(cfg.Server.Username),
		password:   cfg.Server.Password,
		referer:    strings.TrimSpace(cfg.Server.Referer),
		expiration: time.Duration(cfg.Server.TokenExpiration) * time.Minute,
		static:     strings.TrimSpace(cfg.Server.Token),
		http:       client,
	}
}

// Static reports whether the token comes from configuration.
func (p *TokenProvider) Static() bool { return p.static != "" }

// Token returns the run token, generating it at most once.
func (p *TokenProvider) Token(ctx context.Context) (Token, error) {
	p.once.Do(func() {
		if p.static != "" {
			p.token = Token{Value: p.static}
			return
		}
		p.token, p.err = GenerateToken(ctx, p.http, p.contextURL, p.username, p.password, p.referer, p.expiration)
	})
	return p.token, p.err
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"`
}

// GenerateToken requests a referer-bound token from the admin API.
func GenerateToken(ctx context.Context, client HTTPDoer, contextURL, username, password, referer string, expiration time.Duration) (Token, error) {
	base, err := normalizeContextURL(contextURL)
	if err != nil {
		return Token{}, err
	}
	if strings.TrimSpace(username) == "" || password == "" {
		return Token{}, services.Wrap(services.ErrAuthentication, "token", "generate", "username and password are required", nil)
	}
	minutes := int(expiration / time.Minute)
	if minutes <= 0 {
		minutes = 60
	}
	form := url.Values{
		"username":   {username},
		"password":   {password},
		"client":     {"referer"},
		"referer":    {referer},
		"expiration": {strconv.Itoa(minutes)},
		"f":          {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Token{}, services.Wrap(services.ErrAuthentication, "token", "generate", base, err)
	}
	defer resp.Body.Close()

	var out tokenResponse
	if err := decodeResponse(resp, &out); err != nil {
		return Token{}, services.Wrap(services.ErrAuthentication, "token", "generate", "server rejected credentials", err)
	}
	if strings.TrimSpace(out.Token) == "" {
		return Token{}, services.Wrap(services.ErrAuthentication, "token", "generate", "response did not include a token", nil)
	}
	token := Token{Value: out.Token}
	if out.Expires > 0 {
		token.Expires = time.UnixMilli(out.Expires)
	}
	return token, nil
}
