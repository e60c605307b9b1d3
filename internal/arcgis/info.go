package arcgis

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ServerInfo is the public site description returned by rest/info.
type ServerInfo struct {
	CurrentVersion float64 `json:"currentVersion"`
	FullVersion    string  `json:"fullVersion"`
	AuthInfo       struct {
		IsTokenBasedSecurity bool   `json:"isTokenBasedSecurity"`
		TokenServicesURL     string `json:"tokenServicesUrl"`
	} `json:"authInfo"`
}

// Version returns the most specific version string available.
func (i ServerInfo) Version() string {
	if v := strings.TrimSpace(i.FullVersion); v != "" {
		return v
	}
	if i.CurrentVersion > 0 {
		return fmt.Sprintf("%g", i.CurrentVersion)
	}
	return "unknown"
}

// FetchServerInfo queries the unauthenticated rest/info endpoint.
func FetchServerInfo(ctx context.Context, client HTTPDoer, contextURL string) (ServerInfo, error) {
	base, err := normalizeContextURL(contextURL)
	if err != nil {
		return ServerInfo{}, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+infoPath+"?f=json", nil)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("build info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return ServerInfo{}, fmt.Errorf("GET %s: %w", infoPath, err)
	}
	defer resp.Body.Close()

	var info ServerInfo
	if err := decodeResponse(resp, &info); err != nil {
		return ServerInfo{}, err
	}
	return info, nil
}
