package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"sdpublish/internal/arcgis"
	"sdpublish/internal/config"
	"sdpublish/internal/discovery"
)

const serverCheckTimeout = 10 * time.Second

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckInput verifies that input names a matching file or a directory that
// contains at least one.
func CheckInput(ctx context.Context, input, ext string) Result {
	const name = "Input"

	items, err := discovery.Find(ctx, input, ext)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if err := unix.Access(string(items[0]), unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", items[0], err)}
	}
	noun := "artifacts"
	if len(items) == 1 {
		noun = "artifact"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d .%s %s found", len(items), strings.TrimPrefix(ext, "."), noun)}
}

// CheckCredentials reports whether the config carries a token or admin
// credentials, without contacting the server.
func CheckCredentials(cfg *config.Config) Result {
	const name = "Credentials"

	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	if err := cfg.ValidateCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if strings.TrimSpace(cfg.Server.Token) != "" {
		return Result{Name: name, Passed: true, Detail: "static token configured"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("user %s (token generated per run)", cfg.Server.Username)}
}

// CheckServer verifies that the site answers rest/info.
func CheckServer(ctx context.Context, client arcgis.HTTPDoer, contextURL string) Result {
	const name = "ArcGIS Server"

	if strings.TrimSpace(contextURL) == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, serverCheckTimeout)
	defer cancel()

	info, err := arcgis.FetchServerInfo(checkCtx, client, contextURL)
	if err != nil {
		return Result{Name: name, Detail: summarizeServerError(err)}
	}
	security := "token security off"
	if info.AuthInfo.IsTokenBasedSecurity {
		security = "token security on"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("version %s, %s", info.Version(), security)}
}

// CheckAuthentication obtains the run token once to prove the credentials work.
func CheckAuthentication(ctx context.Context, provider *arcgis.TokenProvider) Result {
	const name = "Authentication"

	if provider.Static() {
		return Result{Name: name, Passed: true, Detail: "static token configured (verified on first request)"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, serverCheckTimeout)
	defer cancel()

	token, err := provider.Token(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeServerError(err)}
	}
	if token.Expires.IsZero() {
		return Result{Name: name, Passed: true, Detail: "token generated"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("token valid until %s", token.Expires.Local().Format(time.RFC3339))}
}

// summarizeServerError produces a human-readable summary for connectivity failures.
func summarizeServerError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out (server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "request timed out (server unreachable)"
	}
	return err.Error()
}
