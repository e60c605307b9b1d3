package main

import (
	"strings"
	"testing"

	"sdpublish/internal/testsupport"
)

func TestCheckPassesAgainstReachableSite(t *testing.T) {
	env := setupCLITestEnv(t)
	env.addArtifacts(t, "a.sd", "b.sd")

	out, _, err := runCLI(t, []string{"check", env.inputDir}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "2 .sd artifacts found")
	requireContains(t, out, "version 11.3, token security on")
	requireContains(t, out, "Authentication:")
	if strings.Contains(out, "[ERROR]") {
		t.Fatalf("expected every check to pass, got %q", out)
	}
}

func TestCheckReportsBadCredentials(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCredentials("admin", "nope"))

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err == nil {
		t.Fatalf("expected check to fail")
	}
	requireContains(t, out, "Authentication:")
	requireContains(t, out, "[ERROR]")
}
