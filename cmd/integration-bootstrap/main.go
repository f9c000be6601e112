// Command integration-bootstrap signs a test account in and stores its token
// under .testdata/ for the e2e suite.
//
// Usage: go run ./cmd/integration-bootstrap --account trailertube-ci
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tonimelisma/trailertube/internal/youtube"
	"github.com/tonimelisma/trailertube/testutil"
)

func main() {
	account := flag.String("account", os.Getenv(testutil.EnvTestAccount), "test account name")
	flag.Parse()

	moduleRoot := testutil.FindModuleRoot(".")
	testutil.LoadDotEnv(filepath.Join(moduleRoot, ".env"))

	if *account == "" {
		fmt.Fprintln(os.Stderr, "--account or TRAILERTUBE_TEST_ACCOUNT is required")
		os.Exit(1)
	}

	testutil.ValidateAllowlist(*account)

	creds := youtube.OAuthCredentials{
		ClientID:     os.Getenv("TRAILERTUBE_CLIENT_ID"),
		ClientSecret: os.Getenv("TRAILERTUBE_CLIENT_SECRET"),
	}
	if creds.ClientID == "" {
		fmt.Fprintln(os.Stderr, "TRAILERTUBE_CLIENT_ID is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tokenPath := filepath.Join(testutil.CredentialDir(moduleRoot, true), testutil.TokenFileName(*account))

	_, err := youtube.LoginWithBrowser(ctx, creds, tokenPath, *account, func(url string) error {
		fmt.Printf("Open this URL to sign in:\n\n  %s\n\n", url)
		return nil
	}, slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Token saved to %s.\n", tokenPath)
}
