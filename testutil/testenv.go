// Package testutil holds environment helpers shared by the e2e suite and
// the credential bootstrap tool. Stdlib only: e2e tests drive the binary and
// never import internal/.
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by the e2e suite.
const (
	EnvTestAccount     = "TRAILERTUBE_TEST_ACCOUNT"
	EnvAllowedAccounts = "TRAILERTUBE_ALLOWED_TEST_ACCOUNTS"
)

// LoadDotEnv reads KEY=VALUE lines from envPath into the environment.
// A missing file is fine; variables already set win.
func LoadDotEnv(envPath string) {
	f, err := os.Open(envPath)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(strings.TrimPrefix(line, "export "), "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.Trim(strings.TrimSpace(value), "\"'"))
		}
	}
}

// ValidateAllowlist exits unless account is listed in
// TRAILERTUBE_ALLOWED_TEST_ACCOUNTS. Uploads go to a real channel.
func ValidateAllowlist(account string) {
	allowlist := os.Getenv(EnvAllowedAccounts)
	if allowlist == "" {
		fatalf("%s not set (example: %s=trailertube-ci)", EnvAllowedAccounts, EnvAllowedAccounts)
	}

	for _, a := range strings.Split(allowlist, ",") {
		if strings.TrimSpace(a) == account {
			return
		}
	}

	fatalf("test account %q is not in %s=%q", account, EnvAllowedAccounts, allowlist)
}

// FindModuleRoot walks up from the working directory to the go.mod.
func FindModuleRoot(fallback string) string {
	dir, err := os.Getwd()
	if err != nil {
		return fallback
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return fallback
		}

		dir = parent
	}
}

// CredentialDir returns .testdata/ under moduleRoot, creating it when
// create is set and exiting when it is missing otherwise.
func CredentialDir(moduleRoot string, create bool) string {
	dir := filepath.Join(moduleRoot, ".testdata")

	if create {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			fatalf("creating %s: %v", dir, err)
		}

		return dir
	}

	if _, err := os.Stat(dir); err != nil {
		fatalf(".testdata/ not found at %s; run go run ./cmd/integration-bootstrap", dir)
	}

	return dir
}

// TokenFileName is the token file of account, as the CLI names it.
func TokenFileName(account string) string {
	return account + ".json"
}

// CopyFile copies src to dst with perm, exiting on failure.
func CopyFile(src, dst string, perm os.FileMode) {
	data, err := os.ReadFile(src)
	if err != nil {
		fatalf("reading %s: %v", src, err)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		fatalf("creating %s: %v", filepath.Dir(dst), err)
	}

	if err := os.WriteFile(dst, data, perm); err != nil {
		fatalf("writing %s: %v", dst, err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FATAL: "+format+"\n", args...)
	os.Exit(1)
}
