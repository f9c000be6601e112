package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/trailertube/internal/config"
	"github.com/tonimelisma/trailertube/internal/tokenfile"
	"github.com/tonimelisma/trailertube/internal/youtube"
)

// Token states reported by `status`.
const (
	tokenStateMissing   = "missing"
	tokenStateExpired   = "expired"
	tokenStateValid     = "valid"
	tokenStateRefreshes = "refreshable"
)

// loginTimeout bounds how long login waits for the browser callback.
const loginTimeout = 5 * time.Minute

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize trailertube to upload to a YouTube channel",
		Long: `Open the Google consent page in a browser and store the resulting
token for the account (--account, default "default").`,
		RunE: runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "logout",
		Short:       "Remove the saved token of an account",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runLogout,
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "status",
		Short:       "Show logged-in accounts and their token state",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE:        runStatus,
	}
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := requireOAuthClient(cc.Cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(shutdownContext(cmd.Context(), cc.Logger), loginTimeout)
	defer cancel()

	account := cc.Cfg.Account

	cc.Logger.Info("login started", "account", account)
	cc.Statusf("Opening browser for Google sign-in...\n")

	_, err := youtube.LoginWithBrowser(ctx, oauthCredentials(cc.Cfg), config.TokenPath(account), account,
		openBrowser, cc.Logger)
	if err != nil {
		return err
	}

	cc.Logger.Info("login successful", "account", account)
	cc.Statusf("Logged in as account %q.\n", account)

	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	account := accountName(cc.Flags.Account)

	if err := youtube.Logout(config.TokenPath(account), cc.Logger); err != nil {
		return err
	}

	cc.Statusf("Logged out of account %q.\n", account)

	return nil
}

// accountStatus is the JSON schema of one `status --json` entry.
type accountStatus struct {
	Account    string `json:"account"`
	TokenState string `json:"token_state"`
	Channel    string `json:"channel,omitempty"`
	LoggedInAt string `json:"logged_in_at,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	accounts := config.DiscoverAccounts()
	if len(accounts) == 0 {
		fmt.Println("No accounts logged in. Run 'trailertube login' to add one.")
		return nil
	}

	out := make([]accountStatus, 0, len(accounts))

	for _, a := range accounts {
		out = append(out, readAccountStatus(a, config.TokenPath(a), time.Now()))
	}

	if cc.Flags.JSON {
		return printJSON(out)
	}

	rows := make([][]string, 0, len(out))
	for _, s := range out {
		rows = append(rows, []string{s.Account, s.TokenState, s.Channel, s.LoggedInAt})
	}

	printTable(os.Stdout, []string{"ACCOUNT", "TOKEN", "CHANNEL", "LOGGED IN"}, rows)

	return nil
}

// readAccountStatus inspects a token file without contacting Google.
func readAccountStatus(account, path string, now time.Time) accountStatus {
	st := accountStatus{Account: account, TokenState: tokenStateMissing}

	tok, meta, err := tokenfile.Load(path)
	if err != nil || tok == nil {
		return st
	}

	st.Channel = meta[tokenfile.MetaChannel]
	st.LoggedInAt = meta[tokenfile.MetaLoginTime]

	switch {
	case tok.RefreshToken != "":
		st.TokenState = tokenStateRefreshes
	case tok.AccessToken != "" && (tok.Expiry.IsZero() || tok.Expiry.After(now)):
		st.TokenState = tokenStateValid
	default:
		st.TokenState = tokenStateExpired
	}

	return st
}

// accountName applies the default account when none is given.
func accountName(flag string) string {
	if flag != "" {
		return flag
	}

	if env := config.ReadEnvOverrides().Account; env != "" {
		return env
	}

	return "default"
}

// openBrowser asks the desktop to open url.
func openBrowser(url string) error {
	var name string

	var args []string

	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name, args = "rundll32", []string{"url.dll,FileProtocolHandler"}
	default:
		name = "xdg-open"
	}

	if err := exec.Command(name, append(args, url)...).Start(); err != nil {
		return fmt.Errorf("opening browser: %w", err)
	}

	return nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}
