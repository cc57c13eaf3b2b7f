// ABOUTME: Google sign-in CLI commands
// ABOUTME: Runs the OAuth consent flow with a local callback server
package cli

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harperreed/weekendly/sync"
)

// AuthLoginCommand runs the OAuth consent flow and stores the resulting
// token pair. A fresh consent always fully replaces any prior token state.
func AuthLoginCommand(tokens *sync.TokenManager, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()

	config, err := sync.NewOAuthConfig()
	if err != nil {
		return fmt.Errorf("failed to get OAuth config: %w", err)
	}

	state := uuid.NewString()

	callbackChan := make(chan *oauth2.Token)
	errChan := make(chan error)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			errChan <- fmt.Errorf("state mismatch in OAuth callback")
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8484", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	authURL := sync.ConsentURL(config, state)

	fmt.Println("Opening browser for Google OAuth...")
	fmt.Printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		if err := tokens.SignIn(token); err != nil {
			return fmt.Errorf("failed to store token: %w", err)
		}

		fmt.Printf("\n✓ Authenticated successfully\n")
		fmt.Printf("✓ Tokens saved to %s\n\n", sync.TokenPath())
		fmt.Println("New events will now be mirrored to your Google Calendar.")
		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// AuthStatusCommand prints whether a session exists and any refresh error.
func AuthStatusCommand(tokens *sync.TokenManager, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	if !tokens.Authenticated() {
		fmt.Println("Not signed in. Run 'weekendly auth login' to connect Google Calendar.")
		return nil
	}

	fmt.Println("Signed in to Google Calendar.")
	if err := tokens.LastError(); err != nil {
		fmt.Printf("Warning: %v — run 'weekendly auth login' to re-authenticate.\n", err)
	}
	return nil
}

// AuthLogoutCommand destroys the session and deletes the stored token.
func AuthLogoutCommand(tokens *sync.TokenManager, args []string) error {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	_ = fs.Parse(args)

	tokens.SignOut()
	if err := sync.DeleteToken(); err != nil {
		return err
	}

	fmt.Println("Signed out. Events will no longer be mirrored to Google Calendar.")
	return nil
}

// openBrowser opens a URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}
