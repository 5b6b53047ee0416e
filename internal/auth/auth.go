package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned when the OAuth user flow has not been completed yet.
var ErrNoToken = errors.New("no stored OAuth token")

// authorizeTimeout bounds how long Authorize waits for the browser callback.
const authorizeTimeout = 5 * time.Minute

// TokenStore is an interface for saving and loading OAuth tokens.
type TokenStore interface {
	SaveToken(token *oauth2.Token) error
	LoadToken() (*oauth2.Token, error)
}

// autoSaveTokenSource wraps an oauth2.TokenSource and automatically saves refreshed tokens.
type autoSaveTokenSource struct {
	source     oauth2.TokenSource
	tokenStore TokenStore
	lastToken  *oauth2.Token
}

// Token implements oauth2.TokenSource and saves the token if it was refreshed.
func (a *autoSaveTokenSource) Token() (*oauth2.Token, error) {
	token, err := a.source.Token()
	if err != nil {
		return nil, err
	}

	// Check if the token was refreshed by comparing access tokens
	if a.lastToken == nil || a.lastToken.AccessToken != token.AccessToken {
		if err := a.tokenStore.SaveToken(token); err != nil {
			return nil, fmt.Errorf("failed to save refreshed token: %w", err)
		}
		a.lastToken = token
	}

	return token, nil
}

// startLocalServer starts a local HTTP server to receive the OAuth callback.
// Returns the redirect URL, a channel for the authorization code, and a channel for errors.
// Uses port 8080 by default, or a random port if 8080 is unavailable.
func startLocalServer() (string, <-chan string, <-chan error, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:8080")
	if err != nil {
		listener, err = net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return "", nil, nil, fmt.Errorf("failed to start local server: %w", err)
		}
	}

	port := listener.Addr().(*net.TCPAddr).Port
	redirectURL := fmt.Sprintf("http://127.0.0.1:%d", port)

	codeChan := make(chan string, 1)
	errorChan := make(chan error, 1)

	server := &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  10 * time.Second,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code != "" {
			fmt.Fprintf(w, "<html><body><h1>Authorization successful!</h1><p>You can close this window.</p></body></html>")
			select {
			case codeChan <- code:
			default:
			}
		} else {
			errMsg := r.URL.Query().Get("error")
			if errMsg == "" {
				errMsg = "no authorization code received"
			}
			fmt.Fprintf(w, "<html><body><h1>Authorization failed</h1><p>Error: %s</p></body></html>", errMsg)
			select {
			case errorChan <- fmt.Errorf("authorization error: %s", errMsg):
			default:
			}
		}
		go func() {
			time.Sleep(1 * time.Second)
			server.Shutdown(context.Background())
		}()
	})
	server.Handler = mux

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errorChan <- fmt.Errorf("server error: %w", err):
			default:
			}
		}
	}()

	return redirectURL, codeChan, errorChan, nil
}

// Authorize runs the interactive OAuth flow: it prints the consent URL to
// out, waits for the browser to hit a loopback callback, and stores the
// exchanged token.
func Authorize(ctx context.Context, oauthConfig *oauth2.Config, tokenStore TokenStore, out io.Writer) error {
	redirectURL, codeChan, errorChan, err := startLocalServer()
	if err != nil {
		return err
	}
	oauthConfig.RedirectURL = redirectURL

	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)

	fmt.Fprintf(out, "Starting local server on %s\n", redirectURL)
	if redirectURL != "http://127.0.0.1:8080" {
		fmt.Fprintf(out, "Note: Port 8080 was unavailable. Make sure to add %s to your authorized redirect URIs in Google Cloud Console.\n", redirectURL)
	}
	fmt.Fprintln(out, "\nPlease visit the following URL to authorize the application:")
	fmt.Fprintln(out, authURL)
	fmt.Fprintln(out, "\nWaiting for authorization...")

	var code string
	select {
	case code = <-codeChan:
	case err := <-errorChan:
		return fmt.Errorf("failed to receive authorization code: %w", err)
	case <-time.After(authorizeTimeout):
		return fmt.Errorf("authorization timeout: no response received within %s", authorizeTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := exchangeAndSave(ctx, oauthConfig, tokenStore, code); err != nil {
		return err
	}
	fmt.Fprintln(out, "Authorization successful!")
	return nil
}

// AuthorizeWithReader runs the OAuth flow without a local server: the user
// pastes the authorization code into in. Used on headless hosts.
func AuthorizeWithReader(ctx context.Context, oauthConfig *oauth2.Config, tokenStore TokenStore, in io.Reader, out io.Writer) error {
	authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	fmt.Fprintln(out, "Please visit the following URL to authorize the application:")
	fmt.Fprintln(out, authURL)
	fmt.Fprint(out, "Enter the authorization code: ")

	var code string
	if _, err := fmt.Fscanln(in, &code); err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	return exchangeAndSave(ctx, oauthConfig, tokenStore, code)
}

func exchangeAndSave(ctx context.Context, oauthConfig *oauth2.Config, tokenStore TokenStore, code string) error {
	if code == "" {
		return fmt.Errorf("no authorization code received")
	}
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	if err := tokenStore.SaveToken(token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// GetAuthenticatedClient returns an HTTP client authorized with the stored
// OAuth token. Refreshed tokens are written back to tokenStore. It returns
// ErrNoToken when Authorize has never been run, since sync passes must not
// block on a browser.
func GetAuthenticatedClient(ctx context.Context, oauthConfig *oauth2.Config, tokenStore TokenStore) (*http.Client, error) {
	token, err := tokenStore.LoadToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return nil, fmt.Errorf("%w: run the authorize command first", ErrNoToken)
	}

	autoSaveSource := &autoSaveTokenSource{
		source:     oauth2.ReuseTokenSource(token, oauthConfig.TokenSource(ctx, token)),
		tokenStore: tokenStore,
		lastToken:  token,
	}
	return oauth2.NewClient(ctx, autoSaveSource), nil
}
