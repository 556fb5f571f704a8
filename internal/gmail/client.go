package gmail

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail service with the mailbox operations the triage
// pipeline consumes. It satisfies triage.Mailbox and unsub.Mailer.
type Client struct {
	svc  *gmailv1.Service
	user string
}

// NewClient initializes an OAuth-backed Gmail client using:
// - Client credentials at <configDir>/client_secret.json
// - Token cache at <configDir>/token.json
// Scopes: gmail.modify (trash/label/star) and gmail.send (mailto unsubscribes).
func NewClient(ctx context.Context, configDir string) (*Client, error) {
	credPath := filepath.Join(configDir, "client_secret.json")
	b, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials at %s: %w\n"+
			"Create a Desktop-app OAuth client at console.cloud.google.com, enable the Gmail API,\n"+
			"and save the downloaded JSON as client_secret.json in that directory", credPath, err)
	}

	cfg, err := google.ConfigFromJSON(b,
		gmailv1.GmailModifyScope,
		gmailv1.GmailSendScope,
	)
	if err != nil {
		return nil, fmt.Errorf("parse oauth config: %w", err)
	}

	tokFile := filepath.Join(configDir, "token.json")
	tok, err := readToken(tokFile)
	if err == nil {
		// Validate the cached token with a lightweight API call.
		svc, err := newService(ctx, cfg, tok)
		if err == nil {
			if _, err = svc.Users.GetProfile("me").Do(); err == nil {
				return &Client{svc: svc, user: "me"}, nil
			}
		}
		// Token is invalid or expired; remove it and fall through to re-auth.
		os.Remove(tokFile)
	}

	tok, err = tokenFromWeb(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := saveToken(tokFile, tok); err != nil {
		return nil, err
	}
	svc, err := newService(ctx, cfg, tok)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Client{svc: svc, user: "me"}, nil
}

// Signout deletes the cached token, requiring re-authentication next run.
// Absence is not an error.
func Signout(configDir string) error {
	err := os.Remove(filepath.Join(configDir, "token.json"))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

func newService(ctx context.Context, cfg *oauth2.Config, tok *oauth2.Token) (*gmailv1.Service, error) {
	return gmailv1.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var tok oauth2.Token
	if err := json.NewDecoder(f).Decode(&tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return err
	}
	f.Close()
	return os.Rename(tmp, path)
}

// tokenFromWeb runs a loopback HTTP server to capture the auth code, with a
// manual-paste fallback (accepts a bare code or the full redirect URL).
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	type result struct{ code string }
	resCh := make(chan result, 1)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err == nil {
		port := ln.Addr().(*net.TCPAddr).Port
		cfg.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", port)

		mux := http.NewServeMux()
		srv := &http.Server{ReadHeaderTimeout: 5 * time.Second, Handler: mux}
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Missing 'code' parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprintln(w, "Authentication complete. You can close this window.")
			select {
			case resCh <- result{code: code}:
			default:
			}
			go func() { _ = srv.Shutdown(context.Background()) }()
		})
		go func() { _ = srv.Serve(ln) }()

		authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
		fmt.Fprintln(os.Stderr, "Open this URL in your browser to sign in:")
		fmt.Fprintln(os.Stderr, authURL)
		fmt.Fprintf(os.Stderr, "Waiting for redirect on %s …\n", cfg.RedirectURL)

		select {
		case <-ctx.Done():
			_ = srv.Shutdown(context.Background())
			return nil, ctx.Err()
		case r := <-resCh:
			return exchange(ctx, cfg, r.code)
		case <-time.After(120 * time.Second):
			_ = srv.Shutdown(context.Background())
			fmt.Fprintln(os.Stderr, "Timeout waiting for redirect; falling back to manual paste.")
		}
	}

	fmt.Fprintln(os.Stderr, "Paste the auth code or the full redirect URL, then press Enter.")
	fmt.Fprint(os.Stderr, "> ")
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 1024), 1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read auth code: %w", err)
		}
		return nil, errors.New("empty authorization code")
	}
	input := strings.TrimSpace(sc.Text())
	if input == "" {
		return nil, errors.New("empty authorization code")
	}
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		u, err := url.Parse(input)
		if err != nil {
			return nil, fmt.Errorf("parse redirect URL: %w", err)
		}
		input = u.Query().Get("code")
		if input == "" {
			return nil, errors.New("no 'code' parameter found in pasted URL")
		}
	}
	return exchange(ctx, cfg, input)
}

func exchange(ctx context.Context, cfg *oauth2.Config, code string) (*oauth2.Token, error) {
	tok, err := cfg.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	return tok, nil
}
