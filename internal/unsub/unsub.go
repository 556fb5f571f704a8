// Package unsub parses List-Unsubscribe metadata and attempts the ranked
// unsubscribe methods: RFC 8058 one-click POST, plain GET, then mailto.
package unsub

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"mailreaper/internal/classify"
	"mailreaper/internal/model"
)

// Method identifies which unsubscribe mechanism an attempt used.
type Method string

// Status is the outcome of an attempt. Manual means the endpoint responded
// but likely needs a human (non-2xx, typically a confirmation page).
type Status string

const (
	MethodHTTP    Method = "http"
	MethodMailto  Method = "mailto"
	MethodUnknown Method = "unknown"

	StatusOK     Status = "ok"
	StatusManual Status = "manual"
	StatusFailed Status = "failed"
)

// oneClickBody is the fixed POST body RFC 8058 requires.
const oneClickBody = "List-Unsubscribe=One-Click"

var (
	mailtoRe = regexp.MustCompile(`<(mailto:[^>]+)>`)
	httpRe   = regexp.MustCompile(`<(https?://[^>]+)>`)
)

// Extract parses the List-Unsubscribe header's angle-bracket tokens into
// links, and checks List-Unsubscribe-Post for the one-click marker.
// Returns nil when the header is absent or carries no usable URI.
func Extract(headers []model.Header) *model.UnsubscribeLinks {
	header := classify.GetHeader(headers, "List-Unsubscribe")
	if header == "" {
		return nil
	}

	links := &model.UnsubscribeLinks{}
	if m := mailtoRe.FindStringSubmatch(header); m != nil {
		links.Mailto = m[1]
	}
	if m := httpRe.FindStringSubmatch(header); m != nil {
		links.HTTP = m[1]
	}
	if links.Mailto == "" && links.HTTP == "" {
		return nil
	}

	post := classify.GetHeader(headers, "List-Unsubscribe-Post")
	links.OneClick = strings.Contains(strings.ToLower(post), "one-click")
	return links
}

// Mailer sends a plain-text message from the account being cleaned.
// Satisfied by the gmail client.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Resolver attempts unsubscribes. A nil HTTPClient gets a short-timeout
// default; Mailer may be nil when no send capability is available.
type Resolver struct {
	HTTPClient *http.Client
	Mailer     Mailer
}

// Attempt tries the most reliable available method for links.
//
// HTTP first: a one-click POST when marked, else a GET. Any HTTP response
// is terminal: 2xx is ok, everything else is manual (the endpoint exists
// but wants a human). Only a transport failure falls through to mailto.
// Mailto sends to the parsed address with the subject from its query
// parameters ("Unsubscribe" when absent). Callers should pace consecutive
// mailto attempts; sends go through the rate-limited account itself.
func (r *Resolver) Attempt(ctx context.Context, links *model.UnsubscribeLinks) (Method, Status) {
	if links != nil && links.HTTP != "" {
		if status, responded := r.attemptHTTP(ctx, links); responded {
			return MethodHTTP, status
		}
		// Transport failure: fall through to mailto if we can.
	}
	if links != nil && links.Mailto != "" && r.Mailer != nil {
		return MethodMailto, r.attemptMailto(ctx, links.Mailto)
	}
	return MethodUnknown, StatusFailed
}

func (r *Resolver) attemptHTTP(ctx context.Context, links *model.UnsubscribeLinks) (Status, bool) {
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	var req *http.Request
	var err error
	if links.OneClick {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, links.HTTP, strings.NewReader(oneClickBody))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, links.HTTP, nil)
	}
	if err != nil {
		return StatusFailed, false
	}

	resp, err := client.Do(req)
	if err != nil {
		return StatusFailed, false
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return StatusOK, true
	}
	return StatusManual, true
}

func (r *Resolver) attemptMailto(ctx context.Context, mailto string) Status {
	to, subject := ParseMailto(mailto)
	if to == "" {
		return StatusFailed
	}
	if err := r.Mailer.Send(ctx, to, subject, ""); err != nil {
		return StatusFailed
	}
	return StatusOK
}

// ParseMailto splits a mailto: URI into its address and the subject from
// its query parameters, defaulting the subject to "Unsubscribe".
func ParseMailto(raw string) (to, subject string) {
	subject = "Unsubscribe"
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "mailto" {
		return "", subject
	}
	to = u.Opaque
	if to == "" {
		to = u.Path
	}
	if s := u.Query().Get("subject"); s != "" {
		subject = s
	}
	return to, subject
}
