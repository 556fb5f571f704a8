package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	gmailv1 "google.golang.org/api/gmail/v1"
)

// Trash moves one message to the trash.
func (c *Client) Trash(ctx context.Context, id string) error {
	err := withRetry(ctx, func() error {
		_, err := c.svc.Users.Messages.Trash(c.user, id).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("trash message %s: %w", id, err)
	}
	return nil
}

// Modify adds and/or removes label IDs on one message.
func (c *Client) Modify(ctx context.Context, id string, add, remove []string) error {
	req := &gmailv1.ModifyMessageRequest{
		AddLabelIds:    add,
		RemoveLabelIds: remove,
	}
	err := withRetry(ctx, func() error {
		_, err := c.svc.Users.Messages.Modify(c.user, id, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("modify message %s: %w", id, err)
	}
	return nil
}

// ResolveOrCreateLabel returns the label ID for name, matching existing
// labels case-insensitively and creating the label when absent. Callers
// cache the result per apply pass; this makes one or two API calls.
func (c *Client) ResolveOrCreateLabel(ctx context.Context, name string) (string, error) {
	var id string
	err := withRetry(ctx, func() error {
		resp, err := c.svc.Users.Labels.List(c.user).Context(ctx).Do()
		if err != nil {
			return err
		}
		for _, l := range resp.Labels {
			if strings.EqualFold(l.Name, name) {
				id = l.Id
				return nil
			}
		}
		created, err := c.svc.Users.Labels.Create(c.user, &gmailv1.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("resolve label %q: %w", name, err)
	}
	return id, nil
}

// Send sends a plain-text message from the authenticated account.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)

	raw := base64.URLEncoding.EncodeToString([]byte(sb.String()))
	err := withRetry(ctx, func() error {
		_, err := c.svc.Users.Messages.Send(c.user, &gmailv1.Message{Raw: raw}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}
