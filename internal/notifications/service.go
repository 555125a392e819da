package notifications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moviestream/internal/config"
	"moviestream/internal/services"
)

const userAgent = "MovieStream-Go/0.1.0"

// Service sends operator alerts about catalog health.
type Service interface {
	NotifyDegraded(ctx context.Context, tier, diagnostic string) error
	NotifyWriteFailed(ctx context.Context, action, title string, err error) error
	NotifyCacheFailed(ctx context.Context, location string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService returns an ntfy-backed service, or a no-op one when
// notifications.ntfy_topic is empty.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	return &ntfyService{
		topic:         topic,
		client:        &http.Client{Timeout: cfg.NotificationTimeout()},
		degraded:      cfg.Notifications.Degraded,
		writeFailures: cfg.Notifications.WriteFailures,
	}
}

// notice is one ntfy message. Empty header fields are not sent.
type notice struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	topic         string
	client        *http.Client
	degraded      bool
	writeFailures bool
}

func (n *ntfyService) NotifyDegraded(ctx context.Context, tier, diagnostic string) error {
	if !n.degraded {
		return nil
	}
	tier = orUnknown(tier)
	body := fmt.Sprintf("⚠️ Catalog served from %s tier", tier)
	if diagnostic = strings.TrimSpace(diagnostic); diagnostic != "" {
		body += "\n" + diagnostic
	}
	return n.post(ctx, notice{
		title: "MovieStream - Catalog Degraded",
		body:  body,
		tags:  tags("catalog", tier),
	})
}

func (n *ntfyService) NotifyWriteFailed(ctx context.Context, action, title string, err error) error {
	if !n.writeFailures {
		return nil
	}
	action = strings.TrimSpace(action)
	if action == "" {
		action = "write"
	}
	return n.post(ctx, notice{
		title:    "MovieStream - Remote Write Failed",
		body:     withCause(fmt.Sprintf("❌ Remote %s failed for %q; kept locally", action, strings.TrimSpace(title)), err),
		tags:     tags("write", action),
		priority: "high",
	})
}

// NotifyCacheFailed reports a local cache save that did not complete. It shares
// the write_failures toggle with NotifyWriteFailed.
func (n *ntfyService) NotifyCacheFailed(ctx context.Context, location string, err error) error {
	if !n.writeFailures {
		return nil
	}
	body := "❌ Could not save the catalog cache"
	if location = strings.TrimSpace(location); location != "" {
		body += " at " + location
	}
	return n.post(ctx, notice{
		title:    "MovieStream - Cache Write Failed",
		body:     withCause(body, err),
		tags:     tags("cache"),
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.post(ctx, notice{
		title:    "MovieStream - Test",
		body:     "🧪 Notification system test",
		tags:     tags("test"),
		priority: "low",
	})
}

func (n *ntfyService) post(ctx context.Context, msg notice) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.topic, strings.NewReader(msg.body))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "notifications", "post", "build ntfy request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	setHeader(req.Header, "Title", msg.title)
	setHeader(req.Header, "Tags", strings.Join(msg.tags, ","))
	setHeader(req.Header, "Priority", msg.priority)

	resp, err := n.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "notifications", "post", "send ntfy notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		return services.Wrap(services.ErrTransport, "notifications", "post", msg, nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func setHeader(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

func tags(extra ...string) []string {
	return append([]string{"moviestream"}, extra...)
}

func withCause(body string, err error) string {
	if err == nil {
		return body
	}
	return body + "\n" + strings.TrimSpace(err.Error())
}

func orUnknown(value string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return "unknown"
}

type noopService struct{}

func (noopService) NotifyDegraded(context.Context, string, string) error           { return nil }
func (noopService) NotifyWriteFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyCacheFailed(context.Context, string, error) error         { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
