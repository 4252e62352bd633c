package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/mathieu-neron/SkipTube/skiptube-go/internal/metrics"
)

// WebhookSender posts JSON payloads to webhook URLs. All targets share one
// token bucket so a burst of votes cannot trip remote rate limits.
type WebhookSender struct {
	client  *http.Client
	limiter *rate.Limiter
}

// NewWebhookSender allows perSecond posts per second with a burst of the
// same size. A non-positive rate disables throttling.
func NewWebhookSender(client *http.Client, perSecond float64) *WebhookSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	limit := rate.Inf
	burst := 1
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
		burst = max(1, int(perSecond))
	}
	return &WebhookSender{client: client, limiter: rate.NewLimiter(limit, burst)}
}

// Post sends payload to url. target labels the metric.
func (s *WebhookSender) Post(ctx context.Context, target, url string, payload any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		metrics.NotificationsTotal.WithLabelValues(target, "throttled").Inc()
		return fmt.Errorf("webhook throttle: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues(target, "error").Inc()
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		metrics.NotificationsTotal.WithLabelValues(target, "rejected").Inc()
		return fmt.Errorf("post webhook: status %d", resp.StatusCode)
	}
	metrics.NotificationsTotal.WithLabelValues(target, "sent").Inc()
	return nil
}
