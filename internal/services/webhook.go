package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/decklog/internal/models"
	"github.com/desertthunder/decklog/internal/shared"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

// WebhookKind is the task kind of [WebhookTask].
const WebhookKind = "webhook"

// Event is the JSON body posted to the webhook.
type Event struct {
	Event  string       `json:"event"`
	Tick   uint64       `json:"tick"`
	SentAt time.Time    `json:"sent_at"`
	Entry  models.Entry `json:"entry"`
}

// WebhookTask delivers one [Event] with retries.
type WebhookTask struct {
	URL          string        `json:"url"`
	Event        Event         `json:"event"`
	Timeout      time.Duration `json:"timeout"`
	RetryMax     int           `json:"retry_max"`
	ClientID     string        `json:"client_id,omitempty"`
	ClientSecret string        `json:"client_secret,omitempty"`
	TokenURL     string        `json:"token_url,omitempty"`
}

func (t *WebhookTask) Kind() string { return WebhookKind }

// Run sends the event and logs any failure to stderr.
func (t *WebhookTask) Run() {
	logger := shared.NewLogger(os.Stderr).With("task", WebhookKind, "event", t.Event.Event)

	ctx := context.Background()
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	if err := t.Send(ctx, logger); err != nil {
		logger.Error("webhook delivery failed", "url", t.URL, "err", err)
		return
	}
	logger.Debug("webhook delivered", "url", t.URL)
}

// Send posts the event, retrying transient failures up to RetryMax times.
func (t *WebhookTask) Send(ctx context.Context, logger *log.Logger) error {
	body, err := json.Marshal(t.Event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = t.RetryMax
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Logger = nil
	if logger != nil {
		client.Logger = logger.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel})
	}
	if t.ClientID != "" && t.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     t.ClientID,
			ClientSecret: t.ClientSecret,
			TokenURL:     t.TokenURL,
		}
		client.HTTPClient = cc.Client(ctx)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, t.URL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "decklog")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: webhook returned %s", shared.ErrServiceUnavailable, resp.Status)
	}
	return nil
}

// WebhookNotifier turns now-playing and scrobble events into [WebhookTask] dispatches.
//
// Events beyond the configured rate are dropped with a warning rather than queued.
type WebhookNotifier struct {
	cfg        shared.WebhookConfig
	dispatcher Dispatcher
	limiter    *rate.Limiter
	logger     *log.Logger
	now        func() time.Time
	tick       uint64
}

// NewWebhookNotifier creates a [WebhookNotifier] for cfg.
func NewWebhookNotifier(cfg shared.WebhookConfig, dispatcher Dispatcher, logger *log.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		cfg:        cfg,
		dispatcher: dispatcher,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		logger:     logger.With("notifier", "webhook"),
		now:        time.Now,
	}
}

func (n *WebhookNotifier) Name() string { return WebhookKind }

// OnTick remembers the tick number stamped on outgoing events.
func (n *WebhookNotifier) OnTick(tick models.Tick) {
	n.tick = tick.Number
}

func (n *WebhookNotifier) OnNowPlaying(entry models.Entry) {
	n.notify(shared.EventNowPlaying, entry)
}

func (n *WebhookNotifier) OnScrobble(entry models.Entry) {
	n.notify(shared.EventScrobble, entry)
}

func (n *WebhookNotifier) notify(event string, entry models.Entry) {
	if !n.cfg.Wants(event) {
		return
	}
	if !n.limiter.Allow() {
		n.logger.Warn("webhook rate limit exceeded, dropping event", "event", event, "entry", entry.String())
		return
	}

	n.dispatcher.Dispatch(&WebhookTask{
		URL:          n.cfg.URL,
		Event:        Event{Event: event, Tick: n.tick, SentAt: n.now(), Entry: entry},
		Timeout:      n.cfg.Timeout,
		RetryMax:     n.cfg.RetryMax,
		ClientID:     n.cfg.ClientID,
		ClientSecret: n.cfg.ClientSecret,
		TokenURL:     n.cfg.TokenURL,
	})
}
