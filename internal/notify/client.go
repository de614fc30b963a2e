// Package notify posts messages to the teacher channel through a
// Mattermost-compatible incoming webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aimd54/planet-heroes/internal/config"
	"github.com/aimd54/planet-heroes/pkg/logger"
)

// Client handles webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	username   string
	enabled    bool
	http       *http.Client
	log        *logger.Logger
}

// NewClient creates a new webhook client.
func NewClient(cfg *config.WebhookConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.URL,
		channel:    cfg.Channel,
		username:   cfg.Username,
		enabled:    cfg.Enabled,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Message represents an incoming-webhook payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool { return c.enabled }

// SendMessage posts a message. It is a no-op when the client is disabled.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Webhook is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}
	if msg.Username == "" {
		msg.Username = c.username
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.log.Debug().Str("channel", msg.Channel).Msg("Sent webhook message")
	return nil
}

// DigestStudent is one line of the daily leaderboard.
type DigestStudent struct {
	Name   string
	Points int
	Badges int
}

// Digest is the daily class summary posted to teachers.
type Digest struct {
	Date          time.Time
	TotalStudents int
	AverageScore  int
	TotalBadges   int
	ActiveToday   int
	RoundsToday   int64
	Top           []DigestStudent
}

// SendClassDigest posts the daily class summary.
func (c *Client) SendClassDigest(ctx context.Context, d Digest) error {
	var b strings.Builder
	fmt.Fprintf(&b, "### 🌍 Planet Heroes daily digest (%s)\n\n", d.Date.Format("Mon 2 Jan"))
	if d.TotalStudents == 0 {
		b.WriteString("No students have signed in yet.")
		return c.SendMessage(ctx, &Message{Text: b.String()})
	}

	fmt.Fprintf(&b, "**%d** of %d students played in the last day, completing **%d** rounds.\n",
		d.ActiveToday, d.TotalStudents, d.RoundsToday)

	if len(d.Top) > 0 {
		b.WriteString("\n| # | Student | Points | Badges |\n|---|---|---|---|\n")
		medals := []string{"🥇", "🥈", "🥉"}
		for i, s := range d.Top {
			place := fmt.Sprintf("%d", i+1)
			if i < len(medals) {
				place = medals[i]
			}
			fmt.Fprintf(&b, "| %s | %s | %d | %d |\n", place, s.Name, s.Points, s.Badges)
		}
	}

	return c.SendMessage(ctx, &Message{
		Text: b.String(),
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("Average score %d, %d badges", d.AverageScore, d.TotalBadges),
			Color:    "#22c55e",
			Fields: []Field{
				{Short: true, Title: "Average score", Value: fmt.Sprintf("%d", d.AverageScore)},
				{Short: true, Title: "Badges earned", Value: fmt.Sprintf("%d", d.TotalBadges)},
			},
		}},
	})
}
