package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultURL is the Expo push endpoint.
const DefaultURL = "https://exp.host/--/api/v2/push/send"

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryWaitTime = 500 * time.Millisecond
	defaultRetryMaxWait  = 3 * time.Second
)

var (
	// ErrRejected is returned when Expo accepts the request but refuses the message.
	ErrRejected = errors.New("push: message rejected")

	// ErrNoRecipient is returned when a message has no destination token.
	ErrNoRecipient = errors.New("push: recipient token is required")
)

// Message is one Expo push message.
type Message struct {
	To    string         `json:"to"`
	Sound string         `json:"sound,omitempty"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}

// ticket is Expo's per-message receipt.
type ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details"`
}

type sendResponse struct {
	Data   ticket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors,omitempty"`
}

// Config configures a Sender.
type Config struct {
	URL         string
	AccessToken string // optional, for projects with enhanced push security
	Timeout     time.Duration
	RetryCount  int
}

// Sender posts messages to Expo.
type Sender struct {
	client *resty.Client
	url    string
}

// NewSender creates a sender. Zero values fall back to Expo defaults.
func NewSender(cfg Config) *Sender {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(defaultRetryWaitTime).
		SetRetryMaxWaitTime(defaultRetryMaxWait).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.AccessToken != "" {
		client.SetAuthToken(cfg.AccessToken)
	}

	return &Sender{client: client, url: cfg.URL}
}

// Send delivers msg. A transport failure or non-2xx status is returned as
// an error; an Expo error ticket wraps ErrRejected.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	var result sendResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(msg).
		SetResult(&result).
		SetError(&result).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("posting push message: %w", err)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrRejected, result.Errors[0].Code, result.Errors[0].Message)
	}
	if resp.IsError() {
		return fmt.Errorf("push endpoint returned status %d", resp.StatusCode())
	}
	if result.Data.Status == "error" {
		if result.Data.Details.Error != "" {
			return fmt.Errorf("%w: %s (%s)", ErrRejected, result.Data.Message, result.Data.Details.Error)
		}
		return fmt.Errorf("%w: %s", ErrRejected, result.Data.Message)
	}
	return nil
}
