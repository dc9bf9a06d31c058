package twilio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	twilio "github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// ErrNotConfigured is returned when credentials or the sender number are missing.
var ErrNotConfigured = errors.New("twilio client not initialised")

// Client wraps Twilio messaging operations used for reminder delivery.
type Client struct {
	client       *twilio.RestClient
	fromWhatsApp string
	fromSMS      string
	log          zerolog.Logger
}

// New creates a Twilio client bound to the configured WhatsApp and SMS sender numbers.
// Either sender may be empty, in which case that channel reports ErrNotConfigured.
func New(accountSID, authToken, fromWhatsApp, fromSMS string, log zerolog.Logger) *Client {
	c := &Client{
		fromWhatsApp: fromWhatsApp,
		fromSMS:      fromSMS,
		log:          log,
	}
	if accountSID != "" && authToken != "" {
		c.client = twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken})
	}
	return c
}

// SendWhatsAppMessage sends a WhatsApp message via Twilio's API.
func (c *Client) SendWhatsAppMessage(to, body string) error {
	sender := normalizeWhatsAppAddress(c.fromWhatsApp)
	if sender == "" {
		return fmt.Errorf("%w: WhatsApp sender number is not configured", ErrNotConfigured)
	}
	recipient := normalizeWhatsAppAddress(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}
	return c.create(sender, recipient, body, "whatsapp")
}

// SendSMS sends a plain SMS via Twilio's API.
func (c *Client) SendSMS(to, body string) error {
	sender := normalizePhoneNumber(c.fromSMS)
	if sender == "" {
		return fmt.Errorf("%w: SMS sender number is not configured", ErrNotConfigured)
	}
	recipient := normalizePhoneNumber(to)
	if recipient == "" {
		return fmt.Errorf("recipient number missing or invalid")
	}
	return c.create(sender, recipient, body, "sms")
}

func (c *Client) create(from, to, body, channel string) error {
	if c.client == nil {
		return ErrNotConfigured
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := c.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("twilio send message error: %w", err)
	}

	ev := c.log.Debug().Str("channel", channel).Str("to", to)
	if resp != nil && resp.Sid != nil {
		ev = ev.Str("sid", *resp.Sid)
	}
	ev.Msg("twilio message sent")
	return nil
}

func normalizeWhatsAppAddress(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "whatsapp:") {
		return trimmed
	}
	return "whatsapp:" + normalizePhoneNumber(trimmed)
}

func normalizePhoneNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "+") {
		return trimmed
	}
	return "+" + trimmed
}
