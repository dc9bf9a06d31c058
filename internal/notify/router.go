// Package notify routes outgoing reminder text to a messaging channel.
//
// A channel target has the form "scheme:address", for example "whatsapp:+15550001",
// "sms:+15550001", "telegram:123456789" or "slack:C024BE91L". A target without a
// recognised scheme is sent through the router's default channel.
//
// Every send is bounded by a per-call timeout and a shared token bucket so a slow or
// rate-limited provider cannot stall a whole dispatch run.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelSMS      = "sms"
	ChannelTelegram = "telegram"
	ChannelSlack    = "slack"
)

var (
	ErrUnknownChannel       = errors.New("notify: unknown channel")
	ErrChannelNotConfigured = errors.New("notify: channel not configured")
	ErrEmptyAddress         = errors.New("notify: empty address")
	ErrTimeout              = errors.New("notify: send timed out")
)

var knownChannels = map[string]bool{
	ChannelWhatsApp: true,
	ChannelSMS:      true,
	ChannelTelegram: true,
	ChannelSlack:    true,
}

// Sender delivers text to an address within one channel.
type Sender interface {
	Send(ctx context.Context, address, text string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, address, text string) error

func (f SenderFunc) Send(ctx context.Context, address, text string) error {
	return f(ctx, address, text)
}

// Options configures a Router.
type Options struct {
	DefaultChannel string
	Timeout        time.Duration
	// RatePerSec caps sends across all channels; 0 disables the limit.
	RatePerSec int
}

// Router implements the dispatcher's notifier by selecting a Sender per target.
// It is safe for concurrent use once all senders are registered.
type Router struct {
	senders        map[string]Sender
	defaultChannel string
	timeout        time.Duration
	limiter        *rate.Limiter
	log            zerolog.Logger
}

// NewRouter returns a router with no senders registered.
func NewRouter(opts Options, log zerolog.Logger) *Router {
	if opts.DefaultChannel == "" {
		opts.DefaultChannel = ChannelWhatsApp
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSec > 0 {
		// burst equals the per-second rate
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), opts.RatePerSec)
	}
	return &Router{
		senders:        map[string]Sender{},
		defaultChannel: opts.DefaultChannel,
		timeout:        opts.Timeout,
		limiter:        limiter,
		log:            log,
	}
}

// Register binds a sender to a channel name, replacing any previous one.
func (r *Router) Register(channel string, s Sender) {
	r.senders[strings.ToLower(channel)] = s
}

// Channels lists the configured channel names.
func (r *Router) Channels() []string {
	out := make([]string, 0, len(r.senders))
	for name := range r.senders {
		out = append(out, name)
	}
	return out
}

// Send delivers text to target. It fails with ErrTimeout when the sender does not
// return within the configured timeout.
func (r *Router) Send(ctx context.Context, target, text string) error {
	channel, address := ParseTarget(target, r.defaultChannel)
	if address == "" {
		return fmt.Errorf("%w: target %q", ErrEmptyAddress, target)
	}
	sender, ok := r.senders[channel]
	if !ok {
		if knownChannels[channel] {
			return fmt.Errorf("%w: %s", ErrChannelNotConfigured, channel)
		}
		return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.limiter.Wait(sendCtx); err != nil {
		if cause := ctx.Err(); cause != nil {
			return fmt.Errorf("%s: waiting for rate limit: %w", channel, cause)
		}
		return fmt.Errorf("%w: waiting for rate limit: %w", ErrTimeout, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sender.Send(sendCtx, address, text)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", channel, err)
		}
		r.log.Debug().Str("channel", channel).Msg("message delivered")
		return nil
	case <-sendCtx.Done():
		if cause := ctx.Err(); cause != nil {
			return fmt.Errorf("%s: %w", channel, cause)
		}
		return fmt.Errorf("%w: %s after %s", ErrTimeout, channel, r.timeout)
	}
}

// ParseTarget splits "scheme:address". Targets without a known scheme go to def.
func ParseTarget(target, def string) (channel, address string) {
	target = strings.TrimSpace(target)
	if i := strings.IndexByte(target, ':'); i > 0 {
		scheme := strings.ToLower(target[:i])
		if isScheme(scheme) {
			return scheme, strings.TrimSpace(target[i+1:])
		}
	}
	return strings.ToLower(def), target
}

func isScheme(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return s != ""
}
