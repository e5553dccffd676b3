package channel

import (
	"errors"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// Default configuration values.
const (
	DefaultURL                  = "ws://localhost:3001/ws"
	DefaultOrigin               = "http://localhost/"
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelayMS     = 1000
	DefaultReconnectDelayMaxMS  = 5000
	DefaultTimeoutMS            = 20000
	DefaultAckTimeoutMS         = 10000
	DefaultEmitRate             = 20
	DefaultEmitBurst            = 10
)

// Config defines the event channel's endpoint and retry policy.
type Config struct {
	// URL is the websocket endpoint of the event server.
	URL string `yaml:"url" toml:"url"`

	// Origin is sent in the websocket handshake.
	Origin string `yaml:"origin" toml:"origin"`

	// MaxReconnectAttempts is the number of failed dials after which a connect
	// or reconnect cycle gives up. Default: 5
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts" toml:"max_reconnect_attempts"`

	// ReconnectDelayMS is the first backoff delay. Default: 1000
	ReconnectDelayMS int `yaml:"reconnect_delay_ms" toml:"reconnect_delay_ms"`

	// ReconnectDelayMaxMS caps every backoff delay. Default: 5000
	ReconnectDelayMaxMS int `yaml:"reconnect_delay_max_ms" toml:"reconnect_delay_max_ms"`

	// TimeoutMS bounds a single dial including the auth handshake. Default: 20000
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`

	// AckTimeoutMS bounds the wait for an emit acknowledgement. Default: 10000
	AckTimeoutMS int `yaml:"ack_timeout_ms" toml:"ack_timeout_ms"`

	// EmitRate is the sustained number of emits per second. Default: 20
	EmitRate float64 `yaml:"emit_rate" toml:"emit_rate"`

	// EmitBurst is the number of emits allowed at once. Default: 10
	EmitBurst int `yaml:"emit_burst" toml:"emit_burst"`
}

// DefaultConfig returns the reference channel configuration.
func DefaultConfig() Config {
	return Config{
		URL:                  DefaultURL,
		Origin:               DefaultOrigin,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		ReconnectDelayMS:     DefaultReconnectDelayMS,
		ReconnectDelayMaxMS:  DefaultReconnectDelayMaxMS,
		TimeoutMS:            DefaultTimeoutMS,
		AckTimeoutMS:         DefaultAckTimeoutMS,
		EmitRate:             DefaultEmitRate,
		EmitBurst:            DefaultEmitBurst,
	}
}

// GetURL returns the endpoint with default fallback.
func (c *Config) GetURL() string {
	if c.URL == "" {
		return DefaultURL
	}
	return c.URL
}

// GetOrigin returns the handshake origin with default fallback.
func (c *Config) GetOrigin() string {
	if c.Origin == "" {
		return DefaultOrigin
	}
	return c.Origin
}

// GetMaxReconnectAttempts returns the attempt ceiling or default 5.
func (c *Config) GetMaxReconnectAttempts() int {
	if c.MaxReconnectAttempts <= 0 {
		return DefaultMaxReconnectAttempts
	}
	return c.MaxReconnectAttempts
}

// GetReconnectDelay returns the first backoff delay.
func (c *Config) GetReconnectDelay() time.Duration {
	if c.ReconnectDelayMS <= 0 {
		return time.Duration(DefaultReconnectDelayMS) * time.Millisecond
	}
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// GetReconnectDelayMax returns the backoff cap.
func (c *Config) GetReconnectDelayMax() time.Duration {
	if c.ReconnectDelayMaxMS <= 0 {
		return time.Duration(DefaultReconnectDelayMaxMS) * time.Millisecond
	}
	return time.Duration(c.ReconnectDelayMaxMS) * time.Millisecond
}

// GetTimeout returns the per-dial timeout.
func (c *Config) GetTimeout() time.Duration {
	if c.TimeoutMS <= 0 {
		return time.Duration(DefaultTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// GetAckTimeout returns the emit acknowledgement timeout.
func (c *Config) GetAckTimeout() time.Duration {
	if c.AckTimeoutMS <= 0 {
		return time.Duration(DefaultAckTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.AckTimeoutMS) * time.Millisecond
}

// GetEmitLimit returns the emit rate limit. A negative rate disables limiting.
func (c *Config) GetEmitLimit() (rate.Limit, int) {
	switch {
	case c.EmitRate < 0:
		return rate.Inf, 0
	case c.EmitRate == 0:
		return rate.Limit(DefaultEmitRate), DefaultEmitBurst
	}
	burst := c.EmitBurst
	if burst <= 0 {
		burst = DefaultEmitBurst
	}
	return rate.Limit(c.EmitRate), burst
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GetURL())
	if err != nil {
		return errors.New("channel: invalid url: " + err.Error())
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("channel: url scheme must be ws or wss")
	}
	if c.ReconnectDelayMS > 0 && c.ReconnectDelayMaxMS > 0 && c.ReconnectDelayMS > c.ReconnectDelayMaxMS {
		return errors.New("channel: reconnect_delay_ms must not exceed reconnect_delay_max_ms")
	}
	if c.MaxReconnectAttempts < 0 {
		return errors.New("channel: max_reconnect_attempts must be >= 0")
	}
	return nil
}
