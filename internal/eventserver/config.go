package eventserver

import (
	"errors"
	"strings"
	"time"
)

// Defaults for the development server.
const (
	DefaultListen             = "127.0.0.1:3001"
	DefaultPath               = "/ws"
	DefaultHandshakeTimeoutMS = 10000
	DefaultWriteTimeoutMS     = 10000
)

// Config defines the event server listener and handshake policy.
type Config struct {
	// Listen is the TCP address to bind.
	Listen string `yaml:"listen" toml:"listen"`

	// Path is where the websocket endpoint is mounted.
	Path string `yaml:"path" toml:"path"`

	// Secrets lists the accepted handshake tokens. Empty accepts any non-empty token.
	Secrets []string `yaml:"secrets" toml:"secrets"`

	// HandshakeTimeoutMS bounds the wait for the client's connect frame.
	HandshakeTimeoutMS int `yaml:"handshake_timeout_ms" toml:"handshake_timeout_ms"`

	// WriteTimeoutMS bounds each frame written to a client.
	WriteTimeoutMS int `yaml:"write_timeout_ms" toml:"write_timeout_ms"`
}

// GetListen returns the bind address with default fallback.
func (c *Config) GetListen() string {
	if c.Listen == "" {
		return DefaultListen
	}
	return c.Listen
}

// GetPath returns the websocket path with default fallback.
func (c *Config) GetPath() string {
	if c.Path == "" {
		return DefaultPath
	}
	return c.Path
}

// GetHandshakeTimeout returns the connect-frame deadline.
func (c *Config) GetHandshakeTimeout() time.Duration {
	if c.HandshakeTimeoutMS <= 0 {
		return time.Duration(DefaultHandshakeTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.HandshakeTimeoutMS) * time.Millisecond
}

// GetWriteTimeout returns the per-frame write deadline.
func (c *Config) GetWriteTimeout() time.Duration {
	if c.WriteTimeoutMS <= 0 {
		return time.Duration(DefaultWriteTimeoutMS) * time.Millisecond
	}
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.GetPath(), "/") {
		return errors.New("eventserver: path must start with /")
	}
	for _, s := range c.Secrets {
		if s == "" {
			return errors.New("eventserver: secrets must not contain empty values")
		}
	}
	return nil
}
