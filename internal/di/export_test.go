package di

import "github.com/omarluq/skillswap/internal/config"

// ApplyReload runs the reload path without a file watcher.
func (c *ConfigService) ApplyReload(cfg *config.Config) error {
	return c.apply(cfg)
}

// HealthzURL exposes healthzURL for tests.
func HealthzURL(channelURL string) (string, bool) {
	return healthzURL(channelURL)
}
