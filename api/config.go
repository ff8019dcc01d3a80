package api

import "time"

// Config tunes the HTTP surface.
type Config struct {
	// RequestTimeout bounds every caller request. Webhooks are not bounded so
	// a slow store does not turn into a redelivery storm.
	RequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"30s"`
	MaxBodyBytes   int64         `env:"API_MAX_BODY_BYTES" envDefault:"65536"`
	// MaxWebhookBytes matches the processor's documented payload ceiling.
	MaxWebhookBytes int64 `env:"API_MAX_WEBHOOK_BYTES" envDefault:"1048576"`
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 10
	}
	if c.MaxWebhookBytes <= 0 {
		c.MaxWebhookBytes = 1 << 20
	}
	return c
}
