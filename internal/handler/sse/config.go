package sse

import "time"

// Config holds configuration for SSE connections
type Config struct {
	// KeepAliveInterval is how often to send keep-alive pings to prevent
	// proxies from closing a stream while the model is thinking
	KeepAliveInterval time.Duration

	// BufferSize bounds the events queued between a generation and the
	// connection. A full buffer blocks the generation.
	BufferSize int
}

// DefaultConfig returns the default SSE configuration
// 10 seconds is safe for most proxies
func DefaultConfig() *Config {
	return &Config{
		KeepAliveInterval: 10 * time.Second,
		BufferSize:        16,
	}
}
