package config

import "time"

// SessionConfig controls how browser clients are tracked and how long their tokens persist.
type SessionConfig struct {
	// CookieName holds the opaque client identifier issued to each browser.
	CookieName string `env:"COOKIE_NAME" envDefault:"kb_client"`

	// TokenTTL bounds how long a persisted token is kept; an earlier exp claim wins.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	// KeyPrefix namespaces persisted tokens in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"kbweb:token:"`

	// RegistryCapacity bounds the number of live client sessions kept in memory.
	RegistryCapacity int `env:"REGISTRY_CAPACITY" envDefault:"10000"`

	// RegistryIdleTTL evicts client sessions that have not been touched for this long.
	RegistryIdleTTL time.Duration `env:"REGISTRY_IDLE_TTL" envDefault:"2h"`

	// SweepInterval is how often idle clients are dropped in the background; 0 disables the sweep.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`

	// ResolveWait is how long a guarded request waits for the initial session
	// resolution before a loading page is rendered instead.
	ResolveWait time.Duration `env:"RESOLVE_WAIT" envDefault:"1500ms"`

	// TranscriptLimit bounds the chat messages retained per client.
	TranscriptLimit int `env:"TRANSCRIPT_LIMIT" envDefault:"200"`
}

// Sanitize clamps values to usable ranges.
func (c *SessionConfig) Sanitize() {
	if c.CookieName == "" {
		c.CookieName = "kb_client"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "kbweb:token:"
	}
	if c.RegistryCapacity < 1 {
		c.RegistryCapacity = 1
	}
	if c.RegistryIdleTTL <= 0 {
		c.RegistryIdleTTL = 2 * time.Hour
	}
	if c.SweepInterval < 0 {
		c.SweepInterval = 0
	}
	if c.ResolveWait < 0 {
		c.ResolveWait = 0
	}
	if c.TranscriptLimit < 1 {
		c.TranscriptLimit = 200
	}
}
