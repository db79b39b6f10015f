package core

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a KVStore when a key is absent or expired
var ErrNotFound = errors.New("key not found")

// KVStore defines the key-value store every record is persisted in
type KVStore interface {
	// Get retrieves the value stored under key
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key; a zero ttl means no expiry
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key, it is not an error if the key is absent
	Delete(ctx context.Context, key string) error

	// List returns the live keys starting with prefix, sorted
	List(ctx context.Context, prefix string) ([]string, error)
}

// Completer defines the interface for the text-completion service
type Completer interface {
	// Complete sends a system prompt and conversation and returns the reply text
	Complete(ctx context.Context, system string, messages []Message) (string, error)
}

// MailTransport delivers outbound email
type MailTransport interface {
	// Send delivers a message
	Send(ctx context.Context, mail *OutboundMail) error
}

// WeatherSource fetches current conditions for a region
type WeatherSource interface {
	// FetchRegion returns the current weather for a region
	FetchRegion(ctx context.Context, region Region) (*RegionWeather, error)
}

// ContactBlocklist decides which addresses never receive follow-ups
type ContactBlocklist interface {
	// IsBlocked reports whether an address is blocked
	IsBlocked(address string) bool
}
