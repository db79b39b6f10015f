package ports

import (
	"context"

	"github.com/proofofcorn/farmer-fred/internal/core"
)

// Triager runs the triage pipeline on one received email
type Triager interface {
	// HandleInbound classifies, stores and raises side effects for a message
	HandleInbound(ctx context.Context, raw *core.RawInbound) (*core.InboundMessage, error)
}

// InboundListener defines the interface for an inbound mail trigger
type InboundListener interface {
	// ProcessMessage parses a raw MIME message and hands it to the triage pipeline.
	// A non-empty sender is the envelope sender and wins over the From header.
	ProcessMessage(ctx context.Context, sender string, raw []byte) (*core.InboundMessage, error)

	// Start starts the listener
	Start() error

	// Stop stops the listener
	Stop() error
}
