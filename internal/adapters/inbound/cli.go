package inbound

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/proofofcorn/farmer-fred/internal/core"
	"github.com/proofofcorn/farmer-fred/internal/ports"
	"github.com/proofofcorn/farmer-fred/internal/utils"
)

const cliPreviewLength = 500

// CLIProcessor triages one message from the command line and prints the verdict
type CLIProcessor struct {
	triager ports.Triager
	logger  *zap.Logger
	out     io.Writer
	verbose bool
}

// NewCLIProcessor creates a new CLI processor
func NewCLIProcessor(triager ports.Triager, logger *zap.Logger, out io.Writer, verbose bool) *CLIProcessor {
	return &CLIProcessor{
		triager: triager,
		logger:  logger,
		out:     out,
		verbose: verbose,
	}
}

// ProcessMessage parses, triages and reports a raw message
func (c *CLIProcessor) ProcessMessage(ctx context.Context, sender string, raw []byte) (*core.InboundMessage, error) {
	parsed, err := ParseMessage(raw)
	if err != nil {
		c.logger.Error("Failed to parse message", zap.Error(err))
		return nil, err
	}
	if sender != "" {
		parsed.From = sender
	}
	c.logger.Debug("Processing email", zap.String("sender", core.RedactEmail(parsed.From)))

	fmt.Fprintf(c.out, "\n=== Email Summary ===\n")
	fmt.Fprintf(c.out, "From: %s\n", parsed.From)
	fmt.Fprintf(c.out, "To: %s\n", strings.Join(parsed.To, ", "))
	fmt.Fprintf(c.out, "Subject: %s\n", parsed.Subject)
	fmt.Fprintf(c.out, "Body length: %d bytes\n", len(parsed.Body))
	if c.verbose {
		fmt.Fprintf(c.out, "\nBody preview:\n%s\n", utils.Preview(parsed.Body, cliPreviewLength))
	}

	start := time.Now()
	msg, err := c.triager.HandleInbound(ctx, parsed)
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
		return nil, err
	}

	fmt.Fprintf(c.out, "\n=== Results ===\n")
	fmt.Fprintf(c.out, "ID: %s\n", msg.ID)
	fmt.Fprintf(c.out, "Category: %s\n", msg.Category)
	if v := msg.SecurityCheck; v != nil {
		fmt.Fprintf(c.out, "Safe: %t\n", v.IsSafe)
		fmt.Fprintf(c.out, "Threat: %s\n", v.Threat)
		fmt.Fprintf(c.out, "Confidence: %.2f\n", v.Confidence)
		fmt.Fprintf(c.out, "Recommendation: %s\n", v.Recommendation)
		if len(v.FlaggedPatterns) > 0 {
			fmt.Fprintf(c.out, "Flagged patterns:\n")
			for _, p := range v.FlaggedPatterns {
				fmt.Fprintf(c.out, "  - %s\n", p)
			}
		}
	}
	fmt.Fprintf(c.out, "Processing time: %v\n", time.Since(start))

	return msg, nil
}

// Start is a no-op for the CLI processor
func (c *CLIProcessor) Start() error {
	return nil
}

// Stop is a no-op for the CLI processor
func (c *CLIProcessor) Stop() error {
	return nil
}
