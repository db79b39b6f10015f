package blocklist

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// DefaultPatterns match bounce, no-reply and system senders
var DefaultPatterns = []string{
	`@bounce\.`,
	`@send\.`,
	`^0[0-9a-f]{10,}`,
	`^bounces?[+\-@]`,
	`noreply@`,
	`no-reply@`,
	`donotreply@`,
	`do-not-reply@`,
	`mailer-daemon@`,
	`postmaster@`,
	`notifications?@`,
	`@.*\.workers\.dev$`,
}

// Checker decides which addresses never get follow-up tracking
type Checker struct {
	patterns  []*regexp.Regexp
	addresses map[string]struct{}
	logger    *zap.Logger
}

// NewChecker compiles the patterns and records exact addresses that are always blocked,
// such as the agent's own address
func NewChecker(patterns []string, addresses []string, logger *zap.Logger) (*Checker, error) {
	c := &Checker{
		addresses: make(map[string]struct{}, len(addresses)),
		logger:    logger,
	}

	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid blocklist pattern %q: %w", p, err)
		}
		c.patterns = append(c.patterns, re)
	}

	for _, a := range addresses {
		if a = normalize(a); a != "" {
			c.addresses[a] = struct{}{}
		}
	}

	if logger != nil {
		logger.Info("Initialized blocklist checker",
			zap.Int("patterns", len(c.patterns)),
			zap.Int("addresses", len(c.addresses)))
	}

	return c, nil
}

// IsBlocked reports whether address is blocked. An empty address is always blocked.
func (c *Checker) IsBlocked(address string) bool {
	address = normalize(address)
	if address == "" {
		return true
	}

	if _, ok := c.addresses[address]; ok {
		c.debug("Address is blocked", address, "exact")
		return true
	}
	for _, re := range c.patterns {
		if re.MatchString(address) {
			c.debug("Address is blocked", address, re.String())
			return true
		}
	}
	return false
}

func (c *Checker) debug(msg, address, rule string) {
	if c.logger != nil {
		c.logger.Debug(msg, zap.String("address", address), zap.String("rule", rule))
	}
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
