package ratelimit

import (
	"errors"
	"strings"
	"time"

	"github.com/Proton-105/guild-ledger/pkg/config"
)

// ErrNoRule is returned for commands that carry no dedicated limit.
var ErrNoRule = errors.New("no rate limit rule for command")

// Rules resolves configured limits for members and request commands.
type Rules struct {
	config config.RateLimitConfig
}

func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// Enabled reports whether limiting is switched on.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// GetCommandLimit returns the limit and window for a command such as "/deposit".
// Commands without a dedicated rule return ErrNoRule.
func (r *Rules) GetCommandLimit(command string) (int, time.Duration, error) {
	switch strings.TrimPrefix(command, "/") {
	case "deposit":
		return parseRule(r.config.Commands.Deposit)
	case "withdraw":
		return parseRule(r.config.Commands.Withdraw)
	case "register":
		return parseRule(r.config.Commands.Register)
	default:
		return 0, 0, ErrNoRule
	}
}

// GetPerUserLimit returns the rule applied to every update of a member.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" || rule.Limit <= 0 {
		return 0, 0, ErrNoRule
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
