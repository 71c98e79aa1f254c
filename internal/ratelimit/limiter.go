// Package ratelimit throttles how often members may file requests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrLimitExceeded is returned alongside a rejected Result.
var ErrLimitExceeded = errors.New("rate limit exceeded")

// Result is the outcome of one check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter rounds the wait until ResetAt up to whole seconds, never below one.
func (r *Result) RetryAfter(now time.Time) int {
	if r == nil {
		return 1
	}
	secs := int(math.Ceil(r.ResetAt.Sub(now).Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// Limiter counts hits for key inside a sliding window. Backends report a
// rejection through Result.Allowed; errors mean the backend itself failed.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
}

// UserKey is the bucket shared by every update from one member.
func UserKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

// CommandKey is the bucket for one member's use of a single command.
func CommandKey(userID int64, command string) string {
	return fmt.Sprintf("cmd:%s:%d", strings.TrimPrefix(command, "/"), userID)
}
