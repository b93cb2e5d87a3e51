package ratelimit

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Skotchmaster/temurun/pkg/logging"
	"github.com/Skotchmaster/temurun/pkg/middleware/metrics"
)

const (
	ActionAdminSignIn    = "admin_signin"
	ActionCheckoutSubmit = "checkout_submit"
)

// UnknownIP keys requests that carry no forwarding headers.
const UnknownIP = "0.0.0.0"

// Store persists attempt timestamps per (action, key).
type Store interface {
	Count(ctx context.Context, action, key string, since time.Time) (int64, error)
	// Oldest returns the zero time when nothing is in the window.
	Oldest(ctx context.Context, action, key string, since time.Time) (time.Time, error)
	Record(ctx context.Context, action, key string, at time.Time, window time.Duration) error
}

type Result struct {
	Allowed   bool
	Remaining int
	// RetryAfter is whole seconds, at least 1 when not allowed.
	RetryAfter int
	FailedOpen bool
}

// Limiter is a sliding-window counter. A store failure allows the attempt
// unless Strict is set, in which case the attempt is denied for one window.
type Limiter struct {
	Store  Store
	Strict bool
	Now    func() time.Time
}

func (l *Limiter) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Limiter) Check(ctx context.Context, action, key string, limit int, window time.Duration) Result {
	now := l.now()
	since := now.Add(-window)

	count, err := l.Store.Count(ctx, action, key, since)
	if err != nil {
		return l.storeFailure(ctx, action, window, err)
	}

	if count >= int64(limit) {
		oldest, err := l.Store.Oldest(ctx, action, key, since)
		if err != nil {
			return l.storeFailure(ctx, action, window, err)
		}
		retry := window
		if !oldest.IsZero() {
			retry = window - now.Sub(oldest)
		}
		metrics.RecordRateLimit(action, metrics.DecisionBlocked)
		return Result{Allowed: false, RetryAfter: ceilSeconds(retry)}
	}

	if err := l.Store.Record(ctx, action, key, now, window); err != nil {
		return l.storeFailure(ctx, action, window, err)
	}

	metrics.RecordRateLimit(action, metrics.DecisionAllowed)
	return Result{Allowed: true, Remaining: limit - int(count) - 1}
}

func (l *Limiter) storeFailure(ctx context.Context, action string, window time.Duration, err error) Result {
	log := logging.FromContext(ctx).With("component", "rate_limiter", "action", action)

	if l.Strict {
		log.Error("rate_limit_store_error", "policy", "fail_closed", "reason", Classify(err), "error", err)
		metrics.RecordRateLimit(action, metrics.DecisionFailClosed)
		return Result{Allowed: false, RetryAfter: ceilSeconds(window)}
	}

	log.Warn("rate_limit_store_error", "policy", "fail_open", "reason", Classify(err), "error", err)
	metrics.RecordRateLimit(action, metrics.DecisionFailOpen)
	return Result{Allowed: true, FailedOpen: true}
}

// Classify names the store failure for logs; a missing table silently disables protection.
func Classify(err error) string {
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pqErr):
		return pqErr.Code.Name()
	case strings.Contains(err.Error(), "no such table"):
		return "undefined_table"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "unavailable"
	}
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// ClientIP is the first X-Forwarded-For hop, then X-Real-IP, then UnknownIP.
func ClientIP(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if rip := strings.TrimSpace(h.Get("X-Real-IP")); rip != "" {
		return rip
	}
	return UnknownIP
}
