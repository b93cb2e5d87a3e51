package orders

import (
	"errors"
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusConfirmed      Status = "confirmed"
	StatusPreparing      Status = "preparing"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

// canceledAlias is accepted on input and never stored.
const canceledAlias = "canceled"

var ErrUnknownStatus = errors.New("unknown status")

// All is the display order of the lifecycle.
var All = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

var transitions = map[Status][]Status{
	StatusPending:        {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusPreparing, StatusCancelled},
	StatusPreparing:      {StatusOutForDelivery, StatusCancelled},
	StatusOutForDelivery: {StatusDelivered, StatusCancelled},
	StatusDelivered:      nil,
	StatusCancelled:      nil,
}

// Normalize lower-cases, trims and folds the "canceled" spelling.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == canceledAlias {
		return string(StatusCancelled)
	}
	return s
}

func Parse(raw string) (Status, error) {
	s := Status(Normalize(raw))
	if _, ok := transitions[s]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStatus, strings.TrimSpace(raw))
	}
	return s, nil
}

func (s Status) String() string { return string(s) }

func (s Status) Terminal() bool {
	_, known := transitions[s]
	return known && len(transitions[s]) == 0
}

// Next returns a copy of the statuses reachable from s.
func (s Status) Next() []Status {
	out := make([]Status, len(transitions[s]))
	copy(out, transitions[s])
	return out
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}
