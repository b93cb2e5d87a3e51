package service

import (
	"strings"

	"github.com/google/uuid"
)

const (
	DirUp   = "up"
	DirDown = "down"
)

// MoveID swaps id with its neighbour in dir. Edges and unknown ids are no-ops.
func MoveID(ids []uuid.UUID, id uuid.UUID, dir string) []uuid.UUID {
	out := append([]uuid.UUID(nil), ids...)
	i := indexOf(out, id)
	if i < 0 {
		return out
	}
	j := i - 1
	if dir == DirDown {
		j = i + 1
	}
	if j < 0 || j >= len(out) {
		return out
	}
	out[i], out[j] = out[j], out[i]
	return out
}

// CoverFirst moves id to the front, keeping the relative order of the rest.
func CoverFirst(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	if indexOf(ids, id) < 0 {
		return append([]uuid.UUID(nil), ids...)
	}
	out := make([]uuid.UUID, 0, len(ids))
	out = append(out, id)
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}

// ApplyOrder returns current reordered by requested. Requested ids that do
// not belong to current are dropped; current ids missing from requested keep
// their relative order at the end.
func ApplyOrder(current, requested []uuid.UUID) []uuid.UUID {
	known := make(map[uuid.UUID]bool, len(current))
	for _, id := range current {
		known[id] = true
	}

	out := make([]uuid.UUID, 0, len(current))
	seen := make(map[uuid.UUID]bool, len(current))
	for _, id := range requested {
		if known[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	for _, id := range current {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

// ParseIDList reads a comma separated list of uuids.
func ParseIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, validationf("Invalid image id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func indexOf(ids []uuid.UUID, id uuid.UUID) int {
	for i, x := range ids {
		if x == id {
			return i
		}
	}
	return -1
}
