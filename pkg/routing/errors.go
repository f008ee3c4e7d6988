package routing

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProfile is the only user-visible failure of LoadProfile.
	ErrUnknownProfile = errors.New("unknown profile")
	// ErrRefusedCritical means the whole operation targeted a critical client.
	ErrRefusedCritical = errors.New("refused: client is critical")
	// ErrNoSourcePorts means the new source client has no source ports.
	ErrNoSourcePorts = errors.New("no source ports")
	// ErrNoSinkPorts means the target client has no sink ports.
	ErrNoSinkPorts = errors.New("no sink ports")
)

// Pair is one intended connection.
type Pair struct {
	Source string `json:"source"`
	Sink   string `json:"sink"`
}

// PartialError reports an input switch in which some of the intended
// connections failed. The failed pairs are carried for inspection.
type PartialError struct {
	Failed []Pair
}

func (e *PartialError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, p := range e.Failed {
		parts = append(parts, p.Source+" -> "+p.Sink)
	}
	return fmt.Sprintf("input switch partially failed: %s", strings.Join(parts, ", "))
}

// IsPartial extracts a PartialError if err carries one.
func IsPartial(err error) (*PartialError, bool) {
	var pe *PartialError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
