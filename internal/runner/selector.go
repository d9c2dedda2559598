package runner

import (
	"fmt"
	"strings"

	"vistora/internal/domain"
)

// Names lists the accepted runner names in documentation order.
func Names() []string { return []string{NameAuto, NameSimulated, NameExternal} }

var aliases = map[string]string{
	"":            NameAuto,
	NameAuto:      NameAuto,
	NameSimulated: NameSimulated,
	"dry-run":     NameSimulated,
	"dryrun":      NameSimulated,
	NameExternal:  NameExternal,
	"lada-cli":    NameExternal,
}

// Normalize maps a runner name or alias to its canonical name.
func Normalize(name string) (string, error) {
	n, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: unsupported runner %q", domain.ErrInvalidArgument, name)
	}
	return n, nil
}

// Selector resolves a runner name to a concrete Runner. For "auto" the order is
// fixed: external when its binary is on PATH, otherwise simulated.
type Selector struct {
	Simulated Runner
	External  Runner
}

func NewSelector(sim *Simulated, ext *External) *Selector {
	s := &Selector{Simulated: sim}
	if ext != nil {
		s.External = ext
	}
	return s
}

// Select returns the guarded runner for name.
func (s *Selector) Select(name string) (Runner, error) {
	n, err := Normalize(name)
	if err != nil {
		return nil, err
	}
	switch n {
	case NameSimulated:
		return Guard(s.Simulated), nil
	case NameExternal:
		if s.External == nil || !s.External.Available() {
			return nil, fmt.Errorf("%w: external runner binary not found", ErrRunnerUnavailable)
		}
		return Guard(s.External), nil
	default:
		if s.External != nil && s.External.Available() {
			return Guard(s.External), nil
		}
		return Guard(s.Simulated), nil
	}
}

// Availability reports Available() for each concrete runner.
func (s *Selector) Availability() map[string]bool {
	out := map[string]bool{NameSimulated: s.Simulated != nil && s.Simulated.Available()}
	out[NameExternal] = s.External != nil && s.External.Available()
	return out
}
