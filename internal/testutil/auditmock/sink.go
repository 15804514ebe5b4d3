package auditmock

import (
	"context"

	"loan-ledger/internal/domain/audit"
)

var _ audit.Repository = (*Sink)(nil)

// Sink keeps audit events in memory. Set Err to make Append fail.
type Sink struct {
	Events []audit.Event
	Err    error
}

func (s *Sink) Append(_ context.Context, e *audit.Event) error {
	if s.Err != nil {
		return s.Err
	}
	s.Events = append(s.Events, *e)
	return nil
}

func (s *Sink) ListByEntityID(_ context.Context, entityID string) ([]audit.Event, error) {
	var out []audit.Event
	for _, e := range s.Events {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Actions lists recorded actions in order.
func (s *Sink) Actions() []audit.Action {
	out := make([]audit.Action, 0, len(s.Events))
	for _, e := range s.Events {
		out = append(out, e.Action)
	}
	return out
}
