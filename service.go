package tracker

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// gate runs the policy for services and reports denials.
type gate struct {
	logger       Logger
	activitySink ActivitySink
}

func newGate(logger Logger, sink ActivitySink) gate {
	return gate{logger: normalizeLogger(logger), activitySink: normalizeActivitySink(sink)}
}

func (g gate) authorize(ctx context.Context, p Principal, verb Verb, target Target) error {
	err := authorizeErr(p, verb, target)
	if err == nil {
		return nil
	}

	event := ActivityEvent{
		EventType: ActivityEventAccessDenied,
		Reason:    Authorize(p, verb, target).String(),
		Metadata: map[string]any{
			"verb":     verb.String(),
			"resource": target.Kind.String(),
		},
	}
	if !p.IsAnonymous() {
		event.UserID = p.ID().String()
	}
	recordActivity(ctx, g.activitySink, g.logger, event)
	g.logger.Debug("access denied", "verb", verb.String(), "resource", target.Kind.String(), "anonymous", p.IsAnonymous())
	return err
}

// ServiceOption configures the resource services
type ServiceOption func(*gate)

func WithServiceLogger(logger Logger) ServiceOption {
	return func(g *gate) {
		g.logger = normalizeLogger(logger)
	}
}

func WithServiceActivitySink(sink ActivitySink) ServiceOption {
	return func(g *gate) {
		g.activitySink = normalizeActivitySink(sink)
	}
}

func applyServiceOptions(opts []ServiceOption) gate {
	g := newGate(nil, nil)
	for _, opt := range opts {
		if opt != nil {
			opt(&g)
		}
	}
	return g
}

// parseResourceID treats a malformed id like a missing resource.
func parseResourceID(resource, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, NewNotFoundError(resource, map[string]any{"id": raw})
	}
	return id, nil
}

// IsSelfAlias reports whether ref is the alias for the caller's own profile.
func IsSelfAlias(ref string) bool {
	return strings.EqualFold(strings.TrimSpace(ref), ReservedUsername)
}
