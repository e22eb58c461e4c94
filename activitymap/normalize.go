package activitymap

import (
	"context"
	"strings"
	"time"

	tracker "github.com/goliatone/go-tracker"
)

const (
	// MetadataKeyReason stores ActivityEvent.Reason.
	MetadataKeyReason = "reason"
	// MetadataKeyUsername stores the username the event was about.
	MetadataKeyUsername = "username"
)

const (
	channelAuth       = "auth"
	channelAuthz      = "authz"
	defaultObjectType = "user"
	anonymousActorID  = "anonymous"
)

// Normalized is a transport agnostic audit record.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	actorFallback string
	now           func() time.Time
}

// Normalize converts a tracker.ActivityEvent into an audit record. Access
// denials are filed under the authz channel with the denied resource as
// object type, everything else under auth against the user.
func Normalize(event tracker.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{actorFallback: anonymousActorID, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	out := Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.UserID), options.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: defaultObjectType,
		ObjectID:   strings.TrimSpace(event.UserID),
		Channel:    channelAuth,
		Metadata:   normalizeMetadata(event),
		OccurredAt: event.OccurredAt,
	}

	if event.EventType == tracker.ActivityEventAccessDenied {
		out.Channel = channelAuthz
		out.ObjectID = ""
		if resource, ok := event.Metadata["resource"].(string); ok && resource != "" {
			out.ObjectType = resource
		}
	}

	if out.OccurredAt.IsZero() {
		out.OccurredAt = options.now().UTC()
	}
	return out
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			opts.actorFallback = actorID
		}
	}
}

// WithClock overrides the time source for events without a timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

func normalizeMetadata(event tracker.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	set := func(key, value string) {
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}
	set(MetadataKeyReason, strings.TrimSpace(event.Reason))
	set(MetadataKeyUsername, strings.TrimSpace(event.Username))
	return metadata
}

// LogSink writes normalized records to a logger.
type LogSink struct {
	logger tracker.Logger
	opts   []Option
}

var _ tracker.ActivitySink = (*LogSink)(nil)

func NewLogSink(logger tracker.Logger, opts ...Option) *LogSink {
	return &LogSink{logger: logger, opts: opts}
}

// Record implements tracker.ActivitySink.
func (s *LogSink) Record(_ context.Context, event tracker.ActivityEvent) error {
	n := Normalize(event, s.opts...)
	s.logger.Info("audit",
		"channel", n.Channel,
		"verb", n.Verb,
		"actor_id", n.ActorID,
		"object_type", n.ObjectType,
		"object_id", n.ObjectID,
		"metadata", n.Metadata,
		"occurred_at", n.OccurredAt,
	)
	return nil
}

// Tee fans an event out to every sink, nil sinks are skipped. All sinks
// see the event even when an earlier one fails; the first error is
// returned.
func Tee(sinks ...tracker.ActivitySink) tracker.ActivitySink {
	return tracker.ActivitySinkFunc(func(ctx context.Context, event tracker.ActivityEvent) error {
		var first error
		for _, s := range sinks {
			if s == nil {
				continue
			}
			if err := s.Record(ctx, event); err != nil && first == nil {
				first = err
			}
		}
		return first
	})
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
