// Package event records client activity (sign-ins, wishlist and profile
// changes) to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Activity types.
const (
	TypeUserLoggedIn        = "user.logged_in"
	TypeUserRegistered      = "user.registered"
	TypeUserLoggedOut       = "user.logged_out"
	TypeWishlistItemRemoved = "wishlist.item_removed"
	TypeWishlistItemAdded   = "wishlist.item_added"
	TypeProfileFieldUpdated = "profile.field_updated"
)

// SourceCLI identifies events emitted by the storefront client.
const SourceCLI = "storefront-client"

// Activity is one thing the user did.
type Activity struct {
	Type    string
	Subject string // the user email the activity belongs to
	Data    any
}

// Recorder receives activities. Recording is best effort: implementations
// log failures instead of returning them.
type Recorder interface {
	Record(ctx context.Context, a Activity)
}

// Nop discards every activity.
type Nop struct{}

func (Nop) Record(context.Context, Activity) {}

// Publisher is the subset of *pkgkafka.Producer the recorder needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaRecorder publishes activities to storefront.<domain>.<action> topics.
type KafkaRecorder struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewKafkaRecorder creates a recorder publishing through p.
func NewKafkaRecorder(p Publisher, logger *slog.Logger) *KafkaRecorder {
	return &KafkaRecorder{publisher: p, logger: logger}
}

func (r *KafkaRecorder) Record(ctx context.Context, a Activity) {
	topic, aggregate, err := topicFor(a.Type)
	if err != nil {
		r.logger.WarnContext(ctx, "dropping activity", slog.String("error", err.Error()))
		return
	}

	evt, err := pkgkafka.NewEvent(a.Type, a.Subject, aggregate, SourceCLI, a.Data)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to build activity event",
			slog.String("type", a.Type),
			slog.String("error", err.Error()),
		)
		return
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := r.publisher.Publish(ctx, topic, evt); err != nil {
		r.logger.WarnContext(ctx, "failed to record activity",
			slog.String("type", a.Type),
			slog.String("error", err.Error()),
		)
	}
}

// topicFor maps "wishlist.item_removed" to storefront.wishlist.item_removed
// and the aggregate type "wishlist".
func topicFor(activityType string) (topic, aggregate string, err error) {
	domain, action, ok := strings.Cut(activityType, ".")
	if !ok || domain == "" || action == "" {
		return "", "", fmt.Errorf("malformed activity type %q", activityType)
	}
	return pkgkafka.Topic(domain, action), domain, nil
}

// Memory keeps activities in order. It is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex
	activities []Activity
}

func (m *Memory) Record(_ context.Context, a Activity) {
	m.mu.Lock()
	m.activities = append(m.activities, a)
	m.mu.Unlock()
}

// Activities returns a copy of everything recorded so far.
func (m *Memory) Activities() []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Activity(nil), m.activities...)
}

// Types returns the recorded activity types in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.activities))
	for i, a := range m.activities {
		out[i] = a.Type
	}
	return out
}
