package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// messageHeaders lets the text map propagator read and write kafka headers.
type messageHeaders struct {
	msg *kafka.Message
}

var _ propagation.TextMapCarrier = messageHeaders{}

func (h messageHeaders) Get(key string) string {
	for _, hdr := range h.msg.Headers {
		if hdr.Key == key {
			return string(hdr.Value)
		}
	}
	return ""
}

func (h messageHeaders) Set(key, value string) {
	for i := range h.msg.Headers {
		if h.msg.Headers[i].Key == key {
			h.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	h.msg.Headers = append(h.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (h messageHeaders) Keys() []string {
	keys := make([]string, len(h.msg.Headers))
	for i, hdr := range h.msg.Headers {
		keys[i] = hdr.Key
	}
	return keys
}

// injectTraceContext stamps the span context of ctx onto msg so consumers of
// activity topics can join the client's trace.
func injectTraceContext(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, messageHeaders{msg: msg})
}
