package tablet

import (
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attr(s sdktrace.ReadOnlySpan, key attribute.Key) string {
	for _, kv := range s.Attributes() {
		if kv.Key == key {
			return kv.Value.Emit()
		}
	}
	return ""
}

func TestClient_SpansPerCall(t *testing.T) {
	rec := recordSpans(t)
	c := newRestaurant(t, 1, true)
	ctx := ctxT(t)
	table, item := firstTable(t, c), menu(t, c)[0]

	o, err := c.PostOrder(ctx, table.ID, item.ID)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if _, found, _ := c.Order(ctx, table.ID, domain.NewOrderID()); found {
		t.Fatalf("unknown order found")
	}
	if _, err := c.PostOrder(ctx, domain.NewTableID(), item.ID); !errors.Is(err, ErrOrderRejected) {
		t.Fatalf("rejected post err = %v", err)
	}

	spans := rec.Ended()
	var names []string
	for _, s := range spans {
		names = append(names, s.Name())
		if s.SpanKind() != trace.SpanKindClient {
			t.Fatalf("span %s kind = %v; want client", s.Name(), s.SpanKind())
		}
	}
	want := []string{"Tables", "MenuItems", "PostOrder", "Order", "PostOrder"}
	if len(names) != len(want) {
		t.Fatalf("spans = %v; want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("spans = %v; want %v", names, want)
		}
	}

	posted := spans[2]
	if attr(posted, "table.id") != table.ID.String() || attr(posted, "order.id") != o.ID.String() {
		t.Fatalf("post span attributes = %v", posted.Attributes())
	}
	if posted.Status().Code == codes.Error {
		t.Fatalf("successful post marked as error")
	}
	if attr(spans[3], "order.found") != "false" {
		t.Fatalf("lookup span attributes = %v", spans[3].Attributes())
	}

	rejected := spans[4]
	if rejected.Status().Code != codes.Error || len(rejected.Events()) == 0 {
		t.Fatalf("rejected post should record the error: status=%v events=%d",
			rejected.Status(), len(rejected.Events()))
	}
}
