// Package tablet implements the client side of the dispatcher protocol: a
// blocking request/reply API over a dispatch.Sender, and a simulator that
// drives it with a randomized waiter workload.
//
// Every call allocates its own reply channel with room for exactly one value,
// so the dispatcher never blocks on a client that gave up waiting.
package tablet

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-restaurant-orders/internal/dispatch"
	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

// ErrOrderRejected is returned by PostOrder when the dispatcher refused to
// store the order. The dispatcher's reason is wrapped alongside it.
var ErrOrderRejected = errors.New("order rejected")

const tracerName = "tablet/Client"

// Client issues commands to a dispatcher and waits for the replies. A Client
// is safe for concurrent use; each call is an independent round trip.
type Client struct {
	sender *dispatch.Sender
	tracer trace.Tracer
}

// NewClient wraps sender. The client owns the handle from now on and
// releases it on Close.
func NewClient(sender *dispatch.Sender) *Client {
	return &Client{sender: sender, tracer: otel.Tracer(tracerName)}
}

// Clone returns a client backed by a new handle on the same queue.
func (c *Client) Clone() (*Client, error) {
	s, err := c.sender.Clone()
	if err != nil {
		return nil, err
	}
	return NewClient(s), nil
}

// Close releases the underlying sender handle. Calls made after Close return
// dispatch.ErrSenderReleased.
func (c *Client) Close() { c.sender.Release() }

// Tables returns a snapshot of every table.
func (c *Client) Tables(ctx context.Context) ([]domain.Table, error) {
	ctx, span := c.tracer.Start(ctx, "Tables", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	reply := make(chan []domain.Table, 1)
	out, err := call(ctx, c.sender, dispatch.GetTables{Reply: reply}, reply)
	return out, endSpan(span, err)
}

// MenuItems returns a snapshot of the menu.
func (c *Client) MenuItems(ctx context.Context) ([]domain.MenuItem, error) {
	ctx, span := c.tracer.Start(ctx, "MenuItems", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	reply := make(chan []domain.MenuItem, 1)
	out, err := call(ctx, c.sender, dispatch.GetMenuItems{Reply: reply}, reply)
	return out, endSpan(span, err)
}

// Orders returns the orders currently open at table. Unknown tables simply
// have none.
func (c *Client) Orders(ctx context.Context, table domain.TableID) ([]domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "Orders",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("table.id", table.String())),
	)
	defer span.End()

	reply := make(chan []domain.Order, 1)
	out, err := call(ctx, c.sender, dispatch.GetOrders{TableID: table, Reply: reply}, reply)
	return out, endSpan(span, err)
}

// Order looks an order up by table and id. The bool is false when no order
// matches both.
func (c *Client) Order(ctx context.Context, table domain.TableID, id domain.OrderID) (domain.Order, bool, error) {
	ctx, span := c.tracer.Start(ctx, "Order",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("table.id", table.String()),
			attribute.String("order.id", id.String()),
		),
	)
	defer span.End()

	reply := make(chan dispatch.GetOrderReply, 1)
	r, err := call(ctx, c.sender, dispatch.GetOrder{TableID: table, OrderID: id, Reply: reply}, reply)
	if err != nil {
		return domain.Order{}, false, endSpan(span, err)
	}
	span.SetAttributes(attribute.Bool("order.found", r.Found))
	return r.Order, r.Found, nil
}

// PostOrder places a new order for item at table and returns it as stored.
func (c *Client) PostOrder(ctx context.Context, table domain.TableID, item domain.MenuItemID) (domain.Order, error) {
	ctx, span := c.tracer.Start(ctx, "PostOrder",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("table.id", table.String()),
			attribute.String("menu_item.id", item.String()),
		),
	)
	defer span.End()

	reply := make(chan dispatch.PostOrderReply, 1)
	r, err := call(ctx, c.sender, dispatch.PostOrder{TableID: table, MenuItemID: item, Reply: reply}, reply)
	if err != nil {
		return domain.Order{}, endSpan(span, err)
	}
	if r.Err != nil {
		return domain.Order{}, endSpan(span, fmt.Errorf("%w: %w", ErrOrderRejected, r.Err))
	}
	span.SetAttributes(attribute.String("order.id", r.Order.ID.String()))
	return r.Order, nil
}

// DeleteOrder removes the order with id. Deleting an order that does not
// exist is acknowledged like any other delete.
func (c *Client) DeleteOrder(ctx context.Context, id domain.OrderID) error {
	ctx, span := c.tracer.Start(ctx, "DeleteOrder",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("order.id", id.String())),
	)
	defer span.End()

	reply := make(chan struct{}, 1)
	_, err := call(ctx, c.sender, dispatch.DeleteOrder{OrderID: id, Reply: reply}, reply)
	return endSpan(span, err)
}

// call enqueues cmd and waits for one value on reply.
func call[T any](ctx context.Context, s *dispatch.Sender, cmd dispatch.Command, reply <-chan T) (T, error) {
	var zero T
	if err := s.Send(ctx, cmd); err != nil {
		return zero, fmt.Errorf("send %s: %w", cmd.Kind(), err)
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, fmt.Errorf("await %s: %w", cmd.Kind(), ctx.Err())
	}
}

func endSpan(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
