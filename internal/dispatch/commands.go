// Package dispatch implements the single-owner request loop: tablets enqueue
// typed commands on one channel, and a dispatcher goroutine applies them to
// the store one at a time and answers on each command's private reply
// channel.
//
// The command set is closed. Every variant carries its own reply channel type,
// so a PostOrder can only ever be answered with an order and a GetTables only
// with tables.
package dispatch

import (
	"errors"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

// Errors carried in PostOrderReply when order validation is enabled.
var (
	// ErrUnknownTable is returned when PostOrder names a table the store does
	// not know.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownMenuItem is returned when PostOrder names a menu item the
	// store does not know.
	ErrUnknownMenuItem = errors.New("unknown menu item")
)

// Kind names a command variant. It is used for logging and metric labels.
type Kind uint8

const (
	KindPostOrder Kind = iota + 1
	KindDeleteOrder
	KindGetOrders
	KindGetOrder
	KindGetTables
	KindGetMenuItems
)

var kindNames = map[Kind]string{
	KindPostOrder:    "post_order",
	KindDeleteOrder:  "delete_order",
	KindGetOrders:    "get_orders",
	KindGetOrder:     "get_order",
	KindGetTables:    "get_tables",
	KindGetMenuItems: "get_menu_items",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Command is one request for the dispatcher. Only the variants declared in
// this package implement it.
//
// Reply channels must have room for one value (make(chan T, 1)); the
// dispatcher never blocks on a reply and drops it when the channel is full or
// nil.
type Command interface {
	Kind() Kind
	sealed()
}

// PostOrder creates an order for TableID referencing MenuItemID. The order id
// is assigned by the dispatcher.
type PostOrder struct {
	TableID    domain.TableID
	MenuItemID domain.MenuItemID
	Reply      chan<- PostOrderReply
}

// PostOrderReply carries the created order. Err is only set when validation
// is enabled and one of the ids is unknown; nothing is stored in that case.
type PostOrderReply struct {
	Order domain.Order
	Err   error
}

// DeleteOrder removes an order by id. The acknowledgement is sent whether or
// not the order existed.
type DeleteOrder struct {
	OrderID domain.OrderID
	Reply   chan<- struct{}
}

// GetOrders asks for a snapshot of every order at a table.
type GetOrders struct {
	TableID domain.TableID
	Reply   chan<- []domain.Order
}

// GetOrder asks for one order by its composite key (table, order).
type GetOrder struct {
	TableID domain.TableID
	OrderID domain.OrderID
	Reply   chan<- GetOrderReply
}

// GetOrderReply is the answer to GetOrder. Found is false when no order with
// that id exists at that table.
type GetOrderReply struct {
	Order domain.Order
	Found bool
}

// GetTables asks for a snapshot of all tables.
type GetTables struct {
	Reply chan<- []domain.Table
}

// GetMenuItems asks for a snapshot of the menu.
type GetMenuItems struct {
	Reply chan<- []domain.MenuItem
}

func (PostOrder) Kind() Kind    { return KindPostOrder }
func (DeleteOrder) Kind() Kind  { return KindDeleteOrder }
func (GetOrders) Kind() Kind    { return KindGetOrders }
func (GetOrder) Kind() Kind     { return KindGetOrder }
func (GetTables) Kind() Kind    { return KindGetTables }
func (GetMenuItems) Kind() Kind { return KindGetMenuItems }

func (PostOrder) sealed()    {}
func (DeleteOrder) sealed()  {}
func (GetOrders) sealed()    {}
func (GetOrder) sealed()     {}
func (GetTables) sealed()    {}
func (GetMenuItems) sealed() {}
