// Package domain defines the value types shared by the store, the dispatcher
// and every tablet client: menu items, tables and orders, plus the opaque
// identifiers that link them.
//
// All types are plain values. Copying one never aliases state owned by the
// store, which is what lets the dispatcher hand out snapshots freely.
package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Cook time bounds for menu items, in minutes (inclusive).
const (
	MinCookTime = 5
	MaxCookTime = 15
)

// MenuNames is the fixed seed list the store builds its menu from.
var MenuNames = [...]string{"Ramen", "Soba", "Udon", "Tendon", "Katsudon"}

// MenuItemID identifies a menu item. It is a random (v4) UUID.
type MenuItemID uuid.UUID

// TableID identifies a table. It is a random (v4) UUID.
type TableID uuid.UUID

// OrderID identifies an order. It is a random (v4) UUID.
type OrderID uuid.UUID

// NewMenuItemID mints a fresh menu item id.
func NewMenuItemID() MenuItemID { return MenuItemID(uuid.New()) }

// NewTableID mints a fresh table id.
func NewTableID() TableID { return TableID(uuid.New()) }

// NewOrderID mints a fresh order id.
func NewOrderID() OrderID { return OrderID(uuid.New()) }

// ParseMenuItemID parses the canonical string form of a menu item id.
func ParseMenuItemID(s string) (MenuItemID, error) {
	u, err := parseID("menu item", s)
	return MenuItemID(u), err
}

// ParseTableID parses the canonical string form of a table id.
func ParseTableID(s string) (TableID, error) {
	u, err := parseID("table", s)
	return TableID(u), err
}

// ParseOrderID parses the canonical string form of an order id.
func ParseOrderID(s string) (OrderID, error) {
	u, err := parseID("order", s)
	return OrderID(u), err
}

func parseID(kind, s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return u, nil
}

func (id MenuItemID) String() string { return uuid.UUID(id).String() }
func (id TableID) String() string    { return uuid.UUID(id).String() }
func (id OrderID) String() string    { return uuid.UUID(id).String() }

// MarshalText encodes the id as its canonical UUID string (also used by JSON).
func (id MenuItemID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// MarshalText encodes the id as its canonical UUID string (also used by JSON).
func (id TableID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// MarshalText encodes the id as its canonical UUID string (also used by JSON).
func (id OrderID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

// UnmarshalText decodes a UUID string.
func (id *MenuItemID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// UnmarshalText decodes a UUID string.
func (id *TableID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// UnmarshalText decodes a UUID string.
func (id *OrderID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

// MenuItem is a dish on the menu. Name and cook time never change after the
// store creates the item.
//
// Fields:
//   - ID: stable identifier, minted once at store init.
//   - Name: one of MenuNames.
//   - CookTimeMinutes: in [MinCookTime, MaxCookTime].
type MenuItem struct {
	ID              MenuItemID `json:"id"`
	Name            string     `json:"name"`
	CookTimeMinutes int        `json:"cook_time_minutes"`
}

// Table is a table on the floor. It carries no state besides its id.
type Table struct {
	ID TableID `json:"id"`
}

// Order is one menu item placed on behalf of one table. Orders are created by
// the dispatcher and never mutated; they only leave the store when deleted.
//
// CookTimeMinutes is copied from the menu item at creation time. It is zero
// when the order references a menu item the store does not know.
type Order struct {
	ID              OrderID    `json:"id"`
	TableID         TableID    `json:"table_id"`
	MenuItemID      MenuItemID `json:"menu_item_id"`
	CookTimeMinutes int        `json:"cook_time_minutes"`
}

// NewOrder builds an order with a fresh id for the given table and menu item.
func NewOrder(table TableID, item MenuItem) Order {
	return Order{
		ID:              NewOrderID(),
		TableID:         table,
		MenuItemID:      item.ID,
		CookTimeMinutes: item.CookTimeMinutes,
	}
}

// ValidCookTime reports whether minutes lies in the menu's cook time range.
func ValidCookTime(minutes int) bool {
	return minutes >= MinCookTime && minutes <= MaxCookTime
}
