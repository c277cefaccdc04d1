// Package store holds the authoritative in-memory collections of menu items,
// tables and orders.
//
// A DataStore has no internal synchronization. It is meant to be owned by a
// single goroutine (the dispatcher); every other actor reaches it through
// commands. All queries return fresh copies that callers may mutate.
package store

import (
	"math/rand/v2"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

// DataStore is the sole owner of restaurant state. The menu and table set are
// fixed after New; only the order collection changes.
type DataStore struct {
	orders    []domain.Order
	menuItems []domain.MenuItem
	tables    []domain.Table
}

// New builds a store with one menu item per domain.MenuNames entry and
// tableCount tables. Cook times are drawn uniformly from
// [domain.MinCookTime, domain.MaxCookTime] using rng; a nil rng falls back to
// a randomly seeded generator.
func New(tableCount int, rng *rand.Rand) *DataStore {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if tableCount < 0 {
		tableCount = 0
	}

	menu := make([]domain.MenuItem, 0, len(domain.MenuNames))
	for _, name := range domain.MenuNames {
		menu = append(menu, domain.MenuItem{
			ID:              domain.NewMenuItemID(),
			Name:            name,
			CookTimeMinutes: domain.MinCookTime + rng.IntN(domain.MaxCookTime-domain.MinCookTime+1),
		})
	}

	tables := make([]domain.Table, tableCount)
	for i := range tables {
		tables[i] = domain.Table{ID: domain.NewTableID()}
	}

	return &DataStore{
		orders:    []domain.Order{},
		menuItems: menu,
		tables:    tables,
	}
}

// InsertOrder appends o. The caller supplies a fresh id; no uniqueness check
// is made.
func (s *DataStore) InsertOrder(o domain.Order) {
	s.orders = append(s.orders, o)
}

// DeleteOrder removes the first order with the given id and returns it.
// Removal swaps the last order into the freed slot, so the relative order of
// the remaining orders is not preserved. Deleting a missing id is a no-op.
func (s *DataStore) DeleteOrder(id domain.OrderID) (domain.Order, bool) {
	for i, o := range s.orders {
		if o.ID != id {
			continue
		}
		last := len(s.orders) - 1
		s.orders[i] = s.orders[last]
		s.orders[last] = domain.Order{}
		s.orders = s.orders[:last]
		return o, true
	}
	return domain.Order{}, false
}

// OrdersByTable returns a snapshot of every order placed for table. The result
// is never nil.
func (s *DataStore) OrdersByTable(table domain.TableID) []domain.Order {
	out := []domain.Order{}
	for _, o := range s.orders {
		if o.TableID == table {
			out = append(out, o)
		}
	}
	return out
}

// Order returns the order with the given id only if it also belongs to table.
func (s *DataStore) Order(table domain.TableID, id domain.OrderID) (domain.Order, bool) {
	for _, o := range s.orders {
		if o.ID == id && o.TableID == table {
			return o, true
		}
	}
	return domain.Order{}, false
}

// Tables returns a snapshot of all tables in creation order.
func (s *DataStore) Tables() []domain.Table {
	out := make([]domain.Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// MenuItems returns a snapshot of the menu in seed-list order.
func (s *DataStore) MenuItems() []domain.MenuItem {
	out := make([]domain.MenuItem, len(s.menuItems))
	copy(out, s.menuItems)
	return out
}

// MenuItem looks up a single menu item.
func (s *DataStore) MenuItem(id domain.MenuItemID) (domain.MenuItem, bool) {
	for _, m := range s.menuItems {
		if m.ID == id {
			return m, true
		}
	}
	return domain.MenuItem{}, false
}

// HasTable reports whether table exists.
func (s *DataStore) HasTable(table domain.TableID) bool {
	for _, t := range s.tables {
		if t.ID == table {
			return true
		}
	}
	return false
}

// Len returns the number of open orders.
func (s *DataStore) Len() int { return len(s.orders) }
