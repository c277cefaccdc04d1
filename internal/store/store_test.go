package store

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

func newTestStore(t *testing.T, tables int) *DataStore {
	t.Helper()
	return New(tables, rand.New(rand.NewPCG(1, 2)))
}

// sortOrders makes order comparisons independent of swap-removal order.
var sortOrders = cmpopts.SortSlices(func(a, b domain.Order) bool {
	return a.ID.String() < b.ID.String()
})

func TestNew_MenuAndTables(t *testing.T) {
	s := newTestStore(t, 3)

	menu := s.MenuItems()
	if len(menu) != len(domain.MenuNames) {
		t.Fatalf("menu size = %d; want %d", len(menu), len(domain.MenuNames))
	}
	ids := map[domain.MenuItemID]struct{}{}
	for i, m := range menu {
		if m.Name != domain.MenuNames[i] {
			t.Fatalf("menu[%d].Name = %q; want %q", i, m.Name, domain.MenuNames[i])
		}
		if !domain.ValidCookTime(m.CookTimeMinutes) {
			t.Fatalf("menu[%d] cook time %d outside [5,15]", i, m.CookTimeMinutes)
		}
		ids[m.ID] = struct{}{}
	}
	if len(ids) != len(menu) {
		t.Fatalf("menu ids not unique")
	}

	if got := len(s.Tables()); got != 3 {
		t.Fatalf("tables = %d; want 3", got)
	}
	if s.Len() != 0 || len(s.OrdersByTable(s.Tables()[0].ID)) != 0 {
		t.Fatalf("order collection should start empty")
	}
}

func TestNew_CookTimesCoverWholeRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 7))
	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		for _, m := range New(0, rng).MenuItems() {
			if !domain.ValidCookTime(m.CookTimeMinutes) {
				t.Fatalf("cook time %d outside range", m.CookTimeMinutes)
			}
			seen[m.CookTimeMinutes] = true
		}
	}
	for m := domain.MinCookTime; m <= domain.MaxCookTime; m++ {
		if !seen[m] {
			t.Fatalf("cook time %d never drawn in 1000 samples", m)
		}
	}
}

func TestNew_NilRandAndNegativeCount(t *testing.T) {
	s := New(-4, nil)
	if len(s.Tables()) != 0 {
		t.Fatalf("negative table count should yield no tables")
	}
	if len(s.MenuItems()) != len(domain.MenuNames) {
		t.Fatalf("menu should still be seeded")
	}
}

func TestSnapshots_AreStableAndIndependent(t *testing.T) {
	s := newTestStore(t, 2)

	tables := s.Tables()
	menu := s.MenuItems()
	if diff := cmp.Diff(tables, s.Tables()); diff != "" {
		t.Fatalf("table order not stable (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(menu, s.MenuItems()); diff != "" {
		t.Fatalf("menu order not stable (-first +second):\n%s", diff)
	}

	// Mutating returned slices must not leak into the store.
	tables[0] = domain.Table{}
	menu[0].Name = "Pizza"
	if s.Tables()[0].ID == (domain.TableID{}) {
		t.Fatalf("table snapshot aliased store state")
	}
	if s.MenuItems()[0].Name != "Ramen" {
		t.Fatalf("menu snapshot aliased store state")
	}

	table := s.Tables()[0].ID
	s.InsertOrder(domain.NewOrder(table, s.MenuItems()[0]))
	orders := s.OrdersByTable(table)
	orders[0].TableID = domain.TableID{}
	if got := s.OrdersByTable(table); len(got) != 1 || got[0].TableID != table {
		t.Fatalf("order snapshot aliased store state: %+v", got)
	}
}

func TestInsertAndQueryByTable(t *testing.T) {
	s := newTestStore(t, 2)
	t0, t1 := s.Tables()[0].ID, s.Tables()[1].ID
	menu := s.MenuItems()

	var want []domain.Order
	for _, m := range menu {
		o := domain.NewOrder(t0, m)
		s.InsertOrder(o)
		want = append(want, o)
	}
	other := domain.NewOrder(t1, menu[0])
	s.InsertOrder(other)

	if diff := cmp.Diff(want, s.OrdersByTable(t0), sortOrders); diff != "" {
		t.Fatalf("OrdersByTable(t0) mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]domain.Order{other}, s.OrdersByTable(t1)); diff != "" {
		t.Fatalf("OrdersByTable(t1) mismatch (-want +got):\n%s", diff)
	}
	if s.Len() != len(menu)+1 {
		t.Fatalf("Len = %d; want %d", s.Len(), len(menu)+1)
	}
}

func TestOrder_RequiresMatchingTable(t *testing.T) {
	s := newTestStore(t, 2)
	t0, t1 := s.Tables()[0].ID, s.Tables()[1].ID
	o := domain.NewOrder(t0, s.MenuItems()[2])
	s.InsertOrder(o)

	got, ok := s.Order(t0, o.ID)
	if !ok || got != o {
		t.Fatalf("Order(t0, id) = %+v, %v; want %+v", got, ok, o)
	}
	if _, ok := s.Order(t1, o.ID); ok {
		t.Fatalf("Order under a different table must be empty")
	}
	if _, ok := s.Order(t0, domain.NewOrderID()); ok {
		t.Fatalf("unknown order id must be empty")
	}
}

func TestDeleteOrder_SwapRemoveAndIdempotence(t *testing.T) {
	s := newTestStore(t, 1)
	table := s.Tables()[0].ID

	var all []domain.Order
	for _, m := range s.MenuItems() {
		o := domain.NewOrder(table, m)
		s.InsertOrder(o)
		all = append(all, o)
	}

	removed, ok := s.DeleteOrder(all[0].ID)
	if !ok || removed != all[0] {
		t.Fatalf("DeleteOrder returned %+v, %v", removed, ok)
	}
	left := s.OrdersByTable(table)
	if len(left) != len(all)-1 {
		t.Fatalf("left = %d; want %d", len(left), len(all)-1)
	}
	for _, o := range left {
		if o.ID == all[0].ID {
			t.Fatalf("deleted order still present")
		}
	}
	if diff := cmp.Diff(all[1:], left, sortOrders); diff != "" {
		t.Fatalf("remaining orders mismatch (-want +got):\n%s", diff)
	}

	// Second delete of the same id is a no-op.
	if _, ok := s.DeleteOrder(all[0].ID); ok {
		t.Fatalf("second delete should report missing")
	}
	if s.Len() != len(all)-1 {
		t.Fatalf("second delete changed the collection")
	}

	// Deleting the tail element exercises the i == last path.
	last := left[len(left)-1]
	if _, ok := s.DeleteOrder(last.ID); !ok {
		t.Fatalf("delete of last element failed")
	}
	if _, ok := s.Order(table, last.ID); ok {
		t.Fatalf("last element still present")
	}
}

func TestDeleteOrder_RemovesOnlyFirstDuplicate(t *testing.T) {
	s := newTestStore(t, 1)
	o := domain.NewOrder(s.Tables()[0].ID, s.MenuItems()[0])
	s.InsertOrder(o)
	s.InsertOrder(o)

	if _, ok := s.DeleteOrder(o.ID); !ok {
		t.Fatalf("expected delete to find the order")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d; want 1 (only the first duplicate removed)", s.Len())
	}
}

func TestLookups(t *testing.T) {
	s := newTestStore(t, 2)
	m := s.MenuItems()[3]
	if got, ok := s.MenuItem(m.ID); !ok || got != m {
		t.Fatalf("MenuItem(%s) = %+v, %v", m.ID, got, ok)
	}
	if _, ok := s.MenuItem(domain.NewMenuItemID()); ok {
		t.Fatalf("unknown menu item should not be found")
	}
	if !s.HasTable(s.Tables()[1].ID) {
		t.Fatalf("HasTable false for an existing table")
	}
	if s.HasTable(domain.NewTableID()) {
		t.Fatalf("HasTable true for an unknown table")
	}
}
