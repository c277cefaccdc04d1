package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-restaurant-orders/internal/dispatch"
	"github.com/tbourn/go-restaurant-orders/internal/domain"
	"github.com/tbourn/go-restaurant-orders/internal/tablet"
)

// ---------- fixtures ----------

// newClient starts a real dispatcher and returns a tablet client on it.
func newClient(t *testing.T, tables int, validate bool) *tablet.Client {
	t.Helper()
	nop := zerolog.Nop()
	sender, commands := dispatch.NewQueue(16)
	d := dispatch.New(dispatch.Options{
		TableCount:     tables,
		Progress:       io.Discard,
		ValidateOrders: validate,
		Logger:         &nop,
	})
	done := make(chan struct{})
	go func() { defer close(done); d.Run(commands) }()

	c := tablet.NewClient(sender)
	t.Cleanup(func() {
		c.Close()
		<-done
	})
	return c
}

func newRouter(svc OrderService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-test"); c.Next() })

	h := New(svc, time.Second)
	r.GET("/tables", h.ListTables)
	r.GET("/menu", h.ListMenu)
	r.GET("/tables/:table_id/orders", h.ListOrders)
	r.POST("/tables/:table_id/orders", h.PostOrder)
	r.GET("/tables/:table_id/orders/:order_id", h.GetOrder)
	r.DELETE("/orders/:order_id", h.DeleteOrder)
	return r
}

func do(r http.Handler, method, path string, body any, hdr ...string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body=%s)", v, err, w.Body.String())
	}
	return v
}

func expectError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d; want %d (body=%s)", w.Code, status, w.Body.String())
	}
	if er := decode[ErrorResponse](t, w); er.Code != code || er.RequestID != "rid-test" {
		t.Fatalf("error body = %+v; want code %q", er, code)
	}
}

// ---------- happy paths against a real dispatcher ----------

func TestOrders_PostListGetDelete(t *testing.T) {
	c := newClient(t, 2, false)
	r := newRouter(c)

	w := do(r, http.MethodGet, "/tables", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /tables -> %d", w.Code)
	}
	tables := decode[[]domain.Table](t, w)
	if len(tables) != 2 {
		t.Fatalf("tables = %d; want 2", len(tables))
	}
	menu := decode[[]domain.MenuItem](t, do(r, http.MethodGet, "/menu", nil))
	if len(menu) != len(domain.MenuNames) {
		t.Fatalf("menu = %d items", len(menu))
	}

	base := "/tables/" + tables[0].ID.String() + "/orders"
	w = do(r, http.MethodPost, base, PostOrderRequest{MenuItemID: menu[0].ID.String()})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST -> %d (%s)", w.Code, w.Body.String())
	}
	created := decode[domain.Order](t, w)
	if loc := w.Header().Get("Location"); loc != base+"/"+created.ID.String() {
		t.Fatalf("Location = %q", loc)
	}
	if created.TableID != tables[0].ID || created.MenuItemID != menu[0].ID ||
		created.CookTimeMinutes != menu[0].CookTimeMinutes {
		t.Fatalf("created = %+v", created)
	}

	list := decode[ListOrdersResponse](t, do(r, http.MethodGet, base, nil))
	if diff := cmp.Diff([]domain.Order{created}, list.Orders); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}

	got := decode[domain.Order](t, do(r, http.MethodGet, base+"/"+created.ID.String(), nil))
	if got != created {
		t.Fatalf("GET order = %+v; want %+v", got, created)
	}

	// Same order under the other table is not found.
	other := "/tables/" + tables[1].ID.String() + "/orders/" + created.ID.String()
	expectError(t, do(r, http.MethodGet, other, nil), http.StatusNotFound, ErrCodeNotFound)

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodDelete, "/orders/"+created.ID.String(), nil); w.Code != http.StatusNoContent {
			t.Fatalf("DELETE #%d -> %d", i+1, w.Code)
		}
	}
	expectError(t, do(r, http.MethodGet, base+"/"+created.ID.String(), nil), http.StatusNotFound, ErrCodeNotFound)
}

func TestOrders_PostByName_CaseInsensitive(t *testing.T) {
	c := newClient(t, 1, false)
	r := newRouter(c)
	table := decode[[]domain.Table](t, do(r, http.MethodGet, "/tables", nil))[0]
	menu := decode[[]domain.MenuItem](t, do(r, http.MethodGet, "/menu", nil))

	path := "/tables/" + table.ID.String() + "/orders"
	w := do(r, http.MethodPost, path, PostOrderRequest{MenuItemName: "  kAtSuDoN "})
	if w.Code != http.StatusCreated {
		t.Fatalf("POST by name -> %d (%s)", w.Code, w.Body.String())
	}
	o := decode[domain.Order](t, w)
	var want domain.MenuItemID
	for _, m := range menu {
		if m.Name == "Katsudon" {
			want = m.ID
		}
	}
	if o.MenuItemID != want {
		t.Fatalf("ordered %s; want Katsudon %s", o.MenuItemID, want)
	}

	expectError(t, do(r, http.MethodPost, path, PostOrderRequest{MenuItemName: "pizza"}), http.StatusNotFound, ErrCodeNotFound)
}

func TestOrders_ETag_NotModified(t *testing.T) {
	c := newClient(t, 1, false)
	r := newRouter(c)
	table := decode[[]domain.Table](t, do(r, http.MethodGet, "/tables", nil))[0]
	menu := decode[[]domain.MenuItem](t, do(r, http.MethodGet, "/menu", nil))
	path := "/tables/" + table.ID.String() + "/orders"

	w := do(r, http.MethodGet, path, nil)
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	if w2 := do(r, http.MethodGet, path, nil, "If-None-Match", etag); w2.Code != http.StatusNotModified {
		t.Fatalf("If-None-Match -> %d; want 304", w2.Code)
	}

	do(r, http.MethodPost, path, PostOrderRequest{MenuItemID: menu[1].ID.String()})
	w3 := do(r, http.MethodGet, path, nil, "If-None-Match", etag)
	if w3.Code != http.StatusOK || w3.Header().Get("ETag") == etag {
		t.Fatalf("stale ETag must not match after a post: %d %q", w3.Code, w3.Header().Get("ETag"))
	}
}

func TestOrders_RejectedWhenValidating(t *testing.T) {
	c := newClient(t, 1, true)
	r := newRouter(c)
	table := decode[[]domain.Table](t, do(r, http.MethodGet, "/tables", nil))[0]

	w := do(r, http.MethodPost, "/tables/"+table.ID.String()+"/orders",
		PostOrderRequest{MenuItemID: domain.NewMenuItemID().String()})
	expectError(t, w, http.StatusUnprocessableEntity, ErrCodeOrderRejected)
}

// ---------- input validation ----------

func TestOrders_BadInput(t *testing.T) {
	r := newRouter(&stubService{})
	table := domain.NewTableID().String()

	cases := []struct {
		name, method, path string
		body               any
	}{
		{"bad table id", http.MethodGet, "/tables/nope/orders", nil},
		{"bad order id", http.MethodGet, "/tables/" + table + "/orders/nope", nil},
		{"bad delete id", http.MethodDelete, "/orders/nope", nil},
		{"empty body", http.MethodPost, "/tables/" + table + "/orders", PostOrderRequest{}},
		{"bad menu item id", http.MethodPost, "/tables/" + table + "/orders", PostOrderRequest{MenuItemID: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			expectError(t, do(r, tc.method, tc.path, tc.body), http.StatusBadRequest, ErrCodeBadRequest)
		})
	}

	// Malformed JSON.
	req := httptest.NewRequest(http.MethodPost, "/tables/"+table+"/orders", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	expectError(t, w, http.StatusBadRequest, ErrCodeBadRequest)
}

// ---------- dispatcher failures ----------

type stubService struct{ err error }

func (s *stubService) Tables(context.Context) ([]domain.Table, error) { return nil, s.err }
func (s *stubService) MenuItems(context.Context) ([]domain.MenuItem, error) {
	return nil, s.err
}
func (s *stubService) Orders(context.Context, domain.TableID) ([]domain.Order, error) {
	return nil, s.err
}
func (s *stubService) Order(context.Context, domain.TableID, domain.OrderID) (domain.Order, bool, error) {
	return domain.Order{}, false, s.err
}
func (s *stubService) PostOrder(context.Context, domain.TableID, domain.MenuItemID) (domain.Order, error) {
	return domain.Order{}, s.err
}
func (s *stubService) DeleteOrder(context.Context, domain.OrderID) error { return s.err }

func TestOrders_DispatcherErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("send get_tables: %w", dispatch.ErrSenderReleased), http.StatusServiceUnavailable, ErrCodeUnavailable},
		{fmt.Errorf("await get_tables: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, ErrCodeTimeout},
		{errors.New("unexpected"), http.StatusInternalServerError, ErrCodeInternal},
	}
	for _, tc := range cases {
		r := newRouter(&stubService{err: tc.err})
		expectError(t, do(r, http.MethodGet, "/tables", nil), tc.status, tc.code)
		expectError(t, do(r, http.MethodDelete, "/orders/"+domain.NewOrderID().String(), nil), tc.status, tc.code)
	}
}

func TestOrders_ClosedClientIsUnavailable(t *testing.T) {
	c := newClient(t, 1, false)
	gone, err := c.Clone()
	if err != nil {
		t.Fatalf("clone: %v", err)
	}
	gone.Close()

	r := newRouter(gone)
	expectError(t, do(r, http.MethodGet, "/menu", nil), http.StatusServiceUnavailable, ErrCodeUnavailable)
}

func TestOrdersETag_OrderIndependent(t *testing.T) {
	table := domain.NewTableID()
	a := domain.Order{ID: domain.NewOrderID(), TableID: table}
	b := domain.Order{ID: domain.NewOrderID(), TableID: table}
	if ordersETag(table, []domain.Order{a, b}) != ordersETag(table, []domain.Order{b, a}) {
		t.Fatalf("ETag depends on listing order")
	}
	if ordersETag(table, nil) == ordersETag(domain.NewTableID(), nil) {
		t.Fatalf("empty tables must not share an ETag")
	}
}
