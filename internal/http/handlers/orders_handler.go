// Order HTTP handlers.
//
// This file exposes the dispatcher's command set over REST:
//   - GET    /tables                              (GetTables)
//   - GET    /menu                                (GetMenuItems)
//   - GET    /tables/{table_id}/orders            (GetOrders, weak ETag)
//   - POST   /tables/{table_id}/orders            (PostOrder)
//   - GET    /tables/{table_id}/orders/{order_id} (GetOrder)
//   - DELETE /orders/{order_id}                   (DeleteOrder)
package handlers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

// OrderService is the client-side view of the dispatcher consumed by the
// handlers. *tablet.Client implements it.
type OrderService interface {
	Tables(ctx context.Context) ([]domain.Table, error)
	MenuItems(ctx context.Context) ([]domain.MenuItem, error)
	Orders(ctx context.Context, table domain.TableID) ([]domain.Order, error)
	Order(ctx context.Context, table domain.TableID, id domain.OrderID) (domain.Order, bool, error)
	PostOrder(ctx context.Context, table domain.TableID, item domain.MenuItemID) (domain.Order, error)
	DeleteOrder(ctx context.Context, id domain.OrderID) error
}

// DefaultRequestTimeout bounds how long a handler waits for the dispatcher.
const DefaultRequestTimeout = 5 * time.Second

// etagSpace namespaces the name-based UUIDs used as order-list ETags.
var etagSpace = uuid.MustParse("3f0c2b7e-9a51-4c8e-8d1e-6a2f4b7c9d10")

// Handlers groups the order endpoints.
type Handlers struct {
	svc     OrderService
	timeout time.Duration
}

// New binds the handlers to svc. A non-positive timeout uses
// DefaultRequestTimeout.
func New(svc OrderService, timeout time.Duration) *Handlers {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Handlers{svc: svc, timeout: timeout}
}

func (h *Handlers) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

//
// DTOs
//

// PostOrderRequest selects the menu item to order, by id or by name.
// When both are set the id wins.
type PostOrderRequest struct {
	MenuItemID   string `json:"menu_item_id,omitempty" example:"0b5ad2f1-2a7c-4f7e-9c55-0e3b7f0a4b8e"`
	MenuItemName string `json:"menu_item_name,omitempty" example:"ramen"`
}

// ListOrdersResponse wraps the orders of one table.
type ListOrdersResponse struct {
	TableID domain.TableID `json:"table_id" swaggertype:"string" format:"uuid"`
	Orders  []domain.Order `json:"orders"`
}

//
// Helpers
//

func tableParam(c *gin.Context) (domain.TableID, bool) {
	id, err := domain.ParseTableID(c.Param("table_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "table id must be a UUID")
		return domain.TableID{}, false
	}
	return id, true
}

func orderParam(c *gin.Context) (domain.OrderID, bool) {
	id, err := domain.ParseOrderID(c.Param("order_id"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "order id must be a UUID")
		return domain.OrderID{}, false
	}
	return id, true
}

// ordersETag is a weak validator over the set of order ids at a table.
func ordersETag(table domain.TableID, orders []domain.Order) string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID.String()
	}
	sort.Strings(ids)
	sum := uuid.NewSHA1(etagSpace, []byte(table.String()+":"+strings.Join(ids, ",")))
	return `W/"orders:` + sum.String() + `"`
}

// matchMenuItem finds an item by case-folded name.
func matchMenuItem(items []domain.MenuItem, name string) (domain.MenuItem, bool) {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(name))
	for _, it := range items {
		if fold.String(it.Name) == want {
			return it, true
		}
	}
	return domain.MenuItem{}, false
}

//
// Handlers
//

// ListTables godoc
// @ID          listTables
// @Summary     List tables
// @Tags        Tables
// @Produce     json
// @Param       X-Tablet-ID  header  string  false  "Calling tablet"  example(tablet-1)
// @Success     200  {array}   domain.Table
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /tables [get]
func (h *Handlers) ListTables(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	tables, err := h.svc.Tables(ctx)
	if err != nil {
		failDispatch(c, err)
		return
	}
	ok(c, http.StatusOK, tables)
}

// ListMenu godoc
// @ID          listMenu
// @Summary     List menu items
// @Tags        Menu
// @Produce     json
// @Success     200  {array}   domain.MenuItem
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /menu [get]
func (h *Handlers) ListMenu(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	items, err := h.svc.MenuItems(ctx)
	if err != nil {
		failDispatch(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// ListOrders godoc
// @ID          listOrders
// @Summary     List the orders of a table
// @Description Returns every open order at the table. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Orders
// @Produce     json
// @Param       table_id       path    string  true   "Table ID (UUID)"             format(uuid)
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Success     200  {object}  handlers.ListOrdersResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /tables/{table_id}/orders [get]
func (h *Handlers) ListOrders(c *gin.Context) {
	table, valid := tableParam(c)
	if !valid {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	orders, err := h.svc.Orders(ctx, table)
	if err != nil {
		failDispatch(c, err)
		return
	}

	etag := ordersETag(table, orders)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, ListOrdersResponse{TableID: table, Orders: orders})
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Get one order of a table
// @Tags        Orders
// @Produce     json
// @Param       table_id  path  string  true  "Table ID (UUID)"  format(uuid)
// @Param       order_id  path  string  true  "Order ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.Order
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found at this table"
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /tables/{table_id}/orders/{order_id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	table, valid := tableParam(c)
	if !valid {
		return
	}
	id, valid := orderParam(c)
	if !valid {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	o, found, err := h.svc.Order(ctx, table, id)
	if err != nil {
		failDispatch(c, err)
		return
	}
	if !found {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		return
	}
	ok(c, http.StatusOK, o)
}

// PostOrder godoc
// @ID          postOrder
// @Summary     Place an order
// @Description Orders one menu item for the table, chosen by id or by case-insensitive name.
// @Tags        Orders
// @Accept      json
// @Produce     json
// @Param       table_id     path    string                     true   "Table ID (UUID)"  format(uuid)
// @Param       X-Tablet-ID  header  string                     false  "Calling tablet"   example(tablet-1)
// @Param       body         body    handlers.PostOrderRequest  true   "Menu item"
// @Success     201  {object}  domain.Order
// @Header      201  {string}  Location  "URL of the new order"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "No menu item with that name"
// @Failure     422  {object}  handlers.ErrorResponse  "Order rejected"
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /tables/{table_id}/orders [post]
func (h *Handlers) PostOrder(c *gin.Context) {
	table, valid := tableParam(c)
	if !valid {
		return
	}
	var req PostOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	var item domain.MenuItemID
	switch {
	case strings.TrimSpace(req.MenuItemID) != "":
		id, err := domain.ParseMenuItemID(strings.TrimSpace(req.MenuItemID))
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "menu_item_id must be a UUID")
			return
		}
		item = id
	case strings.TrimSpace(req.MenuItemName) != "":
		menu, err := h.svc.MenuItems(ctx)
		if err != nil {
			failDispatch(c, err)
			return
		}
		found, exists := matchMenuItem(menu, req.MenuItemName)
		if !exists {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "no menu item named "+req.MenuItemName)
			return
		}
		item = found.ID
	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "menu_item_id or menu_item_name required")
		return
	}

	o, err := h.svc.PostOrder(ctx, table, item)
	if err != nil {
		failDispatch(c, err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+o.ID.String())
	ok(c, http.StatusCreated, o)
}

// DeleteOrder godoc
// @ID          deleteOrder
// @Summary     Delete an order
// @Description Removes the order. Deleting an unknown order also succeeds.
// @Tags        Orders
// @Param       order_id  path  string  true  "Order ID (UUID)"  format(uuid)
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Dispatcher unavailable"
// @Failure     504  {object}  handlers.ErrorResponse  "Dispatcher timeout"
// @Router      /orders/{order_id} [delete]
func (h *Handlers) DeleteOrder(c *gin.Context) {
	id, valid := orderParam(c)
	if !valid {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.svc.DeleteOrder(ctx, id); err != nil {
		failDispatch(c, err)
		return
	}
	noContent(c)
}
