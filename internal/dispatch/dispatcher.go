package dispatch

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
	"github.com/tbourn/go-restaurant-orders/internal/store"
)

// Options configures a Dispatcher.
type Options struct {
	// TableCount is the number of tables the store is initialized with.
	TableCount int
	// PrintInterval writes the running command count to Progress every time
	// it reaches a positive multiple of the interval. 0 disables it.
	PrintInterval uint64
	// Progress receives the count lines. Defaults to os.Stdout.
	Progress io.Writer
	// ValidateOrders rejects PostOrder commands that reference an unknown
	// table or menu item instead of storing them.
	ValidateOrders bool
	// Rand seeds the store's cook times. Nil uses a random seed.
	Rand *rand.Rand
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Dispatcher owns a store and applies commands to it serially. It is not
// safe to call Run more than once.
type Dispatcher struct {
	store   *store.DataStore
	opts    Options
	log     zerolog.Logger
	handled uint64
}

// New builds the store and returns a dispatcher ready to Run.
func New(opts Options) *Dispatcher {
	if opts.Progress == nil {
		opts.Progress = os.Stdout
	}
	lg := log.With().Str("component", "dispatcher").Logger()
	if opts.Logger != nil {
		lg = opts.Logger.With().Str("component", "dispatcher").Logger()
	}
	return &Dispatcher{
		store: store.New(opts.TableCount, opts.Rand),
		opts:  opts,
		log:   lg,
	}
}

// Run is the blocking entry point: it initializes a store with tableCount
// tables and serves commands until every sender has been released. It
// returns the number of commands handled.
func Run(commands <-chan Command, tableCount int, printInterval uint64) uint64 {
	return New(Options{TableCount: tableCount, PrintInterval: printInterval}).Run(commands)
}

// Run receives commands until the channel is closed and returns the number
// of commands handled over the dispatcher's lifetime.
func (d *Dispatcher) Run(commands <-chan Command) uint64 {
	d.log.Info().
		Int("tables", d.opts.TableCount).
		Int("menu_items", len(domain.MenuNames)).
		Uint64("print_interval", d.opts.PrintInterval).
		Bool("validate_orders", d.opts.ValidateOrders).
		Msg("dispatcher started")

	for cmd := range commands {
		queueDepth.Set(float64(len(commands)))
		d.handle(cmd)
	}

	d.log.Info().Uint64("handled", d.handled).Msg("command queue closed; dispatcher stopped")
	return d.handled
}

// Handled returns the number of commands processed so far. It must only be
// read from the goroutine running Run or after Run has returned.
func (d *Dispatcher) Handled() uint64 { return d.handled }

func (d *Dispatcher) handle(cmd Command) {
	var delivered bool
	switch c := cmd.(type) {
	case PostOrder:
		delivered = deliver(c.Reply, d.postOrder(c))
	case DeleteOrder:
		if _, ok := d.store.DeleteOrder(c.OrderID); ok {
			ordersOpen.Dec()
		}
		delivered = deliver(c.Reply, struct{}{})
	case GetOrders:
		delivered = deliver(c.Reply, d.store.OrdersByTable(c.TableID))
	case GetOrder:
		o, found := d.store.Order(c.TableID, c.OrderID)
		delivered = deliver(c.Reply, GetOrderReply{Order: o, Found: found})
	case GetTables:
		delivered = deliver(c.Reply, d.store.Tables())
	case GetMenuItems:
		delivered = deliver(c.Reply, d.store.MenuItems())
	default:
		// Unreachable while Command stays sealed.
		d.log.Error().Str("type", fmt.Sprintf("%T", cmd)).Msg("unsupported command")
		return
	}

	kind := cmd.Kind().String()
	commandsTotal.WithLabelValues(kind).Inc()
	if !delivered {
		repliesDropped.WithLabelValues(kind).Inc()
		d.log.Warn().Str("command", kind).Msg("reply channel not ready; reply dropped")
	}

	d.handled++
	if d.opts.PrintInterval != 0 && d.handled%d.opts.PrintInterval == 0 {
		if _, err := fmt.Fprintf(d.opts.Progress, "%d\n", d.handled); err != nil {
			d.log.Warn().Err(err).Msg("write progress")
		}
	}
}

func (d *Dispatcher) postOrder(c PostOrder) PostOrderReply {
	item, known := d.store.MenuItem(c.MenuItemID)
	if d.opts.ValidateOrders {
		if !d.store.HasTable(c.TableID) {
			return PostOrderReply{Err: fmt.Errorf("post order for table %s: %w", c.TableID, ErrUnknownTable)}
		}
		if !known {
			return PostOrderReply{Err: fmt.Errorf("post order with menu item %s: %w", c.MenuItemID, ErrUnknownMenuItem)}
		}
	}
	if !known {
		item = domain.MenuItem{ID: c.MenuItemID}
	}
	o := domain.NewOrder(c.TableID, item)
	d.store.InsertOrder(o)
	ordersOpen.Inc()
	return PostOrderReply{Order: o}
}

// deliver sends v without blocking. Client reply channels are buffered, so a
// false result means the client broke the protocol (nil, unbuffered, reused
// or closed channel); the dispatcher carries on regardless.
func deliver[T any](reply chan<- T, v T) (ok bool) {
	// Sending on a closed channel panics.
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case reply <- v:
		return true
	default:
		return false
	}
}
