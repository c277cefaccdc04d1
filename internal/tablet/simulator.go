package tablet

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-restaurant-orders/internal/domain"
)

var (
	// ErrNoTables is returned when the dispatcher reports an empty floor.
	ErrNoTables = errors.New("no tables to serve")
	// ErrNoMenu is returned when the dispatcher reports an empty menu.
	ErrNoMenu = errors.New("no menu items to order")
)

// maxOpenOrders is the largest order count at which a table is still served
// normally; above it the simulator clears the table.
const maxOpenOrders = 8

// Action identifies what one simulator step did.
type Action int

const (
	ActionPost Action = iota + 1
	ActionGet
	ActionDelete
	ActionDrain
)

func (a Action) String() string {
	switch a {
	case ActionPost:
		return "post"
	case ActionGet:
		return "get"
	case ActionDelete:
		return "delete"
	case ActionDrain:
		return "drain"
	default:
		return "unknown"
	}
}

// SimulatorOptions configures a Simulator.
type SimulatorOptions struct {
	// Name tags log lines, e.g. "tablet-3".
	Name string
	// Wait bounds the random pause between steps. Zero means no pause.
	Wait time.Duration
	// Rand drives every random choice. Nil uses a randomly seeded generator.
	Rand *rand.Rand
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// Simulator plays a waiter: it keeps picking a table and placing, checking
// or clearing its orders. A Simulator is not safe for concurrent use; run one
// per goroutine.
type Simulator struct {
	client *Client
	opts   SimulatorOptions
	rng    *rand.Rand
	log    zerolog.Logger

	tables []domain.Table
	menu   []domain.MenuItem
}

// NewSimulator returns a simulator driving client. The caller keeps
// ownership of client.
func NewSimulator(client *Client, opts SimulatorOptions) *Simulator {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	base := log.Logger
	if opts.Logger != nil {
		base = *opts.Logger
	}
	lg := base.With().Str("component", "tablet")
	if opts.Name != "" {
		lg = lg.Str("tablet", opts.Name)
	}
	return &Simulator{client: client, opts: opts, rng: rng, log: lg.Logger()}
}

// Run fetches the floor plan and menu once, then steps until ctx is done.
// It returns ctx.Err() on cancellation, or the first error a step hits.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.log.Debug().Int("tables", len(s.tables)).Int("menu_items", len(s.menu)).Msg("tablet started")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		action, err := s.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		s.log.Trace().Stringer("action", action).Msg("step")

		if s.opts.Wait > 0 {
			pause := time.Duration(s.rng.Int64N(int64(s.opts.Wait)))
			t := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
}

// Step performs one round at a random table:
//   - no open orders: post a random menu item;
//   - 1 to 8 orders: get, delete or post with equal odds;
//   - more than 8: delete every order of the table.
func (s *Simulator) Step(ctx context.Context) (Action, error) {
	if err := s.load(ctx); err != nil {
		return 0, err
	}
	table := s.tables[s.rng.IntN(len(s.tables))]

	orders, err := s.client.Orders(ctx, table.ID)
	if err != nil {
		return 0, err
	}

	switch n := len(orders); {
	case n == 0:
		return ActionPost, s.post(ctx, table.ID)
	case n <= maxOpenOrders:
		pick := orders[s.rng.IntN(n)]
		switch s.rng.IntN(3) + 1 {
		case 1:
			_, _, err := s.client.Order(ctx, table.ID, pick.ID)
			return ActionGet, err
		case 2:
			return ActionDelete, s.client.DeleteOrder(ctx, pick.ID)
		default:
			return ActionPost, s.post(ctx, table.ID)
		}
	default:
		for _, o := range orders {
			if err := s.client.DeleteOrder(ctx, o.ID); err != nil {
				return ActionDrain, err
			}
		}
		return ActionDrain, nil
	}
}

func (s *Simulator) post(ctx context.Context, table domain.TableID) error {
	item := s.menu[s.rng.IntN(len(s.menu))]
	if _, err := s.client.PostOrder(ctx, table, item.ID); err != nil {
		// Rejections only happen with validation on; keep serving.
		if errors.Is(err, ErrOrderRejected) {
			s.log.Warn().Err(err).Msg("order rejected")
			return nil
		}
		return err
	}
	return nil
}

// load caches tables and menu on first use.
func (s *Simulator) load(ctx context.Context) error {
	if s.tables == nil {
		tables, err := s.client.Tables(ctx)
		if err != nil {
			return fmt.Errorf("load tables: %w", err)
		}
		if len(tables) == 0 {
			return ErrNoTables
		}
		s.tables = tables
	}
	if s.menu == nil {
		menu, err := s.client.MenuItems(ctx)
		if err != nil {
			return fmt.Errorf("load menu: %w", err)
		}
		if len(menu) == 0 {
			return ErrNoMenu
		}
		s.menu = menu
	}
	return nil
}
