package governance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stake-plus/council-treasury/src/council/addr"
	"github.com/stake-plus/council-treasury/src/council/ledger"
	"github.com/stake-plus/council-treasury/src/council/store"
	"github.com/stake-plus/council-treasury/src/council/types"
)

const (
	MaxTitleLength   = 64
	MaxContentLength = 2048

	// basis points, 10000 = 100%
	BasisPoints = 10_000

	DefaultRequestLifetime = 604800 // 7 days, seconds
)

// Verifier authenticates a principal's signature over message.
type Verifier interface {
	Verify(principal, signature string, message []byte) error
}

// ApprovalHook runs inside the resolve unit of work after the funds of an
// approved proposal were released. An error aborts the resolve.
type ApprovalHook interface {
	OnApproved(ctx context.Context, tx store.Tx, reg *types.Registry, p *types.Proposal) error
}

// Engine executes every governance operation as one unit of work on the
// record store.
type Engine struct {
	store    store.Store
	verifier Verifier
	hook     ApprovalHook
	sink     EventSink
	now      func() time.Time
	log      *zap.Logger
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithLogger(log *zap.Logger) Option     { return func(e *Engine) { e.log = log } }
func WithApprovalHook(h ApprovalHook) Option {
	return func(e *Engine) { e.hook = h }
}
func WithEventSink(s EventSink) Option { return func(e *Engine) { e.sink = s } }

func NewEngine(st store.Store, verifier Verifier, opts ...Option) *Engine {
	e := &Engine{
		store:    st,
		verifier: verifier,
		now:      time.Now,
		log:      zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// atomic runs fn as a unit of work and publishes the events it produced
// once the work has committed.
func (e *Engine) atomic(ctx context.Context, op string, fn func(tx store.Tx, emit func(Event)) error) error {
	var events []Event
	emit := func(ev Event) {
		ev.At = e.now().UTC()
		events = append(events, ev)
	}
	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		events = events[:0]
		return fn(tx, emit)
	})
	if err != nil {
		e.log.Debug("operation rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	for _, ev := range events {
		e.log.Info(op, zap.String("kind", ev.Kind), zap.String("dao", ev.Dao),
			zap.String("ref", ev.Ref), zap.String("actor", ev.Actor))
		if e.sink != nil {
			if err := e.sink.Publish(ctx, ev); err != nil {
				e.log.Warn("publish event", zap.String("kind", ev.Kind), zap.Error(err))
			}
		}
	}
	return nil
}

func (e *Engine) view(ctx context.Context, fn func(tx store.Tx) error) error {
	return e.store.View(ctx, fn)
}

func (e *Engine) unix() int64 { return e.now().Unix() }

func loadRegistry(tx store.Tx, dao string) (*types.Registry, error) {
	reg, err := tx.GetRegistry(dao)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("dao %s: %w", dao, ErrRecordNotFound)
	}
	return reg, err
}

// loadMember resolves a principal to its member record in dao.
func loadMember(tx store.Tx, dao, principal string) (*types.Member, error) {
	m, err := tx.GetMember(addr.Member(principal, dao))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", principal, ErrNotMember)
	}
	return m, err
}

func incr(v *uint64) error {
	if *v == ^uint64(0) {
		return ErrCountOutOfRange
	}
	*v++
	return nil
}

func decr(v *uint64) error {
	if *v == 0 {
		return ErrCountOutOfRange
	}
	*v--
	return nil
}

// retireDeposits credits the storage value of retired records to the
// treasury.
func retireDeposits(tx store.Tx, reg *types.Registry, ref string, amount uint64) error {
	return ledger.Credit(tx, ref, reg.Treasury, amount, ledger.ReasonDeposit, ref)
}

// retireVotes removes the votes cast on target and returns their summed
// deposits.
func retireVotes(tx store.Tx, target string) (uint64, error) {
	votes, err := tx.DeleteVotes(target)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, v := range votes {
		if total+v.Deposit < total {
			return 0, ErrCountOutOfRange
		}
		total += v.Deposit
	}
	return total, nil
}
