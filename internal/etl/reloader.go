package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"flight_explorer/internal/logging"
)

// State is a step of a reload run.
type State string

const (
	StateIdle             State = "Idle"
	StateClearing         State = "Clearing"
	StateLoadingAirport   State = "Loading(Airport)"
	StateLoadingAircraft  State = "Loading(Aircraft)"
	StateLoadingFlight    State = "Loading(Flight)"
	StateLoadingDelayStat State = "Loading(DelayStat)"
	StateCommitted        State = "Committed"
	StateAborted          State = "Aborted"
)

const (
	bannerRule    = "=============================================="
	bannerStarted = " ETL: CLEAR + LOAD — STARTED "
	bannerDone    = " ETL COMPLETED SUCCESSFULLY "
)

// Report describes one finished reload run.
type Report struct {
	RunID      uuid.UUID
	State      State
	Trace      []State
	Counts     map[string]int // Rows inserted per table name.
	StartedAt  time.Time
	FinishedAt time.Time
}

// Committed reports whether the run's transaction was committed.
func (r Report) Committed() bool { return r.State == StateCommitted }

// Hook runs after every reload, committed or aborted. runErr is the error
// Reload is about to return, nil on success.
type Hook func(ctx context.Context, rep Report, runErr error) error

// AfterCommit adapts fn into a Hook that only runs for committed reloads.
func AfterCommit(fn func(ctx context.Context, rep Report) error) Hook {
	return func(ctx context.Context, rep Report, runErr error) error {
		if runErr != nil || !rep.Committed() {
			return nil
		}
		return fn(ctx, rep)
	}
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithLogger sets the progress logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(r *Reloader) { r.log = logging.OrNop(l) }
}

// WithBanner sets where the start and completion banners are written.
func WithBanner(w io.Writer) Option {
	return func(r *Reloader) { r.banner = w }
}

// WithHooks appends hooks run after every reload.
func WithHooks(hooks ...Hook) Option {
	return func(r *Reloader) { r.hooks = append(r.hooks, hooks...) }
}

// WithClock replaces time.Now for report timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reloader) { r.now = now }
}

// Reloader owns the reload transaction: it clears every table and loads them
// again from the source files, then commits once. Runs are serialised.
type Reloader struct {
	store   Store
	sources Sources
	log     *zap.Logger
	banner  io.Writer
	hooks   []Hook
	now     func() time.Time

	runMu sync.Mutex

	stateMu sync.RWMutex
	state   State
}

// NewReloader creates a Reloader over store reading files from sources.
func NewReloader(store Store, sources Sources, opts ...Option) *Reloader {
	r := &Reloader{
		store:   store,
		sources: sources,
		log:     zap.NewNop(),
		banner:  os.Stdout,
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the state of the current or last run.
func (r *Reloader) State() State {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// Reload runs one full clear-and-load. On any failure the transaction is
// rolled back, the report ends in StateAborted and the error is returned.
// Hook errors are returned joined but leave a committed report committed.
func (r *Reloader) Reload(ctx context.Context) (Report, error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	rep := Report{
		RunID:     uuid.New(),
		Counts:    make(map[string]int, len(LoadOrder)),
		StartedAt: r.now(),
	}
	log := r.log.With(zap.String("run_id", rep.RunID.String()))

	r.enter(&rep, StateIdle)
	r.printBanner(bannerStarted)

	err := r.run(ctx, log, &rep)
	rep.FinishedAt = r.now()

	if err != nil {
		log.Error("reload aborted", zap.Error(err))
	} else {
		log.Info("reload committed",
			zap.Any("counts", rep.Counts),
			zap.Duration("took", rep.FinishedAt.Sub(rep.StartedAt)))
		r.printBanner(bannerDone)
	}

	if hookErr := r.runHooks(ctx, log, rep, err); hookErr != nil && err == nil {
		return rep, hookErr
	}
	return rep, err
}

func (r *Reloader) run(ctx context.Context, log *zap.Logger, rep *Report) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		r.enter(rep, StateAborted)
		return &StoreError{Op: "begin", Err: err}
	}

	if err := r.apply(ctx, log, tx, rep); err != nil {
		// The caller's context may already be done; the rollback must still run.
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			log.Warn("rollback failed", zap.Error(rbErr))
		}
		r.enter(rep, StateAborted)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.enter(rep, StateAborted)
		return &StoreError{Op: "commit", Err: err}
	}
	r.enter(rep, StateCommitted)
	return nil
}

func (r *Reloader) apply(ctx context.Context, log *zap.Logger, tx Tx, rep *Report) error {
	r.enter(rep, StateClearing)
	if err := tx.SuspendConstraints(ctx); err != nil {
		return &StoreError{Op: "suspend", Err: err}
	}
	for _, table := range ClearOrder {
		if err := tx.Truncate(ctx, table); err != nil {
			return &StoreError{Op: "truncate", Table: table, Err: err}
		}
	}
	if err := tx.RestoreConstraints(ctx); err != nil {
		return &StoreError{Op: "restore", Err: err}
	}
	log.Info("tables cleared")

	for _, t := range LoadOrder {
		r.enter(rep, t.State)
		n, err := LoadTable(ctx, tx, t, r.sources.Path(t))
		if err != nil {
			return fmt.Errorf("load %s: %w", t.Name, err)
		}
		rep.Counts[t.Name] = n
		log.Info("table loaded", zap.String("table", t.Name), zap.Int("rows", n))
	}
	return nil
}

func (r *Reloader) runHooks(ctx context.Context, log *zap.Logger, rep Report, runErr error) error {
	var errs []error
	for _, hook := range r.hooks {
		if err := hook(ctx, rep, runErr); err != nil {
			log.Warn("reload hook failed", zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Reloader) enter(rep *Report, s State) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()

	rep.State = s
	rep.Trace = append(rep.Trace, s)
}

func (r *Reloader) printBanner(title string) {
	if r.banner == nil {
		return
	}
	fmt.Fprintf(r.banner, "%s\n%s\n%s\n", bannerRule, title, bannerRule)
}
