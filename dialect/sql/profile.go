package sql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/dbextra/dialect"
	"github.com/syssam/dbextra/profiler"
)

// QueryStats holds query execution statistics.
type QueryStats struct {
	// TotalQueries is the total number of queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of exec statements executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing statements.
	TotalDuration atomic.Int64 // nanoseconds
	// SlowQueries is the count of statements exceeding the slow threshold.
	SlowQueries atomic.Int64
	// Errors is the count of failed statements.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		SlowQueries:   s.SlowQueries.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *QueryStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.SlowQueries.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of query statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the average statement duration.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors,
	)
}

// SlowQueryHook is called when a slow statement is detected. It receives the
// profile of the statement, with its parameters inlined and formatted.
type SlowQueryHook func(ctx context.Context, prof profiler.Profile)

// ProfileDriver wraps a Driver and records a profile for every statement it
// runs.
type ProfileDriver struct {
	*Driver
	prof          *profiler.Profiler
	stats         *QueryStats
	slowThreshold time.Duration
	slowHook      SlowQueryHook
	mu            sync.RWMutex
}

// ProfileOption configures the ProfileDriver.
type ProfileOption func(*ProfileDriver)

// WithProfiler sets the profiler receiving the statements. By default a
// profiler quoting with the platform of the wrapped driver is created.
func WithProfiler(p *profiler.Profiler) ProfileOption {
	return func(d *ProfileDriver) {
		d.prof = p
	}
}

// WithSlowThreshold sets the threshold for slow query detection.
// Statements taking longer than this duration are counted as slow.
// Default is 100ms.
func WithSlowThreshold(threshold time.Duration) ProfileOption {
	return func(d *ProfileDriver) {
		d.slowThreshold = threshold
	}
}

// WithSlowQueryHook sets a callback function for slow statements.
func WithSlowQueryHook(hook SlowQueryHook) ProfileOption {
	return func(d *ProfileDriver) {
		d.slowHook = hook
	}
}

// WithSlowQueryLog logs slow statements to l, or to the default logger if l
// is nil. This is a convenience wrapper around WithSlowQueryHook.
func WithSlowQueryLog(l *slog.Logger) ProfileOption {
	return WithSlowQueryHook(func(ctx context.Context, prof profiler.Profile) {
		logger := l
		if logger == nil {
			logger = slog.Default()
		}
		attrs := []any{"duration", prof.Elapsed, "query", prof.SQL}
		if bt := prof.Backtrace; bt != nil {
			attrs = append(attrs, "caller", fmt.Sprintf("%s:%d", bt.File, bt.Line))
		}
		logger.WarnContext(ctx, "slow query detected", attrs...)
	})
}

// NewProfileDriver wraps a Driver with statement profiling.
//
// Example:
//
//	drv, _ := sql.Open(dialect.MySQL, dsn)
//	pd := sql.NewProfileDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowQueryLog(nil),
//	)
//
//	// Later, inspect what ran:
//	for _, p := range pd.Profiler().Profiles() {
//	    fmt.Println(p.Elapsed, p.SQL)
//	}
func NewProfileDriver(drv *Driver, opts ...ProfileOption) *ProfileDriver {
	d := &ProfileDriver{
		Driver:        drv,
		stats:         &QueryStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.prof == nil {
		d.prof = profiler.New(profiler.WithQuoter(drv.Platform()))
	}
	return d
}

// OpenProfiled opens a database connection with statement profiling enabled.
func OpenProfiled(driverName, source string, opts ...ProfileOption) (*ProfileDriver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", driverName, err)
	}
	return NewProfileDriver(NewDriver(driverName, Conn{db, driverName}), opts...), nil
}

// Profiler returns the profiler receiving the statements.
func (d *ProfileDriver) Profiler() *profiler.Profiler {
	return d.prof
}

// QueryStats returns the underlying QueryStats for reading statistics.
func (d *ProfileDriver) QueryStats() *QueryStats {
	return d.stats
}

// SlowThreshold returns the current slow query threshold.
func (d *ProfileDriver) SlowThreshold() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.slowThreshold
}

// SetSlowThreshold updates the slow query threshold.
func (d *ProfileDriver) SetSlowThreshold(threshold time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.slowThreshold = threshold
}

// Query executes a query and profiles it.
func (d *ProfileDriver) Query(ctx context.Context, query string, args, v any) error {
	h, start := d.start(query, args)
	err := d.Driver.Query(ctx, query, args, v)
	d.record(ctx, h, start, err, true)
	return err
}

// Exec executes a statement and profiles it.
func (d *ProfileDriver) Exec(ctx context.Context, query string, args, v any) error {
	h, start := d.start(query, args)
	err := d.Driver.Exec(ctx, query, args, v)
	d.record(ctx, h, start, err, false)
	return err
}

func (d *ProfileDriver) start(query string, args any) (int, time.Time) {
	argv, _ := args.([]any)
	h, err := d.prof.Start(profiler.Rebind(query, argv))
	if err != nil {
		h = -1
	}
	return h, time.Now()
}

func (d *ProfileDriver) record(ctx context.Context, h int, start time.Time, err error, isQuery bool) {
	duration := time.Since(start)
	var (
		prof profiler.Profile
		ok   bool
	)
	if h >= 0 && d.prof.Stop(h) == nil {
		prof, ok = d.prof.Profile(h)
	}
	if ok {
		duration = prof.Elapsed
	}
	if isQuery {
		d.stats.TotalQueries.Add(1)
	} else {
		d.stats.TotalExecs.Add(1)
	}
	d.stats.TotalDuration.Add(int64(duration))

	if err != nil {
		d.stats.Errors.Add(1)
	}

	d.mu.RLock()
	threshold := d.slowThreshold
	hook := d.slowHook
	d.mu.RUnlock()

	if duration > threshold {
		d.stats.SlowQueries.Add(1)
		if hook != nil && ok {
			hook(ctx, prof)
		}
	}
}

// Tx starts a transaction whose statements are profiled.
func (d *ProfileDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options whose statements are profiled.
func (d *ProfileDriver) BeginTx(ctx context.Context, opts *TxOptions) (dialect.Tx, error) {
	tx, err := d.Driver.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &ProfileTx{Tx: tx, driver: d}, nil
}

// ProfileTx wraps a transaction with statement profiling.
type ProfileTx struct {
	dialect.Tx
	driver *ProfileDriver
}

// Query executes a query within the transaction and profiles it.
func (tx *ProfileTx) Query(ctx context.Context, query string, args, v any) error {
	h, start := tx.driver.start(query, args)
	err := tx.Tx.Query(ctx, query, args, v)
	tx.driver.record(ctx, h, start, err, true)
	return err
}

// Exec executes a statement within the transaction and profiles it.
func (tx *ProfileTx) Exec(ctx context.Context, query string, args, v any) error {
	h, start := tx.driver.start(query, args)
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.driver.record(ctx, h, start, err, false)
	return err
}

var (
	_ dialect.Driver = (*ProfileDriver)(nil)
	_ dialect.Tx     = (*ProfileTx)(nil)
)
