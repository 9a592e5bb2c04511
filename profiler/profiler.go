package profiler

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Profile records one statement execution.
type Profile struct {
	// SQL is the statement as it was executed. For a *Statement profiled
	// with a Quoter it is the inlined and formatted text; otherwise it is
	// the text that was passed to Start.
	SQL string
	// Params is a snapshot of the bound parameters taken by Start, nil for
	// plain SQL text.
	Params *Params
	// Start and End delimit the execution. End is zero until Stop.
	Start time.Time
	End   time.Time
	// Elapsed is End - Start, zero until Stop.
	Elapsed time.Duration
	// Backtrace locates the code that issued the statement. It is nil when
	// no frame outside the profiling machinery qualified.
	Backtrace *Backtrace
}

// Finished reports whether Stop has been called for the profile.
func (p Profile) Finished() bool { return !p.End.IsZero() }

// Profiler collects a Profile for every statement it is told about.
//
// The collection is safe for concurrent use. The Start/Stop pair of a single
// profile is expected to run on the goroutine that executes the statement.
type Profiler struct {
	quoter    Quoter
	formatter Formatter
	now       func() time.Time
	frames    FrameSource
	log       *slog.Logger
	session   string

	mu       sync.Mutex
	base     int // handle of profiles[0]
	profiles []Profile
}

// Option configures a Profiler.
type Option func(*Profiler)

// WithQuoter sets the dialect quoting used to inline statement parameters.
// Without a Quoter, statements are recorded with their placeholders.
func WithQuoter(q Quoter) Option {
	return func(p *Profiler) {
		p.quoter = q
	}
}

// WithFormatter sets the layout used for inlined statements.
func WithFormatter(f Formatter) Option {
	return func(p *Profiler) {
		p.formatter = f
	}
}

// WithClock sets the time source. Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Profiler) {
		p.now = now
	}
}

// WithFrameSource sets the call stack source used to locate call sites.
func WithFrameSource(src FrameSource) Option {
	return func(p *Profiler) {
		p.frames = src
	}
}

// WithLogger sets the logger receiving a debug record per finished profile.
func WithLogger(l *slog.Logger) Option {
	return func(p *Profiler) {
		p.log = l
	}
}

// New returns a Profiler.
//
// Example:
//
//	prof := profiler.New(profiler.WithQuoter(sql.PlatformFor(dialect.MySQL)))
//	h, _ := prof.Start(profiler.NewStatement(
//	    "SELECT * FROM users WHERE id = :id",
//	    profiler.NewParams("id", 1),
//	))
//	// execute
//	_ = prof.Stop(h)
//	if p, ok := prof.Profile(h); ok {
//	    fmt.Println(p.Elapsed, p.SQL)
//	}
func New(opts ...Option) *Profiler {
	p := &Profiler{
		formatter: DefaultFormatter,
		now:       time.Now,
		frames:    callerFrames,
		log:       slog.Default(),
		session:   uuid.NewString(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Session returns the random identifier attached to the log records of p.
func (p *Profiler) Session() string { return p.session }

// Start opens a profile for target, which must be SQL text (string) or a
// *Statement, and returns its handle.
func (p *Profiler) Start(target any) (int, error) {
	var prof Profile
	switch t := target.(type) {
	case string:
		prof.SQL = t
	case *Statement:
		if t == nil {
			return -1, NewInvalidTargetError(target)
		}
		prof.SQL = p.statementSQL(t)
		prof.Params = t.Params.Clone()
	default:
		return -1, NewInvalidTargetError(target)
	}
	prof.Backtrace = p.captureBacktrace()
	prof.Start = p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = append(p.profiles, prof)
	return p.base + len(p.profiles) - 1, nil
}

// Stop closes the profile identified by handle.
func (p *Profiler) Stop(handle int) error {
	end := p.now()
	p.mu.Lock()
	i := handle - p.base
	if i < 0 || i >= len(p.profiles) {
		p.mu.Unlock()
		return ErrUnknownProfile
	}
	prof := &p.profiles[i]
	if prof.Finished() {
		p.mu.Unlock()
		return ErrProfileStopped
	}
	prof.End, prof.Elapsed = end, end.Sub(prof.Start)
	elapsed := prof.Elapsed
	p.mu.Unlock()

	p.log.Debug("profiler: statement finished", "session", p.session, "profile", handle, "elapsed", elapsed)
	return nil
}

// Profile returns the profile identified by handle.
func (p *Profiler) Profile(handle int) (Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := handle - p.base
	if i < 0 || i >= len(p.profiles) {
		return Profile{}, false
	}
	return p.profiles[i], true
}

// Profiles returns a copy of the collected profiles in start order.
func (p *Profiler) Profiles() []Profile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.profiles)
}

// LastProfile returns the most recently started profile.
func (p *Profiler) LastProfile() (Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.profiles) == 0 {
		return Profile{}, false
	}
	return p.profiles[len(p.profiles)-1], true
}

// Reset drops the collected profiles. Handles keep increasing across resets.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base += len(p.profiles)
	p.profiles = nil
}

// statementSQL reconstructs the executed text of st.
func (p *Profiler) statementSQL(st *Statement) string {
	return Render(st, p.quoter, p.formatter)
}

// Render returns the text st executes as: parameters inlined with q, quoted
// LIMIT and OFFSET counts restored, and the result laid out with f. Without
// a Quoter the template is returned unchanged.
func Render(st *Statement, q Quoter, f Formatter) string {
	if st == nil {
		return ""
	}
	if q == nil {
		return st.SQL
	}
	return f.Format(unquoteLiterals(Inline(st.SQL, st.Params, q)))
}

func (p *Profiler) captureBacktrace() *Backtrace {
	if p.frames == nil {
		return nil
	}
	return locateCallSite(p.frames())
}
