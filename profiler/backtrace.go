package profiler

import (
	"go/build"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
)

const (
	// maxFrames caps how far up the stack the call-site search looks.
	maxFrames = 20
	// rawFrames is the number of unfiltered frames kept in a Backtrace.
	rawFrames = 5
	// moduleRoot is the namespace of this module. Frames of types declared
	// under it never count as call sites.
	moduleRoot = "github.com/syssam/dbextra"
)

// Frame is one entry of a captured call stack.
type Frame struct {
	File     string
	Line     int
	Function string // fully qualified, as reported by the runtime
	Class    string // declaring type qualified by package path, empty for functions
}

// Backtrace locates the code that issued a statement.
type Backtrace struct {
	File     string
	Line     int
	Function string
	// Frames holds the nearest raw frames, unfiltered.
	Frames []Frame
}

// FrameSource returns the current call stack, newest frame first.
type FrameSource func() []Frame

// callerFrames is the default FrameSource.
func callerFrames() []Frame {
	pcs := make([]uintptr, maxFrames+2)
	n := runtime.Callers(2, pcs)
	if n == 0 {
		return nil
	}
	it := runtime.CallersFrames(pcs[:n])
	out := make([]Frame, 0, n)
	for {
		fr, more := it.Next()
		out = append(out, NewFrame(fr.File, fr.Line, fr.Function))
		if !more {
			break
		}
	}
	return out
}

// NewFrame builds a Frame and derives its Class from the function name.
func NewFrame(file string, line int, function string) Frame {
	class, _ := splitFuncName(function)
	return Frame{File: file, Line: line, Function: function, Class: class}
}

// splitFuncName splits a runtime function name such as
// "example.com/pkg.(*Repo).Find" into its declaring type
// ("example.com/pkg.Repo") and its unqualified name ("Find"). Plain functions
// and closures have no declaring type.
func splitFuncName(fn string) (class, name string) {
	fn = strings.ReplaceAll(fn, "[...]", "")
	slash := strings.LastIndexByte(fn, '/')
	dot := strings.IndexByte(fn[slash+1:], '.')
	if dot < 0 {
		return "", fn
	}
	pkg, rest := fn[:slash+1+dot], fn[slash+1+dot+1:]
	if strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", rest
		}
		return pkg + "." + strings.TrimPrefix(rest[1:end], "*"), strings.TrimPrefix(rest[end+1:], ".")
	}
	if i := strings.IndexByte(rest, '.'); i > 0 && !strings.HasPrefix(rest[i+1:], "func") {
		return pkg + "." + rest[:i], rest[i+1:]
	}
	return "", rest
}

// modCache is the root of the module cache, empty when it cannot be found.
var modCache = func() string {
	dir := os.Getenv("GOMODCACHE")
	if dir == "" {
		if gopath := filepath.SplitList(build.Default.GOPATH); len(gopath) > 0 && gopath[0] != "" {
			dir = filepath.Join(gopath[0], "pkg", "mod")
		}
	}
	return dir
}()

// ignoredPrefixes are path prefixes of code that is never a call site: the
// system tree, the Go installation and the module cache.
var ignoredPrefixes = func() []string {
	prefixes := []string{"/usr/"}
	for _, dir := range []string{build.Default.GOROOT, modCache} {
		if dir == "" {
			continue
		}
		prefix := strings.TrimSuffix(filepath.ToSlash(dir), "/") + "/"
		if !slices.Contains(prefixes, prefix) {
			prefixes = append(prefixes, prefix)
		}
	}
	return prefixes
}()

func isFrameIgnored(f Frame) bool {
	_, name := splitFuncName(f.Function)
	switch {
	case strings.Contains(f.Function, "profiler"),
		strings.Contains(f.File, "Profiler"),
		strings.Contains(f.Class, moduleRoot),
		name == "captureBacktrace":
		return true
	}
	for _, p := range ignoredPrefixes {
		if strings.HasPrefix(f.File, p) {
			return true
		}
	}
	return false
}

func isFrameRelevant(f Frame) bool {
	return f.File != "" && f.Class != ""
}

// locateCallSite returns the first frame among the nearest maxFrames that is
// neither profiling machinery nor library code and belongs to a method. It
// returns nil if there is none.
func locateCallSite(frames []Frame) *Backtrace {
	if len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	for _, f := range frames {
		if isFrameIgnored(f) || !isFrameRelevant(f) {
			continue
		}
		return &Backtrace{
			File:     f.File,
			Line:     f.Line,
			Function: f.Function,
			Frames:   append([]Frame(nil), frames[:min(rawFrames, len(frames))]...),
		}
	}
	return nil
}
