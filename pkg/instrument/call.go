package instrument

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/calltrack/calltrack/pkg/fields"
	"github.com/calltrack/calltrack/pkg/sysinfo"
)

// CallState identifies where an instrumented invocation is in its
// lifecycle. Every call ends in StateRecorded regardless of outcome.
type CallState string

const (
	StateIdle     CallState = "IDLE"
	StateRunning  CallState = "RUNNING"
	StateSuccess  CallState = "SUCCESS"
	StateFailure  CallState = "FAILURE"
	StateRecorded CallState = "RECORDED"
)

const (
	toggleFunction = "function"
	toggleThread   = "thread"
	markMessage    = "message"
)

// Named holds named arguments for CallNamed.
type Named map[string]any

// Fallback supplies the value an instrumented call returns when the
// wrapped function fails. The zero value falls back to R's zero value.
type Fallback[R any] struct {
	value   R
	compute func() (R, error)
}

// Value returns a fallback that yields a fixed value.
func Value[R any](v R) Fallback[R] {
	return Fallback[R]{value: v}
}

// Compute returns a fallback that derives its value at failure time. If
// the computation itself fails, the failure is described in the record's
// function_return field and the zero value is returned.
func Compute[R any](fn func() (R, error)) Fallback[R] {
	return Fallback[R]{compute: fn}
}

// resolve produces the fallback value. A non-empty failure string means
// the computation failed and result is the zero value.
func (fb Fallback[R]) resolve() (result R, failure string) {
	if fb.compute == nil {
		return fb.value, ""
	}
	defer func() {
		if v := recover(); v != nil {
			var zero R
			result = zero
			failure = fmt.Sprintf("fallback panicked: %v", v)
		}
	}()
	v, err := fb.compute()
	if err != nil {
		var zero R
		return zero, fmt.Sprintf("fallback failed: %s", err.Error())
	}
	return v, ""
}

// Call invokes fn under f's recording contract and returns its value. On
// failure the fallback value is returned instead. Call never panics: a
// panic in fn is absorbed into the record like an error return, and a
// failed record write is swallowed after a diagnostic dump.
func Call[R any](f *Func, fallback Fallback[R], fn func() (R, error), args ...any) R {
	return call(f, fallback, fn, args, nil)
}

// CallNamed is Call with named arguments recorded in the kwargs field.
func CallNamed[R any](f *Func, fallback Fallback[R], fn func() (R, error), named Named, args ...any) R {
	return call(f, fallback, fn, args, named)
}

// Wrap0 binds a niladic function to f so every invocation is recorded.
func Wrap0[R any](f *Func, fallback Fallback[R], fn func() (R, error)) func() R {
	return func() R {
		return Call(f, fallback, fn)
	}
}

// Wrap1 binds a one-argument function to f.
func Wrap1[A, R any](f *Func, fallback Fallback[R], fn func(A) (R, error)) func(A) R {
	return func(a A) R {
		return Call(f, fallback, func() (R, error) { return fn(a) }, a)
	}
}

// Wrap2 binds a two-argument function to f.
func Wrap2[A, B, R any](f *Func, fallback Fallback[R], fn func(A, B) (R, error)) func(A, B) R {
	return func(a A, b B) R {
		return Call(f, fallback, func() (R, error) { return fn(a, b) }, a, b)
	}
}

// Wrap3 binds a three-argument function to f.
func Wrap3[A, B, C, R any](f *Func, fallback Fallback[R], fn func(A, B, C) (R, error)) func(A, B, C) R {
	return func(a A, b B, c C) R {
		return Call(f, fallback, func() (R, error) { return fn(a, b, c) }, a, b, c)
	}
}

// callOutcome carries the lifecycle state and record level into the
// deferred persistence step.
type callOutcome struct {
	state CallState
	level string
}

func call[R any](f *Func, fallback Fallback[R], fn func() (R, error), args []any, named Named) R {
	r := f.rec
	cfg := f.snapshot()
	start := time.Now()
	oc := &callOutcome{state: StateIdle, level: cfg.SuccessLevel()}

	r.metrics.RecordCallStarted()
	defer r.finish(f, cfg, oc, start)

	cfg.SetField(fields.Timestamp, unixSeconds(start))
	r.collectSystem(context.Background(), cfg)
	r.captureIdentity(cfg)
	captureCall(cfg, f.name, args, named)

	oc.state = StateRunning
	result, err := invoke(fn)
	if err == nil {
		oc.state = StateSuccess
		oc.level = cfg.SuccessLevel()
		cfg.SetField(fields.Level, oc.level)
		if cfg.IsRecorded(toggleFunction) {
			cfg.SetField(fields.FunctionReturn, fmt.Sprint(result))
			cfg.SetField(fields.FunctionTime, time.Since(start).Seconds())
		}
		if _, ok := cfg.Mark(markMessage); !ok {
			cfg.SetField(fields.Message, fmt.Sprintf("result: %v", result))
		}
		return result
	}

	oc.state = StateFailure
	oc.level = cfg.ErrorLevel()
	cfg.SetField(fields.Level, oc.level)

	errType, msg, trace := describeFailure(err)
	if cfg.IsRecorded(toggleFunction) {
		cfg.SetField(fields.ErrorType, errType)
		cfg.SetField(fields.Traceback, trace)
	}
	if _, ok := cfg.Mark(markMessage); !ok {
		cfg.SetField(fields.Message, msg)
	}

	result, failure := fallback.resolve()
	if cfg.IsRecorded(toggleFunction) {
		if failure != "" {
			cfg.SetField(fields.FunctionReturn, failure)
		} else {
			cfg.SetField(fields.FunctionReturn, fmt.Sprint(result))
		}
	}
	return result
}

// finish persists the record and emits the call telemetry. It runs
// deferred so a record is written for every invocation, whatever path
// the call took. Write failures never reach the caller: they count in
// metrics, publish an event and dump the run configuration for the
// operator.
func (r *Recorder) finish(f *Func, cfg *fields.RunConfig, oc *callOutcome, start time.Time) {
	duration := time.Since(start)
	outcome := "failure"
	if oc.state == StateSuccess {
		outcome = "success"
	}

	if err := r.store.Write(context.Background(), cfg.Record()); err != nil {
		r.metrics.RecordWriteFailure()
		_ = r.events.PublishWriteFailed(f.name, r.store.Path(), err.Error())
		r.log.Error().Err(err).Str("function", f.name).Msg("failed to persist call record")
		cfg.Dump(r.log)
	} else {
		r.metrics.RecordWrite()
	}
	oc.state = StateRecorded

	r.metrics.RecordCallCompleted(f.name, outcome, duration)
	_ = r.events.PublishCallRecorded(f.name, oc.level, outcome, duration)
}

// invoke runs the wrapped function, absorbing a panic into an error that
// preserves the panic value and the stack at the panic site.
func invoke[R any](fn func() (R, error)) (result R, err error) {
	defer func() {
		if v := recover(); v != nil {
			err = &panicError{value: v, stack: debug.Stack()}
		}
	}()
	return fn()
}

// panicError wraps a recovered panic so the failure path can report the
// panic value's type and the stack from the panic site.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprint(e.value)
}

// describeFailure derives the error_type, message and traceback texts
// for a failed invocation. For plain error returns the stack is captured
// at detection, since the failing frames have already returned.
func describeFailure(err error) (errType, msg, trace string) {
	var pe *panicError
	if errors.As(err, &pe) {
		errType = fmt.Sprintf("%T", pe.value)
		return errType, fmt.Sprintf("%s: %v", errType, pe.value), string(pe.stack)
	}
	errType = fmt.Sprintf("%T", err)
	return errType, fmt.Sprintf("%s: %s", errType, err.Error()), string(debug.Stack())
}

// collectSystem fills the enabled system fields from the collector. A
// category that fails to collect leaves its field at the default; the
// call is never disturbed by snapshot problems.
func (r *Recorder) collectSystem(ctx context.Context, cfg *fields.RunConfig) {
	for _, name := range fields.SystemFields() {
		key := string(name)
		if !cfg.IsRecorded(key) {
			continue
		}
		snapshot, err := r.collector.Collect(ctx, sysinfo.Category(key))
		if err != nil {
			r.log.Debug().Err(err).Str("category", key).Msg("failed to collect system snapshot")
			continue
		}
		cfg.SetField(name, snapshot)
	}
}

// captureIdentity records the goroutine and process identity. Goroutines
// carry no names, so thread_name keeps its default.
func (r *Recorder) captureIdentity(cfg *fields.RunConfig) {
	if !cfg.IsRecorded(toggleThread) {
		return
	}
	cfg.SetField(fields.ThreadID, goroutineID())
	cfg.SetField(fields.ProcessID, r.pid)
}

// captureCall records the function name and stringified arguments.
func captureCall(cfg *fields.RunConfig, name string, args []any, named Named) {
	if !cfg.IsRecorded(toggleFunction) {
		return
	}
	cfg.SetField(fields.FunctionName, name)
	cfg.SetField(fields.Args, formatArgs(args))
	if named != nil {
		cfg.SetField(fields.Kwargs, formatNamed(named))
	}
}

func formatArgs(args []any) string {
	if len(args) == 0 {
		return "()"
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatNamed(named Named) string {
	if len(named) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(named))
	for k := range named {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, named[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// goroutineID parses the numeric id from the runtime.Stack header line,
// which has the form "goroutine 42 [running]:".
func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	s := strings.TrimPrefix(string(buf[:n]), "goroutine ")
	if i := strings.IndexByte(s, ' '); i > 0 {
		if id, err := strconv.ParseInt(s[:i], 10, 64); err == nil {
			return id
		}
	}
	return 0
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
