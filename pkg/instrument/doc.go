// Package instrument wraps function calls and records every invocation
// as one row in a rotating SQLite log store.
//
// A Recorder ties together the log store, the system snapshot collector
// and the telemetry stack. Functions are registered once, then invoked
// through the generic Call helpers:
//
//	rec, err := instrument.New(ctx, instrument.Options{
//		Store: &stores.Config{
//			Dir:      "logs",
//			BaseName: "log",
//			MaxBytes: 100 * 1024 * 1024,
//			WAL:      true,
//		},
//	})
//	if err != nil {
//		return err
//	}
//	defer rec.Close()
//
//	division := rec.Register("division", "Divides a by b #level:WARN #gpu:false")
//	divide := instrument.Wrap2(division, instrument.Value(math.NaN()),
//		func(a, b float64) (float64, error) {
//			if b == 0 {
//				return 0, errors.New("division by zero")
//			}
//			return a / b, nil
//		})
//
//	q := divide(1, 2) // returns 0.5 and persists one record
//
// # Doc Tags
//
// The documentation string passed to Register is scanned for #key:value
// tags. Mark keys (level, tag, message, error_level) replace the default
// value recorded for their field. Toggle keys (function, thread,
// computer, cpu, memory, gpu, host) disable a whole field category when
// set to "false"; any other value leaves the category enabled. Tags are
// parsed once, at registration.
//
// Overrides passed to Options apply to every registered function and are
// applied before doc tags. Because the store schema is derived from the
// recorder's active field set, a toggle disabled in Options removes its
// columns from the database entirely, while a toggle disabled by a doc
// tag only leaves those columns NULL for that function's rows.
//
// # Outcomes
//
// A call succeeds when the wrapped function returns a nil error. The
// record then carries the configured success level (default LOG), the
// stringified return value and the elapsed seconds. A non-nil error or a
// panic marks the call failed: the record carries the error level
// (default ERROR), the dynamic type of the failure value and a stack
// trace, and the caller receives the fallback value instead. Fallbacks
// are either fixed (Value) or computed at failure time (Compute); a
// fallback that itself fails degrades to a textual description in the
// record and the zero value for the caller.
//
// Call never panics and never returns an error of its own. Recording
// problems, including a failed database write, are counted in metrics,
// published as events and dumped to the diagnostic log, but the wrapped
// function's result always reaches the caller.
package instrument
