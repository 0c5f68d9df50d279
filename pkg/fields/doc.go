// Package fields defines the catalog of loggable fields and the per-run
// configuration built from it. The catalog is a closed, immutable set of
// descriptors grouped by category (base, function, thread, system); a
// RunConfig selects the active subset, carries the current values for one
// instrumented invocation, and enforces the copy-on-invoke discipline that
// keeps concurrent invocations isolated.
package fields
