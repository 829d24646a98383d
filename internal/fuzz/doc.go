// Package fuzztests houses Go fuzz harnesses for the IR text parser and the
// completion pipeline. They guard against panics other than invariant faults
// and against parse/print round trips that change a module.
package fuzztests
