// Package isbn validates, normalizes, and discovers book identifiers.
//
// All functions are pure. Only checksum-valid ISBN-10/ISBN-13 strings are
// ever returned; discovery preserves first-seen order and records the
// provenance of the chosen identifier.
package isbn
