// Package logging wraps log/slog with sortbook conventions: a console
// handler for interactive use, a JSON handler for log files, standardized
// field names, and helpers that derive structured fields from context.
package logging
