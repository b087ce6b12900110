// Package logging assembles the structured slog loggers used across sweep.
//
// It owns level parsing and the console/JSON handler selection, and exposes
// small attribute helpers so playback code can tag log lines with session and
// component fields without importing slog everywhere. A no-op logger is
// provided for tests and wiring code that cannot fail.
package logging
