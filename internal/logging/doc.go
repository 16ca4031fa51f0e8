// Package logging provides leveled logging for the gallery server and the
// thumbsweep CLI.
//
// Levels, lowest first:
//   - DEBUG: per-entry walker and generator detail
//   - INFO: sweep passes, startup, shutdown
//   - WARN: recoverable conditions (unreadable directories, failed thumbnails)
//   - ERROR: conditions that need an operator
//   - FATAL: startup failures; the process exits
//
// The level comes from LOG_LEVEL, or DEBUG=true as a shortcut. Components
// that log a lot take a scoped Logger from For so their lines are easy to grep.
package logging
