// Package logging provides opt-in file-based logging with rotation for the
// tokenization and indexing sidecar. When the --debug flag is set,
// comprehensive logs are written to ~/.thaisidecar/logs/ for troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only.
package logging
