// Package logging provides opt-in file-based logging with rotation.
// Without --debug the CLI keeps slog's default logger; --debug installs a
// JSON logger that writes to a rotating file under ~/.buglocate/logs/ and
// to stderr.
package logging
