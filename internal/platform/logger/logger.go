package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. Services and handlers receive it
// by injection rather than reaching for a package-level default.
func New() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
