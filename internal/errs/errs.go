// Package errs holds small helpers for wrapping errors with context.
package errs

import (
	"errors"
	"fmt"
	"log/slog"
)

// Wrap adds context and keeps the chain intact for errors.Is/As.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	args = append(args, err)
	return fmt.Errorf(format+": %w", args...)
}

// Tag marks err with a category sentinel so callers can match either one.
func Tag(kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// Attr renders err as a structured slog attribute with its unwrap chain.
func Attr(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "err", Value: slog.GroupValue()}
	}
	return slog.Group("err",
		slog.String("message", err.Error()),
		slog.Any("chain", Chain(err)),
	)
}

// Chain returns the unwrap chain from outer to inner. Joined errors are not
// expanded.
func Chain(err error) []string {
	var out []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		out = append(out, e.Error())
	}
	return out
}
