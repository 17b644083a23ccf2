package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/errs"
	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
)

// loadEnvFile copies KEY=VALUE pairs from the nearest .env into the process
// environment. Variables that are already set win.
func loadEnvFile(ctx context.Context) {
	path, err := findEnvFile()
	if err != nil {
		logging.Warn(ctx, "failed to locate .env", errs.Attr(err))
		return
	}
	if path == "" {
		logging.Debug(ctx, ".env not found in current or parent directories")
		return
	}

	file, err := os.Open(path)
	if err != nil {
		logging.Warn(ctx, "failed to open .env", slog.String("path", path), errs.Attr(err))
		return
	}
	defer file.Close()

	if err := parseEnvFile(ctx, file); err != nil {
		logging.Warn(ctx, "failed to load .env", slog.String("path", path), errs.Attr(err))
		return
	}
	logging.Info(ctx, "loaded env file", slog.String("path", path))
}

func findEnvFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for i := 0; i < 6; i++ {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil
}

func parseEnvFile(ctx context.Context, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if lineNum == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		value = trimQuotes(strings.TrimSpace(value))
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			logging.Warn(ctx, "failed to set variable from env file", slog.String("key", key))
		}
	}
	return scanner.Err()
}

func trimQuotes(value string) string {
	if len(value) < 2 {
		return value
	}
	if (value[0] == '"' && value[len(value)-1] == '"') ||
		(value[0] == '\'' && value[len(value)-1] == '\'') {
		return value[1 : len(value)-1]
	}
	return value
}
