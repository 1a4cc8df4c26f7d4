// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dukex/otomato/pkg/registry"
)

// NewRegistry loads the built-in catalog and, when catalogPath is set, an
// extra catalog file on top of it.
func NewRegistry(log *slog.Logger, catalogPath string) (*registry.Registry, error) {
	reg, err := registry.Default(log)
	if err != nil {
		return nil, err
	}

	if catalogPath == "" {
		return reg, nil
	}

	data, err := os.ReadFile(catalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", catalogPath, err)
	}

	if err := reg.Load(data); err != nil {
		return nil, fmt.Errorf("failed to load catalog %s: %w", catalogPath, err)
	}

	return reg, nil
}
