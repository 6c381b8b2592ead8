// Package sink persists harvest results. The only format in scope is a
// single JSON array of provider records.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/provider"
)

// JSONFile writes the full result set to one file.
type JSONFile struct {
	path   string
	logger *zap.Logger
}

// NewJSONFile returns a sink writing to path, creating parent directories.
func NewJSONFile(path string, logger *zap.Logger) (*JSONFile, error) {
	if path == "" {
		return nil, fmt.Errorf("empty sink path")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create sink dir %s: %w", dir, err)
		}
	}
	return &JSONFile{path: path, logger: logger}, nil
}

// Write serializes records as one indented JSON array.
func (s *JSONFile) Write(ctx context.Context, records []provider.Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if records == nil {
		records = []provider.Record{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o600); err != nil {
		return fmt.Errorf("write results %s: %w", s.path, err)
	}
	s.logger.Info("results written",
		zap.String("path", s.path),
		zap.Int("records", len(records)),
	)
	return nil
}
