package sink

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/healthdex/provider-harvest/internal/provider"
)

func TestWriteRecords(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out", "results.json")
	s, err := NewJSONFile(path, zap.NewNop())
	require.NoError(t, err)

	records := []provider.Record{
		{RunID: "run-1", FullName: "Maria Elena Garcia", NPI: "1234567890"},
		{RunID: "run-1", FullName: "Jane Smith"},
	}
	require.NoError(t, s.Write(context.Background(), records))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var got []provider.Record
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Len(t, got, 2)
	require.Equal(t, "Maria Elena Garcia", got[0].FullName)
}

func TestWriteNilRecordsYieldsEmptyArray(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	s, err := NewJSONFile(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), nil))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, "[]", string(raw))
}

func TestWriteCanceledContext(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.json")
	s, err := NewJSONFile(path, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, s.Write(ctx, nil))
}

func TestNewJSONFileEmptyPath(t *testing.T) {
	t.Parallel()

	_, err := NewJSONFile("", zap.NewNop())
	require.Error(t, err)
}
