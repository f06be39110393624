package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairSetMissingFileIsEmpty(t *testing.T) {
	s := NewPairSet(filepath.Join(t.TempDir(), "pairs.txt"))
	pairs, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, pairs)

	n, err := s.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPairSetAddRemove(t *testing.T) {
	s := NewPairSet(filepath.Join(t.TempDir(), "pairs.txt"))

	added, err := s.Add("XRPUSDT")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add("DOGEUSDT")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Add("XRPUSDT")
	require.NoError(t, err)
	assert.False(t, added, "duplicates are rejected")

	pairs, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"XRPUSDT", "DOGEUSDT"}, pairs, "порядок добавления сохраняется")

	removed, err := s.Remove("XRPUSDT")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Remove("XRPUSDT")
	require.NoError(t, err)
	assert.False(t, removed)

	pairs, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"DOGEUSDT"}, pairs)
}

func TestPairSetNoDuplicatesAfterChurn(t *testing.T) {
	s := NewPairSet(filepath.Join(t.TempDir(), "pairs.txt"))

	for i := 0; i < 3; i++ {
		_, err := s.Add("AUSDT")
		require.NoError(t, err)
		_, err = s.Add("BUSDT")
		require.NoError(t, err)
		_, err = s.Remove("AUSDT")
		require.NoError(t, err)
	}

	pairs, err := s.Load()
	require.NoError(t, err)
	seen := map[string]int{}
	for _, p := range pairs {
		seen[p]++
	}
	for sym, n := range seen {
		assert.Equal(t, 1, n, "symbol %s duplicated", sym)
	}
}

func TestPairSetFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.txt")
	s := NewPairSet(path)
	_, err := s.Add("XRPUSDT")
	require.NoError(t, err)
	_, err = s.Add("DOGEUSDT")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "XRPUSDT\nDOGEUSDT\n", string(data), "по символу на строку, завершающий перевод строки")
}

func TestPairSetLoadToleratesBlanksAndSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pairs.txt")
	require.NoError(t, os.WriteFile(path, []byte(" XRPUSDT \n\nDOGEUSDT\n"), 0o644))

	pairs, err := NewPairSet(path).Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"XRPUSDT", "DOGEUSDT"}, pairs)
}

func TestProfitLedgerMissingFileIsZero(t *testing.T) {
	l := NewProfitLedger(filepath.Join(t.TempDir(), "total_profit"))
	total, err := l.Load()
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestProfitLedgerAdd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "total_profit")
	l := NewProfitLedger(path)

	total, err := l.Add(19.58)
	require.NoError(t, err)
	assert.InDelta(t, 19.58, total, 1e-9)

	total, err = l.Add(-4.58)
	require.NoError(t, err)
	assert.InDelta(t, 15.0, total, 1e-9)

	// значение переживает новый экземпляр
	total, err = NewProfitLedger(path).Load()
	require.NoError(t, err)
	assert.InDelta(t, 15.0, total, 1e-9)
}

func TestProfitLedgerBadContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "total_profit")
	require.NoError(t, os.WriteFile(path, []byte("not-a-number"), 0o644))

	_, err := NewProfitLedger(path).Load()
	assert.Error(t, err)
}
