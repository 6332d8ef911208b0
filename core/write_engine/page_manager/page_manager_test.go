package pagemanager

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupPageManager creates a PageManager over a fresh file in a temporary
// directory for isolated testing.
func setupPageManager(t *testing.T) *PageManager {
	t.Helper()
	logger, err := zap.NewDevelopment()
	require.NoError(t, err)

	pm, err := NewPageManager(filepath.Join(t.TempDir(), "testfile.bin"), testPageSize, logger)
	require.NoError(t, err)
	t.Cleanup(func() { pm.Close() })

	return pm
}

func filledPage(value byte) *Page {
	return PageFromBytes(bytes.Repeat([]byte{value}, testPageSize), testPageSize)
}

func TestPageManagerRejectsBadPageSize(t *testing.T) {
	_, err := NewPageManager(filepath.Join(t.TempDir(), "testfile.bin"), 0, nil)
	require.ErrorIs(t, err, ErrInvalidPageSize)
}

func TestPageManagerWriteReadRoundTrip(t *testing.T) {
	pm := setupPageManager(t)

	require.NoError(t, pm.WritePage(0, filledPage(3)))

	page, err := pm.ReadPage(0)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{3}, testPageSize), page.Read())
}

func TestPageManagerAppendAssignsSequentialPositions(t *testing.T) {
	pm := setupPageManager(t)

	for i := 0; i < 4; i++ {
		position, err := pm.AppendPage(filledPage(byte(i)))
		require.NoError(t, err)
		require.Equal(t, uint64(i), position)
	}

	n, err := pm.NPages()
	require.NoError(t, err)
	require.Equal(t, uint64(4), n)

	for i := 0; i < 4; i++ {
		page, err := pm.ReadPage(uint64(i))
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{byte(i)}, testPageSize), page.Read())
	}
}

func TestPageManagerWriteAtArbitraryPositions(t *testing.T) {
	pm := setupPageManager(t)

	for i := 0; i <= 10; i++ {
		require.NoError(t, pm.WritePage(uint64(i), filledPage(byte(i))))
	}

	for i := 10; i >= 0; i-- {
		page, err := pm.ReadPage(uint64(i))
		require.NoError(t, err)
		require.Equal(t, bytes.Repeat([]byte{byte(i)}, testPageSize), page.Read())
	}
}

func TestPageManagerReadMissingPageFails(t *testing.T) {
	pm := setupPageManager(t)

	_, err := pm.ReadPage(0)
	require.ErrorIs(t, err, ErrIO)

	for i := 0; i < 3; i++ {
		_, err := pm.AppendPage(filledPage(byte(i)))
		require.NoError(t, err)
	}

	_, err = pm.ReadPage(3)
	require.ErrorIs(t, err, ErrIO)

	_, err = pm.ReadPage(2)
	require.NoError(t, err)
}

func TestPageManagerWritePastEOFExtendsFile(t *testing.T) {
	pm := setupPageManager(t)

	// Writing at position 4 of an empty file leaves pages 0-3 as holes.
	require.NoError(t, pm.WritePage(4, filledPage(9)))

	n, err := pm.NPages()
	require.NoError(t, err)
	require.Equal(t, uint64(5), n)

	page, err := pm.ReadPage(4)
	require.NoError(t, err)
	require.Equal(t, bytes.Repeat([]byte{9}, testPageSize), page.Read())

	hole, err := pm.ReadPage(0)
	require.NoError(t, err)
	require.Equal(t, make([]byte, testPageSize), hole.Read())
}

func TestPageManagerWrongPageSizePanics(t *testing.T) {
	pm := setupPageManager(t)
	wrong := NewPage(testPageSize * 2)

	require.Panics(t, func() { pm.WritePage(0, wrong) })
	require.Panics(t, func() { pm.AppendPage(wrong) })
}
