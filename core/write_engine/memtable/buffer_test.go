package memtable

import (
	"testing"

	"github.com/stretchr/testify/require"

	pagemanager "github.com/edb-io/edb/core/write_engine/page_manager"
)

func TestNewBufferDefaults(t *testing.T) {
	b := NewBuffer()

	require.Nil(t, b.Page())
	require.Equal(t, uint64(0), b.PagePosition())
	require.Equal(t, NoTxnID, b.TxnID())
	require.Equal(t, int64(1), b.LSN())
	require.Equal(t, uint32(0), b.PinCount())
	require.False(t, b.IsPinned())
}

func TestPinUnpin(t *testing.T) {
	b := NewBuffer()

	b.Pin()
	b.Pin()
	require.True(t, b.IsPinned())
	require.Equal(t, uint32(2), b.PinCount())

	b.Unpin()
	require.True(t, b.IsPinned())

	b.Unpin()
	require.False(t, b.IsPinned())
	require.Equal(t, uint32(0), b.PinCount())
}

func TestUnpinWithoutPinPanics(t *testing.T) {
	b := NewBuffer()
	require.Panics(t, func() { b.Unpin() })

	// A matched pin/unpin pair followed by one extra unpin still panics.
	b.Pin()
	b.Unpin()
	require.Panics(t, func() { b.Unpin() })
}

func TestMarkModified(t *testing.T) {
	b := NewBuffer()

	b.MarkModified(7, 42)
	require.Equal(t, int64(7), b.TxnID())
	require.Equal(t, int64(42), b.LSN())

	// Zero and negative LSNs leave the recorded LSN untouched, but the
	// transaction id is always recorded.
	b.MarkModified(9, 0)
	require.Equal(t, int64(9), b.TxnID())
	require.Equal(t, int64(42), b.LSN())

	b.MarkModified(11, -5)
	require.Equal(t, int64(11), b.TxnID())
	require.Equal(t, int64(42), b.LSN())
}

func TestSetPageAndReset(t *testing.T) {
	b := NewBuffer()
	page := pagemanager.NewPage(32)

	b.SetPage(page, 3)
	b.MarkModified(5, 10)
	require.Same(t, page, b.Page())
	require.Equal(t, uint64(3), b.PagePosition())

	b.Reset()
	require.Nil(t, b.Page())
	require.Equal(t, uint64(0), b.PagePosition())
	require.Equal(t, NoTxnID, b.TxnID())
	require.Equal(t, int64(1), b.LSN())
	require.False(t, b.IsPinned())
}
