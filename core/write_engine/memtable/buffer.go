// Package memtable holds the in-memory side of the write engine. For now
// that is the Buffer frame descriptor; a full buffer pool (frame table,
// eviction policy) layers on top of it and is not part of this package.
package memtable

import (
	pagemanager "github.com/edb-io/edb/core/write_engine/page_manager"
)

// NoTxnID marks a buffer that no transaction has modified.
const NoTxnID int64 = -1

// Buffer describes one in-memory page frame: which page it holds, how many
// callers have it pinned, and which transaction last modified it at what
// LSN. The descriptor is transient, never written to disk, and carries no
// locking of its own; an owning buffer pool latches frames and serializes
// access.
//
// The recorded LSN is the value a pool passes to the log manager's
// FlushSinceLSN before writing this frame's page to disk, so the log record
// for the modification reaches disk no later than the page itself.
type Buffer struct {
	page         *pagemanager.Page // nil when the frame holds no page
	pagePosition uint64
	txnID        int64
	lsn          int64
	pins         uint32
}

// NewBuffer returns an empty frame descriptor: no page, no modifying
// transaction, zero pins.
func NewBuffer() *Buffer {
	return &Buffer{
		txnID: NoTxnID,
		lsn:   1,
	}
}

// Pin marks the frame as in use. Pins stack: concurrent holders each pin and
// each must unpin.
func (b *Buffer) Pin() { b.pins++ }

// Unpin releases one pin. Unpinning a buffer with zero pins means a caller's
// pin/unpin bookkeeping is broken; that is a contract violation and panics
// rather than being silently tolerated.
func (b *Buffer) Unpin() {
	if b.pins == 0 {
		panic("memtable: unpin on buffer with zero pins")
	}
	b.pins--
}

// IsPinned reports whether the frame is in use. An eviction policy must
// never select a pinned buffer.
func (b *Buffer) IsPinned() bool { return b.pins > 0 }

// MarkModified records the transaction that just modified the buffered page.
// The transaction id is recorded unconditionally; the stored LSN is updated
// only for a strictly positive lsn, so callers logging outside a sequenced
// operation can pass 0 without disturbing the previous watermark.
func (b *Buffer) MarkModified(txnID, lsn int64) {
	b.txnID = txnID
	if lsn > 0 {
		b.lsn = lsn
	}
}

// SetPage points the frame at a page and its position in the backing file.
func (b *Buffer) SetPage(page *pagemanager.Page, position uint64) {
	b.page = page
	b.pagePosition = position
}

// Reset returns the frame to its empty state. Pools only reset frames they
// have already verified to be unpinned.
func (b *Buffer) Reset() {
	b.page = nil
	b.pagePosition = 0
	b.txnID = NoTxnID
	b.lsn = 1
	b.pins = 0
}

func (b *Buffer) Page() *pagemanager.Page { return b.page }
func (b *Buffer) PagePosition() uint64    { return b.pagePosition }
func (b *Buffer) TxnID() int64            { return b.txnID }
func (b *Buffer) LSN() int64              { return b.lsn }
func (b *Buffer) PinCount() uint32        { return b.pins }
