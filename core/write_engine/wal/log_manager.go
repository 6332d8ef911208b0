// Package wal implements the write-ahead log: an append-only sequence of
// fixed-size pages layered on a PageStore. Each log page starts with a
// 2-byte big-endian offset header pointing at the start of the most recently
// written record:
//
//	--------------------------------------------------
//	| offset (2 bytes) |     free space      |  data |
//	--------------------------------------------------
//
// Records are packed back-to-front: the first append lands against the right
// edge of the page and each later record is placed immediately before it, so
// a reader scanning from the header offset forward sees the newest record
// first. Position 0 holds the oldest page; the last page is the mutable tail.
package wal

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	pagemanager "github.com/edb-io/edb/core/write_engine/page_manager"
)

// LSN aliases the shared sequence number type. LSNs are assigned per
// appended record, starting at 1 for the first record after open. They are
// not persisted anywhere in the log format: counters restart at zero on
// every reopen, so a recovery layer built on top must persist its own
// sequencing in record payloads or re-derive order by scanning.
type LSN = pagemanager.LSN

const InvalidLSN = pagemanager.InvalidLSN

// logPageHeaderSize is the 2-byte big-endian offset header at the start of
// every log page.
const logPageHeaderSize = 2

// logPageOffset reads a log page's offset header: the byte index where the
// newest record begins. A fresh page carries pageSize (no records yet); the
// header itself is never overwritten, so the offset is always >= 2.
func logPageOffset(p *pagemanager.Page) uint16 {
	return binary.BigEndian.Uint16(p.Read()[:logPageHeaderSize])
}

func setLogPageOffset(p *pagemanager.Page, offset int) {
	if offset < logPageHeaderSize || offset > p.Size() {
		panic(fmt.Sprintf("wal: log page offset %d outside valid range [%d, %d]",
			offset, logPageHeaderSize, p.Size()))
	}
	binary.BigEndian.PutUint16(p.Mutate()[:logPageHeaderSize], uint16(offset))
}

// LogManager appends records to a page-addressed log file. All pages but the
// last are immutable, flushed history; the last page is the in-memory tail,
// rewritten in place on every flush until an append overflows it, at which
// point the tail is flushed one final time and a fresh tail begins at the
// next position.
//
// A single mutex serializes Append, Flush and FlushSinceLSN; the design
// assumes one logical writer and adds no background flushing.
type LogManager struct {
	store    PageStore
	pageSize int
	logger   *zap.Logger

	mu               sync.Mutex
	tail             *pagemanager.Page
	tailPosition     uint64
	latestLSN        LSN
	latestFlushedLSN LSN

	metrics *logManagerMetrics
}

type logManagerMetrics struct {
	appends     metric.Int64Counter
	flushes     metric.Int64Counter
	rollovers   metric.Int64Counter
	recordBytes metric.Int64Counter
}

// NewLogManager opens a log over the given page store. An empty store gets a
// fresh empty tail at position 0, held in memory only. A non-empty store has
// its tail loaded from the last existing page, so a partially filled tail
// survives process restarts byte for byte. LSN counters always start at
// zero. A nil logger disables logging.
func NewLogManager(store PageStore, logger *zap.Logger) (*LogManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := store.PageSize()
	if pageSize <= logPageHeaderSize || pageSize > math.MaxUint16 {
		return nil, fmt.Errorf("%w: log page size %d outside supported range (%d, %d]",
			pagemanager.ErrInvalidPageSize, pageSize, logPageHeaderSize, math.MaxUint16)
	}

	size, err := store.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: sizing log file: %v", pagemanager.ErrLogFileError, err)
	}

	lm := &LogManager{
		store:    store,
		pageSize: pageSize,
		logger:   logger,
	}

	if size == 0 {
		// Fresh log: empty tail at position 0, not yet written to disk.
		lm.tail = pagemanager.NewPage(pageSize)
		setLogPageOffset(lm.tail, pageSize)
		lm.tailPosition = 0
	} else {
		nPages, err := store.NPages()
		if err != nil {
			return nil, fmt.Errorf("%w: counting log pages: %v", pagemanager.ErrLogFileError, err)
		}
		tail, err := store.ReadPage(nPages - 1)
		if err != nil {
			return nil, fmt.Errorf("%w: loading tail from page %d: %v",
				pagemanager.ErrLogFileError, nPages-1, err)
		}
		lm.tail = tail
		lm.tailPosition = nPages - 1
	}

	logger.Info("log manager initialized",
		zap.Uint64("tail_position", lm.tailPosition),
		zap.Uint16("tail_offset", logPageOffset(lm.tail)))
	return lm, nil
}

// RegisterMetrics creates the log manager's counters on the given meter.
// Instrumentation is optional; an unregistered manager skips it entirely.
func (lm *LogManager) RegisterMetrics(meter metric.Meter) error {
	appends, err := meter.Int64Counter("edb_log_appends_total",
		metric.WithDescription("Log records appended"))
	if err != nil {
		return fmt.Errorf("failed to create log append counter: %w", err)
	}
	flushes, err := meter.Int64Counter("edb_log_flushes_total",
		metric.WithDescription("Tail page flushes to disk"))
	if err != nil {
		return fmt.Errorf("failed to create log flush counter: %w", err)
	}
	rollovers, err := meter.Int64Counter("edb_log_page_rollovers_total",
		metric.WithDescription("Tail pages retired after filling up"))
	if err != nil {
		return fmt.Errorf("failed to create log rollover counter: %w", err)
	}
	recordBytes, err := meter.Int64Counter("edb_log_record_bytes_total",
		metric.WithDescription("Payload bytes appended to the log"))
	if err != nil {
		return fmt.Errorf("failed to create log record byte counter: %w", err)
	}
	lm.mu.Lock()
	lm.metrics = &logManagerMetrics{
		appends:     appends,
		flushes:     flushes,
		rollovers:   rollovers,
		recordBytes: recordBytes,
	}
	lm.mu.Unlock()
	return nil
}

// Append packs data into the tail page, newest record nearest the header,
// and returns the LSN assigned to the record. When the tail lacks room for
// data, the current tail is flushed at its position and a fresh tail begins
// at the next position before the record is written. A failed flush leaves
// the tail and both LSN counters untouched, so callers can retry.
//
// Records longer than pageSize-2 bytes can never fit in any page and are
// rejected with ErrLogRecordTooLarge.
func (lm *LogManager) Append(data []byte) (LSN, error) {
	if len(data) > lm.pageSize-logPageHeaderSize {
		return InvalidLSN, fmt.Errorf("%w: record of %d bytes exceeds page capacity of %d",
			pagemanager.ErrLogRecordTooLarge, len(data), lm.pageSize-logPageHeaderSize)
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	offset := int(logPageOffset(lm.tail))
	if offset-logPageHeaderSize < len(data) {
		if err := lm.flushLocked(); err != nil {
			return InvalidLSN, err
		}
		lm.tail = pagemanager.NewPage(lm.pageSize)
		setLogPageOffset(lm.tail, lm.pageSize)
		lm.tailPosition++
		offset = lm.pageSize

		lm.logger.Debug("log tail rolled over", zap.Uint64("tail_position", lm.tailPosition))
		if lm.metrics != nil {
			lm.metrics.rollovers.Add(context.Background(), 1)
		}
	}

	newOffset := offset - len(data)
	copy(lm.tail.Mutate()[newOffset:offset], data)
	setLogPageOffset(lm.tail, newOffset)
	lm.latestLSN++

	if lm.metrics != nil {
		lm.metrics.appends.Add(context.Background(), 1)
		lm.metrics.recordBytes.Add(context.Background(), int64(len(data)))
	}
	return lm.latestLSN, nil
}

// Flush writes the tail page to disk at its current position and records
// that every assigned LSN is now durable. Flushing an unchanged tail simply
// rewrites the same bytes and is harmless.
func (lm *LogManager) Flush() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.flushLocked()
}

// FlushSinceLSN forces the log to disk if the record for the given LSN may
// not be durable yet. Callers must pass the modification LSN recorded on the
// dirty page they are about to evict, not a "flush up to" threshold: the
// tail is flushed exactly when lsn >= LatestFlushedLSN(), i.e. when that
// record may still live only in memory. This is the hook a buffer pool uses
// to uphold the WAL rule that a page's bytes never reach disk before the log
// record that produced them.
func (lm *LogManager) FlushSinceLSN(lsn LSN) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lsn >= lm.latestFlushedLSN {
		return lm.flushLocked()
	}
	return nil
}

// flushLocked writes the tail at its position and advances latestFlushedLSN.
// Callers must hold lm.mu. On write failure latestFlushedLSN is left
// unchanged so the durability watermark never runs ahead of the disk.
func (lm *LogManager) flushLocked() error {
	if err := lm.store.WritePage(lm.tailPosition, lm.tail); err != nil {
		return fmt.Errorf("%w: flushing tail page %d: %v",
			pagemanager.ErrLogFileError, lm.tailPosition, err)
	}
	lm.latestFlushedLSN = lm.latestLSN
	if lm.metrics != nil {
		lm.metrics.flushes.Add(context.Background(), 1)
	}
	return nil
}

// LatestLSN returns the LSN of the most recently appended record, or
// InvalidLSN if nothing has been appended since open.
func (lm *LogManager) LatestLSN() LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.latestLSN
}

// LatestFlushedLSN returns the value LatestLSN held at the most recent
// successful flush. Invariant: LatestFlushedLSN() <= LatestLSN().
func (lm *LogManager) LatestFlushedLSN() LSN {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.latestFlushedLSN
}

// TailPosition returns the page position the tail will be flushed to.
func (lm *LogManager) TailPosition() uint64 {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.tailPosition
}

// TailSnapshot returns a copy of the tail page's current bytes, for
// inspection tooling and tests.
func (lm *LogManager) TailSnapshot() []byte {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	snapshot := make([]byte, lm.pageSize)
	copy(snapshot, lm.tail.Read())
	return snapshot
}

// PageSize returns the fixed log page size in bytes.
func (lm *LogManager) PageSize() int { return lm.pageSize }
