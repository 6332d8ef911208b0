package pagemanager

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PageManager owns one backing file and maps logical page positions to byte
// offsets: the page at position p occupies bytes [p*pageSize, (p+1)*pageSize).
// The file carries no header and no magic number, so every opener must supply
// the same page size. The manager performs no caching; caching is the buffer
// pool's job, layered above.
type PageManager struct {
	filePath string
	file     *os.File
	pageSize int
	logger   *zap.Logger

	mu sync.Mutex

	metrics *pageManagerMetrics
}

type pageManagerMetrics struct {
	reads   metric.Int64Counter
	writes  metric.Int64Counter
	appends metric.Int64Counter
}

// NewPageManager opens (creating if absent, never truncating) the backing
// file for read and write. No pages are pre-allocated. A nil logger disables
// logging.
func NewPageManager(filePath string, pageSize int, logger *zap.Logger) (*PageManager, error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidPageSize, pageSize)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, fmt.Errorf("%w: opening file %s: %v", ErrIO, filePath, err)
	}
	pm := &PageManager{
		filePath: filePath,
		file:     file,
		pageSize: pageSize,
		logger:   logger,
	}
	logger.Info("page manager opened",
		zap.String("path", filePath),
		zap.Int("page_size", pageSize))
	return pm, nil
}

// RegisterMetrics creates the page manager's counters on the given meter.
// Instrumentation is optional; an unregistered manager skips it entirely.
func (pm *PageManager) RegisterMetrics(meter metric.Meter) error {
	reads, err := meter.Int64Counter("edb_page_reads_total",
		metric.WithDescription("Pages read from the backing file"))
	if err != nil {
		return fmt.Errorf("failed to create page read counter: %w", err)
	}
	writes, err := meter.Int64Counter("edb_page_writes_total",
		metric.WithDescription("Pages written in place to the backing file"))
	if err != nil {
		return fmt.Errorf("failed to create page write counter: %w", err)
	}
	appends, err := meter.Int64Counter("edb_page_appends_total",
		metric.WithDescription("Pages appended to the backing file"))
	if err != nil {
		return fmt.Errorf("failed to create page append counter: %w", err)
	}
	pm.metrics = &pageManagerMetrics{reads: reads, writes: writes, appends: appends}
	return nil
}

// ReadPage reads the page at the given 0-based position. Reading at or
// beyond the current page count fails with a short-read error; that is the
// mechanism by which callers detect a page that does not exist yet.
func (pm *PageManager) ReadPage(position uint64) (*Page, error) {
	buf := make([]byte, pm.pageSize)
	offset := int64(position) * int64(pm.pageSize)

	pm.mu.Lock()
	n, err := pm.file.ReadAt(buf, offset)
	pm.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: reading page %d at offset %d (got %d of %d bytes): %v",
			ErrIO, position, offset, n, pm.pageSize, err)
	}
	if pm.metrics != nil {
		pm.metrics.reads.Add(context.Background(), 1)
	}
	return PageFromBytes(buf, pm.pageSize), nil
}

// WritePage writes the page at the given position, overwriting in place.
// Writing beyond the current end of the file extends it. The page length
// must match the configured page size; a mismatch panics.
func (pm *PageManager) WritePage(position uint64, page *Page) error {
	if page.Size() != pm.pageSize {
		panic(fmt.Sprintf("pagemanager: tried writing page with size %d when page size is set to %d",
			page.Size(), pm.pageSize))
	}
	offset := int64(position) * int64(pm.pageSize)

	pm.mu.Lock()
	_, err := pm.file.WriteAt(page.Read(), offset)
	pm.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: writing page %d at offset %d: %v", ErrIO, position, offset, err)
	}
	if pm.metrics != nil {
		pm.metrics.writes.Add(context.Background(), 1)
	}
	return nil
}

// AppendPage writes the page after the last existing page and returns the
// position it was assigned. The page length must match the configured page
// size; a mismatch panics.
func (pm *PageManager) AppendPage(page *Page) (uint64, error) {
	if page.Size() != pm.pageSize {
		panic(fmt.Sprintf("pagemanager: tried appending page with size %d when page size is set to %d",
			page.Size(), pm.pageSize))
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()

	info, err := pm.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ErrIO, pm.filePath, err)
	}
	position := uint64(info.Size()) / uint64(pm.pageSize)
	if _, err := pm.file.WriteAt(page.Read(), info.Size()); err != nil {
		return 0, fmt.Errorf("%w: appending page %d: %v", ErrIO, position, err)
	}
	if pm.metrics != nil {
		pm.metrics.appends.Add(context.Background(), 1)
	}
	return position, nil
}

// NPages returns the number of pages in the backing file. A file length that
// is not an exact multiple of the page size means the file is corrupt; that
// is fatal, not a recoverable condition.
func (pm *PageManager) NPages() (uint64, error) {
	size, err := pm.Size()
	if err != nil {
		return 0, err
	}
	if size%int64(pm.pageSize) != 0 {
		panic(fmt.Sprintf("pagemanager: file %s length %d is not a multiple of page size %d",
			pm.filePath, size, pm.pageSize))
	}
	return uint64(size) / uint64(pm.pageSize), nil
}

// Size returns the current length of the backing file in bytes.
func (pm *PageManager) Size() (int64, error) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	info, err := pm.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("%w: stat %s: %v", ErrIO, pm.filePath, err)
	}
	return info.Size(), nil
}

// PageSize returns the fixed page size this manager was opened with.
func (pm *PageManager) PageSize() int { return pm.pageSize }

// Close closes the backing file.
func (pm *PageManager) Close() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if err := pm.file.Close(); err != nil {
		return fmt.Errorf("%w: closing file %s: %v", ErrIO, pm.filePath, err)
	}
	pm.logger.Info("page manager closed", zap.String("path", pm.filePath))
	return nil
}
