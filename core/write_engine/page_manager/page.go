package pagemanager

import "fmt"

// LSN is a Log Sequence Number: a monotonically increasing identifier the
// log manager assigns to each appended record. Declared beside the page
// abstraction so every layer above shares one definition.
type LSN uint64

const InvalidLSN LSN = 0

// Page is an in-memory copy of one disk page: a fixed-size byte buffer that
// is the unit of transfer between memory and disk. A page has no notion of
// its own position; position is assigned by whoever stores it. The length
// never changes after construction.
type Page struct {
	data []byte
}

// NewPage creates an empty, zero-filled page of pageSize bytes.
func NewPage(pageSize int) *Page {
	return &Page{data: make([]byte, pageSize)}
}

// PageFromBytes wraps an existing buffer as a page. The buffer length must
// equal pageSize exactly; a mismatch indicates a programming error or a
// corrupted manager configuration and panics rather than returning an error.
func PageFromBytes(data []byte, pageSize int) *Page {
	if len(data) != pageSize {
		panic(fmt.Sprintf("pagemanager: tried initializing page with data size %d when page size is set to %d",
			len(data), pageSize))
	}
	return &Page{data: data}
}

// Read returns the full page buffer for reading. Callers must not grow or
// shrink it.
func (p *Page) Read() []byte { return p.data }

// Mutate returns the full page buffer for writing. The page enforces no
// internal structure beyond its fixed length; callers keep any embedded
// offset or length headers consistent themselves.
func (p *Page) Mutate() []byte { return p.data }

// Size returns the fixed page size in bytes.
func (p *Page) Size() int { return len(p.data) }
