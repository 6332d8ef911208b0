package wal

import (
	pagemanager "github.com/edb-io/edb/core/write_engine/page_manager"
)

// PageStore is the capability the log manager needs from its backing page
// file: position-addressed reads and writes plus file size bookkeeping.
// *pagemanager.PageManager satisfies it; tests substitute their own.
type PageStore interface {
	ReadPage(position uint64) (*pagemanager.Page, error)
	WritePage(position uint64, page *pagemanager.Page) error
	AppendPage(page *pagemanager.Page) (uint64, error)
	NPages() (uint64, error)
	Size() (int64, error)
	PageSize() int
}

var _ PageStore = (*pagemanager.PageManager)(nil)
