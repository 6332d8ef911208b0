package pagemanager

import "errors"

// --- Error Definitions ---

var (
	ErrIO                = errors.New("i/o error")
	ErrInvalidPageData   = errors.New("invalid page data")
	ErrInvalidPageSize   = errors.New("invalid page size")
	ErrLogRecordTooLarge = errors.New("log record too large for a single log page")
	ErrLogFileError      = errors.New("log file operation error")
)
