// Package errs defines the error kinds surfaced by the buffer pool
// manager and the B+Tree index, and a StorageError type that carries
// enough context (operation, file, page) for a caller to act on them.
package errs

import "fmt"

// ErrKind identifies one of the error conditions named by the storage
// layer's contract. Kept as a small comparable enum, wrapped by
// StorageError so errors.Is and errors.As work across package
// boundaries.
type ErrKind int

const (
	// KindNone is the zero value; never attached to a returned error.
	KindNone ErrKind = iota

	// BufferExceeded: every frame pinned, clock sweep cannot evict.
	BufferExceeded
	// HashNotFound: page not resident in the buffer pool.
	HashNotFound
	// PageNotPinned: UnpinPage called on a resident frame whose pin
	// count is already zero.
	PageNotPinned
	// PagePinned: FlushFile refused because a frame for the file is
	// still pinned.
	PagePinned
	// BadBuffer: FlushFile found an invalid descriptor claiming the
	// file; indicates buffer pool state corruption.
	BadBuffer
	// BadIndexInfo: an opened index's meta page does not match the
	// caller-supplied (offset, type).
	BadIndexInfo
	// BadScanrange: low_val > high_val.
	BadScanrange
	// BadOpcodes: low/high operator not in the allowed set.
	BadOpcodes
	// NoSuchKeyFound: reserved for point lookups (unused by the core
	// insert/scan contract, kept for API completeness).
	NoSuchKeyFound
	// ScanNotInitialized: ScanNext/EndScan called with no active scan.
	ScanNotInitialized
	// IndexScanCompleted: ScanNext called past the high bound or the
	// end of the leaf chain.
	IndexScanCompleted
	// EndOfFile: the relation-scan collaborator has no more records.
	EndOfFile
)

func (k ErrKind) String() string {
	switch k {
	case BufferExceeded:
		return "BufferExceeded"
	case HashNotFound:
		return "HashNotFound"
	case PageNotPinned:
		return "PageNotPinned"
	case PagePinned:
		return "PagePinned"
	case BadBuffer:
		return "BadBuffer"
	case BadIndexInfo:
		return "BadIndexInfo"
	case BadScanrange:
		return "BadScanrange"
	case BadOpcodes:
		return "BadOpcodes"
	case NoSuchKeyFound:
		return "NoSuchKeyFound"
	case ScanNotInitialized:
		return "ScanNotInitialized"
	case IndexScanCompleted:
		return "IndexScanCompleted"
	case EndOfFile:
		return "EndOfFile"
	default:
		return "None"
	}
}

// StorageError is the error type returned by the buffer pool manager
// and B+Tree index. It pins down which ErrKind occurred plus whatever
// context (operation, file name, page number, message) helps a caller
// diagnose it.
type StorageError struct {
	Kind ErrKind
	Op   string // operation that failed, e.g. "ReadPage", "InsertEntry"
	File string
	Page uint32
	msg  string
}

func (e *StorageError) Error() string {
	if e.msg != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.msg)
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s (file=%s page=%d)", e.Op, e.Kind, e.File, e.Page)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

// Is reports whether target is a StorageError (or *StorageError) with
// the same Kind, letting callers write errors.Is(err, errs.New(...,
// errs.PagePinned)) or compare against a sentinel built with just a Kind.
func (e *StorageError) Is(target error) bool {
	t, ok := target.(*StorageError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a StorageError for the given operation and kind.
func New(op string, kind ErrKind) *StorageError {
	return &StorageError{Op: op, Kind: kind}
}

// Newf builds a StorageError carrying a formatted message.
func Newf(op string, kind ErrKind, format string, args ...any) *StorageError {
	return &StorageError{Op: op, Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NewPage builds a StorageError carrying file/page context.
func NewPage(op string, kind ErrKind, file string, page uint32) *StorageError {
	return &StorageError{Op: op, Kind: kind, File: file, Page: page}
}

// Sentinel returns a bare *StorageError usable with errors.Is, e.g.
// errors.Is(err, errs.Sentinel(errs.PagePinned)).
func Sentinel(kind ErrKind) *StorageError {
	return &StorageError{Kind: kind}
}
