// Package interfaces decouples the B+Tree index layer from the buffer
// pool manager's concrete implementation, and the buffer pool manager
// from the paged-file collaborator's concrete implementation. The
// buffer pool manager is first-party code in this module; the paged
// file is an external collaborator reached only through this package.
package interfaces

import "github.com/ryogrid/paged-btree/storage/page"

// BufferPool is the contract the B+Tree index (storage/index) depends
// on. storage/buffer.PoolManager implements it.
type BufferPool interface {
	// ReadPage pins and returns the page, loading it from the backing
	// file on a cache miss.
	ReadPage(file FileHandle, pageNo page.ID) (*page.Page, error)
	// AllocPage asks the backing file for a fresh page and returns it
	// pinned with pin count 1.
	AllocPage(file FileHandle) (*page.Page, error)
	// UnpinPage releases one pin on (file, pageNo), OR-ing dirty into
	// the frame's dirty bit. A no-op if the page isn't resident.
	UnpinPage(file FileHandle, pageNo page.ID, dirty bool) error
	// FlushFile writes back every dirty valid frame owned by file and
	// clears their lookup entries.
	FlushFile(file FileHandle) error
	// DisposePage clears any resident frame for (file, pageNo), removes
	// its lookup entry, and deletes the page on disk.
	DisposePage(file FileHandle, pageNo page.ID) error
}

// FileHandle identifies a paged file opened through a PagedFile
// collaborator. Buffer pool lookups key on (FileHandle, page.ID).
type FileHandle interface {
	// Name returns a stable identifier used in lookup keys and error
	// messages; two handles naming the same underlying file must
	// return equal Name values.
	Name() string
}
