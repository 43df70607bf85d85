package interfaces

import "github.com/ryogrid/paged-btree/storage/page"

// PagedFile is the external collaborator the buffer pool manager
// reads from and writes to. The relation/record file format,
// directory structure, and on-disk layout beyond "fixed-size pages
// addressed by an id" belong to storage/disk, not to the buffer pool
// manager or the B+Tree index.
type PagedFile interface {
	FileHandle

	// ReadPage returns the contents of pageNo. pageNo must have been
	// produced by a prior AllocatePage or be the file's first page.
	ReadPage(pageNo page.ID) (*page.Page, error)
	// WritePage persists p at p.ID.
	WritePage(p *page.Page) error
	// AllocatePage reserves a fresh page, writes it to the file
	// zero-filled, and returns it with its id set.
	AllocatePage() (*page.Page, error)
	// DeletePage removes pageNo from the file.
	DeletePage(pageNo page.ID) error
	// FirstPageNo returns the id of the file's first page.
	FirstPageNo() page.ID
	// Exists reports whether the file has ever been written to.
	Exists() bool
}
