// Package disk implements the Paged File collaborator: fixed-size
// pages addressed by a page id within one file, consumed by
// storage/buffer and never interpreted by it. Page 0 is never
// allocated; the first page handed out is page 1.
package disk

import (
	"fmt"
	"sync"

	"github.com/ryogrid/paged-btree/interfaces"
	"github.com/ryogrid/paged-btree/storage/page"
)

// blockDevice is the minimal random-access byte store both PagedFile
// implementations (on-disk and in-memory) are built on.
type blockDevice interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Close() error
}

// pagedFile is the shared bookkeeping (next page id, file name) over a
// blockDevice. OpenFile and NewMemPagedFile each supply the device.
type pagedFile struct {
	mu      sync.Mutex
	name    string
	dev     blockDevice
	nextID  page.ID // next id AllocatePage will hand out
	existed bool    // true if the file had pages before this process opened it
}

func newPagedFile(name string, dev blockDevice, existed bool, size int64) *pagedFile {
	nextID := page.ID(size/page.Size) + 1
	return &pagedFile{name: name, dev: dev, nextID: nextID, existed: existed}
}

func (f *pagedFile) Name() string { return f.name }

// Exists reports whether the file had pages when it was opened or has
// had a page allocated since.
func (f *pagedFile) Exists() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existed || f.nextID > 1
}

func (f *pagedFile) FirstPageNo() page.ID { return 1 }

func (f *pagedFile) offset(pageNo page.ID) int64 {
	return int64(pageNo-1) * page.Size
}

func (f *pagedFile) ReadPage(pageNo page.ID) (*page.Page, error) {
	if pageNo == page.NoPage {
		return nil, fmt.Errorf("disk: ReadPage: page 0 is the none sentinel")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	p := page.New()
	p.ID = pageNo
	if _, err := f.dev.ReadAt(p.Data, f.offset(pageNo)); err != nil {
		return nil, fmt.Errorf("disk: ReadPage(%s, %d): %w", f.name, pageNo, err)
	}
	return p, nil
}

func (f *pagedFile) WritePage(p *page.Page) error {
	if p.ID == page.NoPage {
		return fmt.Errorf("disk: WritePage: page 0 is the none sentinel")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.dev.WriteAt(p.Data, f.offset(p.ID)); err != nil {
		return fmt.Errorf("disk: WritePage(%s, %d): %w", f.name, p.ID, err)
	}
	return nil
}

func (f *pagedFile) AllocatePage() (*page.Page, error) {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.mu.Unlock()

	p := page.New()
	p.ID = id
	if err := f.WritePage(p); err != nil {
		return nil, fmt.Errorf("disk: AllocatePage: %w", err)
	}
	return p, nil
}

func (f *pagedFile) DeletePage(pageNo page.ID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	zero := make([]byte, page.Size)
	if _, err := f.dev.WriteAt(zero, f.offset(pageNo)); err != nil {
		return fmt.Errorf("disk: DeletePage(%s, %d): %w", f.name, pageNo, err)
	}
	return nil
}

func (f *pagedFile) Close() error {
	return f.dev.Close()
}

var _ interfaces.PagedFile = (*pagedFile)(nil)
