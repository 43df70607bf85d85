package disk

import (
	"github.com/dsnet/golib/memfile"
	"github.com/ryogrid/paged-btree/interfaces"
)

// memDevice adapts *memfile.File to blockDevice.
type memDevice struct{ f *memfile.File }

func (d memDevice) ReadAt(p []byte, off int64) (int, error)  { return d.f.ReadAt(p, off) }
func (d memDevice) WriteAt(p []byte, off int64) (int, error) { return d.f.WriteAt(p, off) }
func (d memDevice) Truncate(size int64) error                { return d.f.Truncate(size) }
func (d memDevice) Close() error                              { return d.f.Close() }

// NewMemPagedFile returns an in-memory PagedFile backed by
// github.com/dsnet/golib/memfile, used by every buffer pool and
// B+Tree unit test. It exercises the exact same ReadAt/WriteAt code
// path as the on-disk implementation.
func NewMemPagedFile(name string) interfaces.PagedFile {
	mf := memfile.New(nil)
	return newPagedFile(name, memDevice{mf}, false, 0)
}
