package disk

import (
	"fmt"
	"os"

	"github.com/ncw/directio"
	"github.com/ryogrid/paged-btree/interfaces"
	"github.com/ryogrid/paged-btree/storage/page"
)

// osFileDevice adapts *os.File to blockDevice.
type osFileDevice struct{ f *os.File }

func (d osFileDevice) ReadAt(p []byte, off int64) (int, error)  { return d.f.ReadAt(p, off) }
func (d osFileDevice) WriteAt(p []byte, off int64) (int, error) { return d.f.WriteAt(p, off) }
func (d osFileDevice) Truncate(size int64) error                { return d.f.Truncate(size) }
func (d osFileDevice) Close() error                             { return d.f.Close() }

// OpenFile opens (or creates) an on-disk paged file. When the page
// size is a multiple of the platform's direct I/O block size, pages
// are read and written with O_DIRECT via github.com/ncw/directio so
// the buffer pool is the only cache between the index and the
// platform: going through the ordinary page cache as well would make
// the BPM's own LRU/clock accounting redundant with the kernel's.
// useDirectIO lets callers (and tests) opt out when the platform or
// filesystem can't satisfy O_DIRECT's alignment requirements.
func OpenFile(name string, useDirectIO bool) (interfaces.PagedFile, error) {
	info, statErr := os.Stat(name)
	existed := statErr == nil && info.Size() > 0

	if useDirectIO && page.Size%directio.BlockSize == 0 {
		f, err := directio.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return nil, fmt.Errorf("disk: OpenFile(%s): %w", name, err)
		}
		size := int64(0)
		if existed {
			size = info.Size()
		}
		return newPagedFile(name, osFileDevice{f}, existed, size), nil
	}

	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("disk: OpenFile(%s): %w", name, err)
	}
	size := int64(0)
	if existed {
		size = info.Size()
	}
	return newPagedFile(name, osFileDevice{f}, existed, size), nil
}
