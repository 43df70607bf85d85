// Package buffer implements the Buffer Pool Manager (BPM): a
// fixed-size in-memory cache of fixed-size disk pages with clock-based
// replacement, pin counts, dirty tracking, and a lookup-table-indexed
// frame table. This is the hard, in-scope half of the storage core;
// storage/disk (the paged-file collaborator) is its only external
// dependency.
package buffer

import (
	"log/slog"

	"github.com/ryogrid/paged-btree/interfaces"
	"github.com/ryogrid/paged-btree/storage/errs"
	"github.com/ryogrid/paged-btree/storage/page"
)

// PoolStats is a point-in-time snapshot of pool activity, logged at
// Close, for observability rather than the operational contract.
type PoolStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Flushes   uint64
}

// PoolManager is the BPM facade composing the frame descriptor table,
// frame buffer, lookup table, and clock replacer into the contract
// interfaces.BufferPool names.
type PoolManager struct {
	frames []descriptor
	pages  []*page.Page
	lookup *lookupTable
	clock  *clockReplacer
	files  map[string]interfaces.PagedFile

	stats PoolStats
}

// NewPoolManager allocates frameCount frames up front. Frames are
// destroyed (and flushed, if dirty and valid) only by Close.
func NewPoolManager(frameCount int) *PoolManager {
	if frameCount <= 0 {
		panic("buffer: NewPoolManager: frameCount must be positive")
	}
	frames := make([]descriptor, frameCount)
	pages := make([]*page.Page, frameCount)
	for i := range frames {
		frames[i].frameNo = FrameID(i)
		pages[i] = page.New()
	}
	return &PoolManager{
		frames: frames,
		pages:  pages,
		lookup: newLookupTable(frameCount),
		clock:  newClockReplacer(),
		files:  make(map[string]interfaces.PagedFile),
	}
}

// register makes file known to the pool so FlushFile/DisposePage can
// address it by name. ReadPage/AllocPage register their file
// argument automatically.
func (p *PoolManager) register(file interfaces.PagedFile) {
	if _, ok := p.files[file.Name()]; !ok {
		p.files[file.Name()] = file
	}
}

// allocFrame runs the clock sweep and returns a free frame, evicting
// and writing back a victim if necessary.
func (p *PoolManager) allocFrame() (FrameID, error) {
	consecutivePinned := 0
	n := len(p.frames)

	for {
		id, res := p.clock.step(p.frames)
		switch res {
		case victimFound:
			d := &p.frames[id]
			if d.valid {
				if d.dirty {
					if err := p.writeBack(d, id); err != nil {
						return 0, err
					}
				}
				p.lookup.remove(d.key)
				p.stats.Evictions++
			}
			d.clear()
			return id, nil
		case victimPinned:
			consecutivePinned++
			if consecutivePinned >= n {
				return 0, errs.New("AllocFrame", errs.BufferExceeded)
			}
		case victimNone:
			// refbit-clearing pass: resets the run of consecutive
			// pinned observations, since a non-pinned frame was seen.
			consecutivePinned = 0
		}
	}
}

func (p *PoolManager) writeBack(d *descriptor, id FrameID) error {
	file, ok := p.files[d.key.file]
	if !ok {
		return errs.Newf("AllocFrame", errs.BadBuffer, "unknown file %q for resident frame %d", d.key.file, id)
	}
	pg := p.pages[id]
	pg.ID = d.key.page
	if err := file.WritePage(pg); err != nil {
		return err
	}
	d.dirty = false
	return nil
}

// ReadPage pins and returns the page. A resident hit sets refBit and
// increments pin count; a miss obtains a frame via the clock replacer,
// has file load the page, and installs a fresh descriptor with
// pinCount=1, dirty=false, refBit=true, valid=true.
func (p *PoolManager) ReadPage(file interfaces.FileHandle, pageNo page.ID) (*page.Page, error) {
	pf, ok := file.(interfaces.PagedFile)
	if !ok {
		return nil, errs.New("ReadPage", errs.BadBuffer)
	}
	p.register(pf)

	key := frameKey{file: file.Name(), page: pageNo}
	if id, ok := p.lookup.get(key); ok {
		d := &p.frames[id]
		d.refBit = true
		d.pinCount++
		p.stats.Hits++
		return p.pages[id], nil
	}

	id, err := p.allocFrame()
	if err != nil {
		return nil, err
	}
	loaded, err := pf.ReadPage(pageNo)
	if err != nil {
		return nil, err
	}
	p.pages[id] = loaded
	p.lookup.insert(key, id)
	d := &p.frames[id]
	d.key = key
	d.pinCount = 1
	d.dirty = false
	d.refBit = true
	d.valid = true
	p.stats.Misses++
	return loaded, nil
}

// AllocPage asks file for a fresh disk page, installs it in a frame
// pinned once, and returns it.
func (p *PoolManager) AllocPage(file interfaces.FileHandle) (*page.Page, error) {
	pf, ok := file.(interfaces.PagedFile)
	if !ok {
		return nil, errs.New("AllocPage", errs.BadBuffer)
	}
	p.register(pf)

	id, err := p.allocFrame()
	if err != nil {
		return nil, err
	}
	newPg, err := pf.AllocatePage()
	if err != nil {
		return nil, err
	}
	p.pages[id] = newPg
	key := frameKey{file: file.Name(), page: newPg.ID}
	p.lookup.insert(key, id)
	d := &p.frames[id]
	d.key = key
	d.pinCount = 1
	d.dirty = false
	d.refBit = true
	d.valid = true
	return newPg, nil
}

// UnpinPage is a no-op if the page isn't resident (so EndScan stays
// idempotent). Otherwise it fails with PageNotPinned if pinCount is
// already 0; else ORs in dirty and decrements pinCount.
func (p *PoolManager) UnpinPage(file interfaces.FileHandle, pageNo page.ID, dirty bool) error {
	key := frameKey{file: file.Name(), page: pageNo}
	id, ok := p.lookup.get(key)
	if !ok {
		return nil
	}
	d := &p.frames[id]
	if d.pinCount == 0 {
		return errs.NewPage("UnpinPage", errs.PageNotPinned, file.Name(), uint32(pageNo))
	}
	if dirty {
		d.dirty = true
	}
	d.pinCount--
	return nil
}

// FlushFile writes back every dirty valid frame owned by file and
// removes their lookup entries. Fails PagePinned if any frame for the
// file is still pinned, or BadBuffer if an invalid descriptor claims
// the file (state corruption).
func (p *PoolManager) FlushFile(file interfaces.FileHandle) error {
	name := file.Name()
	for id := range p.frames {
		d := &p.frames[id]
		if d.key.file != name {
			continue
		}
		if d.pinCount > 0 {
			return errs.NewPage("FlushFile", errs.PagePinned, name, uint32(d.key.page))
		}
		if !d.valid {
			return errs.NewPage("FlushFile", errs.BadBuffer, name, uint32(d.key.page))
		}
		if d.dirty {
			if err := p.writeBack(d, FrameID(id)); err != nil {
				return err
			}
			p.stats.Flushes++
		}
		p.lookup.remove(d.key)
		d.clear()
	}
	return nil
}

// DisposePage clears any resident frame for (file, pageNo), removes
// its lookup entry, and deletes the page on disk. Not used by the
// core insert path, which only ever grows a tree; kept for API
// completeness.
func (p *PoolManager) DisposePage(file interfaces.FileHandle, pageNo page.ID) error {
	pf, ok := file.(interfaces.PagedFile)
	if !ok {
		return errs.New("DisposePage", errs.BadBuffer)
	}
	key := frameKey{file: file.Name(), page: pageNo}
	if id, ok := p.lookup.get(key); ok {
		p.frames[id].clear()
		p.lookup.remove(key)
	}
	return pf.DeletePage(pageNo)
}

// Close writes back every dirty, valid frame. Pinned frames at this
// point are a caller bug; Close flushes them anyway rather than
// panicking, and logs at Debug how many dirty pages it wrote back
// along with the hit/miss/eviction counters.
func (p *PoolManager) Close() error {
	flushed := 0
	for id := range p.frames {
		d := &p.frames[id]
		if d.valid && d.dirty {
			if err := p.writeBack(d, FrameID(id)); err != nil {
				return err
			}
			flushed++
		}
	}
	slog.Debug("buffer pool closed", "dirty_pages_flushed", flushed, "hits", p.stats.Hits,
		"misses", p.stats.Misses, "evictions", p.stats.Evictions)
	return nil
}

// Stats returns a snapshot of pool activity counters.
func (p *PoolManager) Stats() PoolStats {
	return p.stats
}

// PinnedCount sums pin counts across every frame, used by tests
// asserting the pin-balance property: after any public operation
// returns, total pins equal exactly what active scans hold.
func (p *PoolManager) PinnedCount() int {
	total := 0
	for i := range p.frames {
		total += int(p.frames[i].pinCount)
	}
	return total
}

var _ interfaces.BufferPool = (*PoolManager)(nil)
