package buffer

import "github.com/ryogrid/paged-btree/storage/page"

// FrameID identifies a slot in the buffer pool's frame array.
type FrameID uint32

// frameKey is the lookup table's key: a page is uniquely identified by
// the file it belongs to plus its page number within that file.
type frameKey struct {
	file string
	page page.ID
}

// descriptor is one entry of the frame descriptor table. Invariants
// enforced by pool.go, not by this type itself:
//
//	valid=false  => pinCount=0 && !dirty && !refBit && key not in lookup
//	valid=true   => lookup[key] == this frame's FrameID, uniquely
//	pinCount > 0 => frame is protected from replacement
type descriptor struct {
	frameNo  FrameID
	key      frameKey
	pinCount uint32
	dirty    bool
	valid    bool
	refBit   bool
}

// clear resets a descriptor to its "free" state. Called only on a
// frame that is about to be reused or that was never used.
func (d *descriptor) clear() {
	d.key = frameKey{}
	d.pinCount = 0
	d.dirty = false
	d.valid = false
	d.refBit = false
}
