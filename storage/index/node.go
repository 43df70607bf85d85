// Package index implements the B+Tree Index (BTI): a persistent, paged
// B+Tree keyed on a fixed-width signed integer attribute, built on top
// of storage/buffer. Leaf and non-leaf node layouts are fixed-capacity
// arrays packed directly into a page's byte buffer; capacity is
// derived once at init time from page.Size.
package index

import (
	"encoding/binary"

	"github.com/ryogrid/paged-btree/storage/page"
)

// RelNameLen is the fixed width of the relation name field stored in
// the meta page.
const RelNameLen = 64

// AttrType identifies the on-disk type of the indexed attribute.
// Only fixed-width integer keys are supported; the enum exists so an
// opened index can validate itself against a caller's expectations,
// per BadIndexInfo.
type AttrType int32

const (
	AttrTypeInt32 AttrType = iota
)

// RecordId is a logical row address in the external heap file:
// (page_no, slot_no). A zero PageNo is the "none" sentinel — never a
// valid heap page.
type RecordId struct {
	PageNo page.ID
	SlotNo uint16
}

// IsNone reports whether r is the empty-slot / no-sibling sentinel.
func (r RecordId) IsNone() bool { return r.PageNo == page.NoPage }

const (
	leafHeaderSize = 4 + 4     // Count int32 + RightSibling page.ID
	leafEntrySize  = 4 + 4 + 2 // key int32 + RecordId.PageNo + RecordId.SlotNo

	internalHeaderSize = 4 + 4 // Level int32 + Count int32
	internalKeySize    = 4
	internalChildSize  = 4
)

// LeafCap and NodeCap are the fixed per-page slot counts, computed
// once from page.Size so a leaf or non-leaf node always fits in
// exactly one page.
var (
	LeafCap int
	NodeCap int
)

func init() {
	LeafCap = (page.Size - leafHeaderSize) / leafEntrySize
	// A full non-leaf node holds NodeCap keys and NodeCap+1 children;
	// solve for the largest NodeCap whose encoded size fits one page.
	NodeCap = (page.Size - internalHeaderSize - internalChildSize) / (internalKeySize + internalChildSize)
}

// LeafNode is the decoded form of a leaf page: a dense, sorted prefix
// of (key, rid) pairs plus the page id of the next leaf in key order.
type LeafNode struct {
	Count        int32
	RightSibling page.ID
	Keys         []int32
	Rids         []RecordId
}

func newLeafNode() *LeafNode {
	return &LeafNode{Keys: make([]int32, LeafCap), Rids: make([]RecordId, LeafCap)}
}

func (n *LeafNode) full() bool { return int(n.Count) == LeafCap }

func decodeLeaf(p *page.Page) *LeafNode {
	n := newLeafNode()
	b := p.Data
	n.Count = int32(binary.LittleEndian.Uint32(b[0:4]))
	n.RightSibling = page.ID(binary.LittleEndian.Uint32(b[4:8]))
	off := leafHeaderSize
	for i := 0; i < LeafCap; i++ {
		n.Keys[i] = int32(binary.LittleEndian.Uint32(b[off : off+4]))
		n.Rids[i].PageNo = page.ID(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		n.Rids[i].SlotNo = binary.LittleEndian.Uint16(b[off+8 : off+10])
		off += leafEntrySize
	}
	return n
}

func (n *LeafNode) encode(p *page.Page) {
	b := p.Data
	binary.LittleEndian.PutUint32(b[0:4], uint32(n.Count))
	binary.LittleEndian.PutUint32(b[4:8], uint32(n.RightSibling))
	off := leafHeaderSize
	for i := 0; i < LeafCap; i++ {
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(n.Keys[i]))
		binary.LittleEndian.PutUint32(b[off+4:off+8], uint32(n.Rids[i].PageNo))
		binary.LittleEndian.PutUint16(b[off+8:off+10], n.Rids[i].SlotNo)
		off += leafEntrySize
	}
}

// InternalNode is the decoded form of a non-leaf page. Count tracks
// the number of occupied CHILD slots (so the occupied key count is
// always Count-1); Level is 1 for a parent-of-leaves, increasing
// toward the root.
type InternalNode struct {
	Level    int32
	Count    int32
	Keys     []int32
	Children []page.ID
}

func newInternalNode() *InternalNode {
	return &InternalNode{Keys: make([]int32, NodeCap), Children: make([]page.ID, NodeCap+1)}
}

func (n *InternalNode) full() bool { return int(n.Count) == NodeCap+1 }

func decodeInternal(p *page.Page) *InternalNode {
	n := newInternalNode()
	b := p.Data
	n.Level = int32(binary.LittleEndian.Uint32(b[0:4]))
	n.Count = int32(binary.LittleEndian.Uint32(b[4:8]))
	off := internalHeaderSize
	for i := 0; i < NodeCap; i++ {
		n.Keys[i] = int32(binary.LittleEndian.Uint32(b[off : off+4]))
		off += internalKeySize
	}
	for i := 0; i < NodeCap+1; i++ {
		n.Children[i] = page.ID(binary.LittleEndian.Uint32(b[off : off+4]))
		off += internalChildSize
	}
	return n
}

func (n *InternalNode) encode(p *page.Page) {
	b := p.Data
	binary.LittleEndian.PutUint32(b[0:4], uint32(n.Level))
	binary.LittleEndian.PutUint32(b[4:8], uint32(n.Count))
	off := internalHeaderSize
	for i := 0; i < NodeCap; i++ {
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(n.Keys[i]))
		off += internalKeySize
	}
	for i := 0; i < NodeCap+1; i++ {
		binary.LittleEndian.PutUint32(b[off:off+4], uint32(n.Children[i]))
		off += internalChildSize
	}
}
