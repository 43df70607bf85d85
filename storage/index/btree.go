package index

import (
	"errors"
	"log/slog"

	"github.com/ryogrid/paged-btree/interfaces"
	"github.com/ryogrid/paged-btree/storage/errs"
	"github.com/ryogrid/paged-btree/storage/page"
)

// BulkSource supplies records to scan when an index is created fresh.
// It is an external relation-scan collaborator with just enough shape
// to drive a bulk load. Next returns errs.Sentinel(errs.EndOfFile)
// (via errors.Is) once the source is exhausted.
type BulkSource interface {
	Next(attrByteOffset int32) (RecordId, int32, error)
}

// BTreeIndex is the BTI engine: construction/reopen, InsertEntry with
// preemptive top-down splitting, and (in scan.go) the
// StartScan/ScanNext/EndScan state machine.
type BTreeIndex struct {
	pool interfaces.BufferPool
	file interfaces.PagedFile

	relationName   string
	attrByteOffset int32
	attrType       AttrType

	rootPageNo page.ID
	rootIsLeaf bool

	scan scanState
}

// Open constructs a BTreeIndex over file. If file already has content
// (file.Exists()), the index is reopened and validated against
// relationName/attrByteOffset/attrType; otherwise a fresh index is
// created, and — if source is non-nil — bulk-loaded from it.
func Open(pool interfaces.BufferPool, file interfaces.PagedFile, relationName string, attrByteOffset int32, attrType AttrType, source BulkSource) (*BTreeIndex, error) {
	t := &BTreeIndex{
		pool:           pool,
		file:           file,
		relationName:   relationName,
		attrByteOffset: attrByteOffset,
		attrType:       attrType,
	}
	if file.Exists() {
		if err := t.openExisting(); err != nil {
			return nil, err
		}
		return t, nil
	}
	if err := t.createNew(source); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *BTreeIndex) openExisting() error {
	metaPg, err := t.pool.ReadPage(t.file, MetaPageNo)
	if err != nil {
		return err
	}
	meta := decodeMeta(metaPg)
	if err := t.pool.UnpinPage(t.file, MetaPageNo, false); err != nil {
		return err
	}
	if meta.AttrByteOffset != t.attrByteOffset || meta.AttrType != t.attrType {
		return errs.Newf("Open", errs.BadIndexInfo, "index %s: on-disk (offset=%d type=%v) != requested (offset=%d type=%v)",
			t.relationName, meta.AttrByteOffset, meta.AttrType, t.attrByteOffset, t.attrType)
	}
	t.relationName = meta.RelationName
	t.rootPageNo = meta.RootPageNo
	t.rootIsLeaf = meta.RootIsLeaf
	return nil
}

func (t *BTreeIndex) createNew(source BulkSource) error {
	metaPg, err := t.pool.AllocPage(t.file)
	if err != nil {
		return err
	}
	rootPg, err := t.pool.AllocPage(t.file)
	if err != nil {
		return err
	}

	t.rootPageNo = rootPg.ID
	t.rootIsLeaf = true

	leaf := newLeafNode()
	leaf.encode(rootPg)
	if err := t.pool.UnpinPage(t.file, rootPg.ID, true); err != nil {
		return err
	}

	meta := &MetaPage{
		RelationName:   t.relationName,
		AttrByteOffset: t.attrByteOffset,
		AttrType:       t.attrType,
		RootPageNo:     t.rootPageNo,
		RootIsLeaf:     true,
	}
	meta.encode(metaPg)
	if err := t.pool.UnpinPage(t.file, metaPg.ID, true); err != nil {
		return err
	}

	if source != nil {
		if err := t.bulkLoad(source); err != nil {
			return err
		}
	}
	return t.pool.FlushFile(t.file)
}

func (t *BTreeIndex) bulkLoad(source BulkSource) error {
	loaded := 0
	for {
		rid, key, err := source.Next(t.attrByteOffset)
		if errors.Is(err, errs.Sentinel(errs.EndOfFile)) {
			slog.Debug("btree bulk load complete", "relation", t.relationName, "entries", loaded)
			return nil
		}
		if err != nil {
			return err
		}
		if err := t.InsertEntry(key, rid); err != nil {
			return err
		}
		loaded++
	}
}

func (t *BTreeIndex) persistMeta() error {
	metaPg, err := t.pool.ReadPage(t.file, MetaPageNo)
	if err != nil {
		return err
	}
	meta := decodeMeta(metaPg)
	meta.RootPageNo = t.rootPageNo
	meta.RootIsLeaf = t.rootIsLeaf
	meta.encode(metaPg)
	return t.pool.UnpinPage(t.file, MetaPageNo, true)
}

// Close flushes every dirty page belonging to the index file.
func (t *BTreeIndex) Close() error {
	return t.pool.FlushFile(t.file)
}

func (t *BTreeIndex) full(p *page.Page, isLeaf bool) bool {
	if isLeaf {
		return decodeLeaf(p).full()
	}
	return decodeInternal(p).full()
}

// chooseChild returns the index of the child whose subtree may hold
// key: the largest i with keys[i-1] <= key, expressed as "advance
// while key is at least as large as the next separator". Equal keys
// route right, matching the stable-append-among-equals rule for leaf
// inserts.
func chooseChild(node *InternalNode, key int32) int {
	keyCount := int(node.Count) - 1
	i := 0
	for i < keyCount && key >= node.Keys[i] {
		i++
	}
	return i
}

// insertSeparator inserts (sep, siblingID) into node immediately after
// the child at idx, which is the child that was just split. siblingID
// becomes node.Children[idx+1]; sep becomes node.Keys[idx]. Caller
// guarantees node is non-full (preemptive split discipline).
func insertSeparator(node *InternalNode, idx int, sep int32, siblingID page.ID) {
	childCount := int(node.Count)
	keyCount := childCount - 1
	copy(node.Keys[idx+1:keyCount+1], node.Keys[idx:keyCount])
	node.Keys[idx] = sep
	copy(node.Children[idx+2:childCount+1], node.Children[idx+1:childCount])
	node.Children[idx+1] = siblingID
	node.Count++
}

// splitChild splits the full node resident in pg (id, isLeaf) in
// place, allocating and pinning a sibling page. It returns the
// separator key, the sibling's page id, and the sibling's page
// itself (still pinned once, from the AllocPage call) — callers must
// reuse that returned page rather than re-reading the sibling by id,
// since a ReadPage on an already-resident page bumps its pin count a
// second time with no matching unpin on most paths. It is the
// caller's responsibility to unpin both pg's id and the sibling id
// exactly once along every path.
//
// Leaf splits copy-up: the sibling keeps its first moved key, and
// that key becomes the separator without being removed from the
// sibling. Non-leaf splits cannot do the same without duplicating a
// child pointer across both sides (a k-key node needs exactly k+1
// children, and every child must belong to exactly one side) — see
// DESIGN.md for the reasoning — so the promoted separator is removed
// from both sides there, the classic B+Tree internal split.
func (t *BTreeIndex) splitChild(id page.ID, pg *page.Page, isLeaf bool) (int32, page.ID, *page.Page, error) {
	siblingPg, err := t.pool.AllocPage(t.file)
	if err != nil {
		return 0, 0, nil, err
	}

	var sep int32
	if isLeaf {
		leaf := decodeLeaf(pg)
		mid := int(leaf.Count) / 2
		n := int(leaf.Count) - mid

		sibling := newLeafNode()
		copy(sibling.Keys[:n], leaf.Keys[mid:leaf.Count])
		copy(sibling.Rids[:n], leaf.Rids[mid:leaf.Count])
		sibling.Count = int32(n)
		sibling.RightSibling = leaf.RightSibling
		sep = sibling.Keys[0]

		for i := mid; i < int(leaf.Count); i++ {
			leaf.Keys[i] = 0
			leaf.Rids[i] = RecordId{}
		}
		leaf.Count = int32(mid)
		leaf.RightSibling = siblingPg.ID

		leaf.encode(pg)
		sibling.encode(siblingPg)
	} else {
		node := decodeInternal(pg)
		childCount := int(node.Count)
		keyCount := childCount - 1
		mid := childCount / 2

		siblingChildCount := childCount - mid
		siblingKeyCount := siblingChildCount - 1

		sibling := newInternalNode()
		sibling.Level = node.Level
		copy(sibling.Children[:siblingChildCount], node.Children[mid:childCount])
		copy(sibling.Keys[:siblingKeyCount], node.Keys[mid:keyCount])
		sibling.Count = int32(siblingChildCount)
		sep = node.Keys[mid-1]

		for i := mid; i < childCount; i++ {
			node.Children[i] = 0
		}
		for i := mid - 1; i < keyCount; i++ {
			node.Keys[i] = 0
		}
		node.Count = int32(mid)

		node.encode(pg)
		sibling.encode(siblingPg)
	}

	return sep, siblingPg.ID, siblingPg, nil
}

// splitRootAndDescend handles splitting the tree's root, which has no
// parent to receive a pushed-up separator: it allocates a fresh root
// above the split halves, persists it to the meta page, and returns
// the (possibly new) current node to continue descending into.
func (t *BTreeIndex) splitRootAndDescend(rootID page.ID, rootPg *page.Page, rootIsLeaf bool, key int32) (page.ID, bool, *page.Page, error) {
	sep, siblingID, siblingPg, err := t.splitChild(rootID, rootPg, rootIsLeaf)
	if err != nil {
		return 0, false, nil, err
	}

	newRootLevel := int32(1)
	if !rootIsLeaf {
		newRootLevel = decodeInternal(rootPg).Level + 1
	}

	newRootPg, err := t.pool.AllocPage(t.file)
	if err != nil {
		return 0, false, nil, err
	}
	newRoot := newInternalNode()
	newRoot.Level = newRootLevel
	newRoot.Count = 2
	newRoot.Keys[0] = sep
	newRoot.Children[0] = rootID
	newRoot.Children[1] = siblingID
	newRoot.encode(newRootPg)

	newRootID := newRootPg.ID
	if err := t.pool.UnpinPage(t.file, newRootID, true); err != nil {
		return 0, false, nil, err
	}

	t.rootPageNo = newRootID
	t.rootIsLeaf = false
	if err := t.persistMeta(); err != nil {
		return 0, false, nil, err
	}

	if key >= sep {
		if err := t.pool.UnpinPage(t.file, rootID, true); err != nil {
			return 0, false, nil, err
		}
		return siblingID, rootIsLeaf, siblingPg, nil
	}
	if err := t.pool.UnpinPage(t.file, siblingID, true); err != nil {
		return 0, false, nil, err
	}
	return rootID, rootIsLeaf, rootPg, nil
}

// descendToLeafWithPreemptiveSplit walks from the root to the leaf
// that should hold key, splitting any full node it would otherwise
// have to descend through — so the parent is always writable and no
// split ever needs to propagate back up after the fact. Returns the
// destination leaf pinned exactly once; the caller must unpin it.
func (t *BTreeIndex) descendToLeafWithPreemptiveSplit(key int32) (*page.Page, page.ID, error) {
	curID := t.rootPageNo
	curIsLeaf := t.rootIsLeaf
	curPg, err := t.pool.ReadPage(t.file, curID)
	if err != nil {
		return nil, 0, err
	}

	if t.full(curPg, curIsLeaf) {
		curID, curIsLeaf, curPg, err = t.splitRootAndDescend(curID, curPg, curIsLeaf, key)
		if err != nil {
			return nil, 0, err
		}
	}

	for !curIsLeaf {
		node := decodeInternal(curPg)
		idx := chooseChild(node, key)
		childID := node.Children[idx]
		childIsLeaf := node.Level == 1

		childPg, err := t.pool.ReadPage(t.file, childID)
		if err != nil {
			_ = t.pool.UnpinPage(t.file, curID, false)
			return nil, 0, err
		}

		parentDirty := false
		if t.full(childPg, childIsLeaf) {
			sep, siblingID, siblingPg, err := t.splitChild(childID, childPg, childIsLeaf)
			if err != nil {
				_ = t.pool.UnpinPage(t.file, curID, false)
				_ = t.pool.UnpinPage(t.file, childID, false)
				return nil, 0, err
			}
			insertSeparator(node, idx, sep, siblingID)
			node.encode(curPg)
			parentDirty = true

			if key >= sep {
				if err := t.pool.UnpinPage(t.file, childID, true); err != nil {
					return nil, 0, err
				}
				childID = siblingID
				childPg = siblingPg
			} else {
				if err := t.pool.UnpinPage(t.file, siblingID, true); err != nil {
					return nil, 0, err
				}
			}
		}

		if err := t.pool.UnpinPage(t.file, curID, parentDirty); err != nil {
			return nil, 0, err
		}
		curID, curPg, curIsLeaf = childID, childPg, childIsLeaf
	}

	return curPg, curID, nil
}

// InsertEntry inserts a single (key, rid) pair, descending with
// preemptive splits and then inserting into the now-guaranteed-
// non-full destination leaf, shifting the dense occupied prefix right
// of the insertion point. Equal keys are placed after existing equals
// (stable append).
func (t *BTreeIndex) InsertEntry(key int32, rid RecordId) error {
	leafPg, leafID, err := t.descendToLeafWithPreemptiveSplit(key)
	if err != nil {
		return err
	}

	leaf := decodeLeaf(leafPg)
	i := 0
	for i < int(leaf.Count) && leaf.Keys[i] <= key {
		i++
	}
	copy(leaf.Keys[i+1:leaf.Count+1], leaf.Keys[i:leaf.Count])
	copy(leaf.Rids[i+1:leaf.Count+1], leaf.Rids[i:leaf.Count])
	leaf.Keys[i] = key
	leaf.Rids[i] = rid
	leaf.Count++
	leaf.encode(leafPg)

	return t.pool.UnpinPage(t.file, leafID, true)
}

// descendToLeafReadOnly performs a pure, non-mutating descent: no
// split is ever triggered, because scans never write.
func (t *BTreeIndex) descendToLeafReadOnly(key int32) (page.ID, error) {
	curID := t.rootPageNo
	curIsLeaf := t.rootIsLeaf
	for !curIsLeaf {
		curPg, err := t.pool.ReadPage(t.file, curID)
		if err != nil {
			return 0, err
		}
		node := decodeInternal(curPg)
		idx := chooseChild(node, key)
		childID := node.Children[idx]
		childIsLeaf := node.Level == 1
		if err := t.pool.UnpinPage(t.file, curID, false); err != nil {
			return 0, err
		}
		curID, curIsLeaf = childID, childIsLeaf
	}
	return curID, nil
}
