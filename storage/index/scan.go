package index

import (
	"github.com/ryogrid/paged-btree/storage/errs"
	"github.com/ryogrid/paged-btree/storage/page"
)

// CompareOp is the comparison operator bounding one end of a range
// scan. Low bounds must be OpGT or OpGTE; high bounds must be OpLT or
// OpLTE.
type CompareOp int

const (
	OpGT CompareOp = iota
	OpGTE
	OpLT
	OpLTE
)

// scanState is the scan's Idle/Scanning state. Exactly one leaf is
// pinned for the scan's entire lifetime, tracked by curPage/curPageNo
// directly rather than re-pinning on every ScanNext call, so a leaf
// sibling is never unpinned right after being pinned. curPageNo ==
// page.NoPage is the "exhausted" sentinel.
type scanState struct {
	active    bool
	curPageNo page.ID
	curPage   *page.Page
	nextEntry int
	highVal   int32
	highOp    CompareOp
}

// firstMatchingIndex returns the smallest index i in leaf's occupied
// prefix with keys[i] satisfying lowOp against lowVal, or leaf.Count
// if none do.
func firstMatchingIndex(leaf *LeafNode, lowVal int32, lowOp CompareOp) int {
	for i := 0; i < int(leaf.Count); i++ {
		if lowOp == OpGT && leaf.Keys[i] > lowVal {
			return i
		}
		if lowOp == OpGTE && leaf.Keys[i] >= lowVal {
			return i
		}
	}
	return int(leaf.Count)
}

// violatesHighBound reports whether key k is past the scan's high
// bound, i.e. scanNext should stop before emitting it.
func violatesHighBound(k int32, highVal int32, highOp CompareOp) bool {
	if highOp == OpLT {
		return k >= highVal
	}
	return k > highVal
}

// StartScan begins a range scan over [lowVal, highVal] bounded by
// lowOp/highOp. Any scan already running is ended first, releasing
// its pin before the new one begins.
func (t *BTreeIndex) StartScan(lowVal int32, lowOp CompareOp, highVal int32, highOp CompareOp) error {
	if lowVal > highVal {
		return errs.New("StartScan", errs.BadScanrange)
	}
	if lowOp != OpGT && lowOp != OpGTE {
		return errs.New("StartScan", errs.BadOpcodes)
	}
	if highOp != OpLT && highOp != OpLTE {
		return errs.New("StartScan", errs.BadOpcodes)
	}
	if t.scan.active {
		if err := t.EndScan(); err != nil {
			return err
		}
	}

	leafID, err := t.descendToLeafReadOnly(lowVal)
	if err != nil {
		return err
	}
	leafPg, err := t.pool.ReadPage(t.file, leafID)
	if err != nil {
		return err
	}

	for {
		leaf := decodeLeaf(leafPg)
		idx := firstMatchingIndex(leaf, lowVal, lowOp)
		if idx < int(leaf.Count) {
			t.scan = scanState{active: true, curPageNo: leafID, curPage: leafPg, nextEntry: idx, highVal: highVal, highOp: highOp}
			return nil
		}

		nextID := leaf.RightSibling
		if err := t.pool.UnpinPage(t.file, leafID, false); err != nil {
			return err
		}
		if nextID == page.NoPage {
			t.scan = scanState{active: true, curPageNo: page.NoPage, highVal: highVal, highOp: highOp}
			return nil
		}
		leafID = nextID
		leafPg, err = t.pool.ReadPage(t.file, leafID)
		if err != nil {
			return err
		}
	}
}

// ScanNext produces the next matching RecordId in ascending key order.
func (t *BTreeIndex) ScanNext() (RecordId, error) {
	if !t.scan.active {
		return RecordId{}, errs.New("ScanNext", errs.ScanNotInitialized)
	}
	if t.scan.curPageNo == page.NoPage {
		return RecordId{}, errs.New("ScanNext", errs.IndexScanCompleted)
	}

	leaf := decodeLeaf(t.scan.curPage)
	if t.scan.nextEntry >= int(leaf.Count) || violatesHighBound(leaf.Keys[t.scan.nextEntry], t.scan.highVal, t.scan.highOp) {
		if err := t.pool.UnpinPage(t.file, t.scan.curPageNo, false); err != nil {
			return RecordId{}, err
		}
		t.scan.curPageNo = page.NoPage
		t.scan.curPage = nil
		return RecordId{}, errs.New("ScanNext", errs.IndexScanCompleted)
	}

	rid := leaf.Rids[t.scan.nextEntry]
	t.scan.nextEntry++

	if t.scan.nextEntry >= int(leaf.Count) {
		nextID := leaf.RightSibling
		if err := t.pool.UnpinPage(t.file, t.scan.curPageNo, false); err != nil {
			return RecordId{}, err
		}
		if nextID == page.NoPage {
			t.scan.curPageNo = page.NoPage
			t.scan.curPage = nil
		} else {
			nextPg, err := t.pool.ReadPage(t.file, nextID)
			if err != nil {
				return RecordId{}, err
			}
			t.scan.curPageNo = nextID
			t.scan.curPage = nextPg
			t.scan.nextEntry = 0
		}
	}

	return rid, nil
}

// EndScan releases the scan's pin (if still held, i.e. not already
// exhausted) and clears scan state. Fails with
// ScanNotInitialized if called with no active scan, which keeps
// shutdown paths simple.
func (t *BTreeIndex) EndScan() error {
	if !t.scan.active {
		return errs.New("EndScan", errs.ScanNotInitialized)
	}
	if t.scan.curPageNo != page.NoPage {
		if err := t.pool.UnpinPage(t.file, t.scan.curPageNo, false); err != nil {
			return err
		}
	}
	t.scan = scanState{}
	return nil
}
