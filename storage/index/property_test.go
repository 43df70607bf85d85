package index

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryogrid/paged-btree/storage/page"
)

// walkLeaves walks the leftmost leaf to the right along right_sibling
// pointers, calling visit with each leaf's decoded contents. Used by
// the sorted-leaves, leaf-chain, and tree-key-invariant properties.
func walkLeaves(t *testing.T, idx *BTreeIndex, visit func(id page.ID, leaf *LeafNode)) {
	t.Helper()
	id := idx.rootPageNo
	isLeaf := idx.rootIsLeaf
	for !isLeaf {
		pg, err := idx.pool.ReadPage(idx.file, id)
		require.NoError(t, err)
		node := decodeInternal(pg)
		nextID := node.Children[0]
		nextIsLeaf := node.Level == 1
		require.NoError(t, idx.pool.UnpinPage(idx.file, id, false))
		id, isLeaf = nextID, nextIsLeaf
	}

	seen := make(map[page.ID]bool)
	for id != page.NoPage {
		require.False(t, seen[id], "leaf chain revisits page %d", id)
		seen[id] = true

		pg, err := idx.pool.ReadPage(idx.file, id)
		require.NoError(t, err)
		leaf := decodeLeaf(pg)
		visit(id, leaf)
		next := leaf.RightSibling
		require.NoError(t, idx.pool.UnpinPage(idx.file, id, false))
		id = next
	}
}

func TestProperty_SortedLeavesAndLeafChain(t *testing.T) {
	idx, _ := newTestIndex(t, 32)

	const m = 1500
	for _, k := range rand.New(rand.NewSource(7)).Perm(m) {
		require.NoError(t, idx.InsertEntry(int32(k), RecordId{PageNo: page.ID(k + 1), SlotNo: 0}))
	}

	var flat []int32
	walkLeaves(t, idx, func(_ page.ID, leaf *LeafNode) {
		prev := int32(-1)
		for i := 0; i < int(leaf.Count); i++ {
			assert.GreaterOrEqual(t, leaf.Keys[i], prev, "leaf keys must be non-decreasing")
			prev = leaf.Keys[i]
			flat = append(flat, leaf.Keys[i])
		}
	})

	require.Len(t, flat, m)
	for i := 1; i < len(flat); i++ {
		assert.LessOrEqual(t, flat[i-1], flat[i], "leaf-chain traversal must be globally ascending")
	}
}

func TestProperty_TreeKeyInvariant(t *testing.T) {
	idx, _ := newTestIndex(t, 32)

	const m = 1500
	for _, k := range rand.New(rand.NewSource(11)).Perm(m) {
		require.NoError(t, idx.InsertEntry(int32(k), RecordId{PageNo: page.ID(k + 1), SlotNo: 0}))
	}

	var walk func(id page.ID, isLeaf bool) (minKey, maxKey int32, empty bool)
	walk = func(id page.ID, isLeaf bool) (int32, int32, bool) {
		pg, err := idx.pool.ReadPage(idx.file, id)
		require.NoError(t, err)
		defer func() { require.NoError(t, idx.pool.UnpinPage(idx.file, id, false)) }()

		if isLeaf {
			leaf := decodeLeaf(pg)
			if leaf.Count == 0 {
				return 0, 0, true
			}
			return leaf.Keys[0], leaf.Keys[leaf.Count-1], false
		}

		node := decodeInternal(pg)
		var lo, hi int32
		first := true
		for i := 0; i < int(node.Count); i++ {
			childMin, childMax, childEmpty := walk(node.Children[i], node.Level == 1)
			if childEmpty {
				continue
			}
			if i > 0 {
				sep := node.Keys[i-1]
				assert.LessOrEqual(t, sep, childMin, "separator must be <= min key of right subtree")
			}
			if i < int(node.Count)-1 {
				sep := node.Keys[i]
				assert.LessOrEqual(t, childMax, sep, "max key of left subtree must be <= separator")
			}
			if first {
				lo, hi, first = childMin, childMax, false
			} else {
				if childMin < lo {
					lo = childMin
				}
				if childMax > hi {
					hi = childMax
				}
			}
		}
		return lo, hi, first
	}

	_, _, _ = walk(idx.rootPageNo, idx.rootIsLeaf)
}

func TestProperty_RoundTrip(t *testing.T) {
	const m = 1000
	idx, _ := newTestIndex(t, 32)

	for _, k := range rand.New(rand.NewSource(42)).Perm(m) {
		key := int32(k + 1)
		require.NoError(t, idx.InsertEntry(key, RecordId{PageNo: page.ID(key), SlotNo: 0}))
	}

	require.NoError(t, idx.StartScan(1, OpGTE, m, OpLTE))
	var got []int32
	for {
		rid, err := idx.ScanNext()
		if err != nil {
			break
		}
		got = append(got, int32(rid.PageNo))
	}
	require.NoError(t, idx.EndScan())

	require.Len(t, got, m)
	for i, v := range got {
		assert.Equal(t, int32(i+1), v, "round-trip scan must yield 1..M in ascending order")
	}
}

func TestProperty_PinBalanceAfterEachOperation(t *testing.T) {
	idx, pool := newTestIndex(t, 32)

	for _, k := range rand.New(rand.NewSource(99)).Perm(300) {
		require.NoError(t, idx.InsertEntry(int32(k), RecordId{PageNo: page.ID(k + 1), SlotNo: 0}))
		assert.Equal(t, 0, pool.PinnedCount(), "no scan active: pins must be zero after InsertEntry returns")
	}

	require.NoError(t, idx.StartScan(0, OpGTE, 299, OpLTE))
	assert.Equal(t, 1, pool.PinnedCount(), "one leaf pinned while a scan is active")

	for {
		_, err := idx.ScanNext()
		if err != nil {
			break
		}
		assert.LessOrEqual(t, pool.PinnedCount(), 1, "scan must never hold more than one pin at a time")
	}
	assert.Equal(t, 0, pool.PinnedCount(), "exhausted scan releases its pin")

	require.NoError(t, idx.EndScan())
	assert.Equal(t, 0, pool.PinnedCount())
}
