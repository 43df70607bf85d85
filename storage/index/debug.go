package index

import (
	"fmt"
	"io"

	"github.com/ryogrid/paged-btree/storage/page"
)

// DebugDump writes a recursive, indented tree dump to w: node kind,
// level, occupied keys, and (for leaves) the right-sibling chain.
// A diagnostic helper, not part of the operational contract.
func (t *BTreeIndex) DebugDump(w io.Writer) error {
	return t.dumpNode(w, t.rootPageNo, t.rootIsLeaf, 0)
}

func (t *BTreeIndex) dumpNode(w io.Writer, id page.ID, isLeaf bool, depth int) error {
	pg, err := t.pool.ReadPage(t.file, id)
	if err != nil {
		return err
	}
	defer t.pool.UnpinPage(t.file, id, false)

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	if isLeaf {
		leaf := decodeLeaf(pg)
		fmt.Fprintf(w, "%sleaf(page=%d) keys=%v right=%d\n", indent, id, leaf.Keys[:leaf.Count], leaf.RightSibling)
		return nil
	}

	node := decodeInternal(pg)
	fmt.Fprintf(w, "%snode(page=%d level=%d) keys=%v\n", indent, id, node.Level, node.Keys[:node.Count-1])
	for i := 0; i < int(node.Count); i++ {
		if err := t.dumpNode(w, node.Children[i], node.Level == 1, depth+1); err != nil {
			return err
		}
	}
	return nil
}
