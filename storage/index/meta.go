package index

import (
	"bytes"
	"encoding/binary"
	"strconv"

	"github.com/ryogrid/paged-btree/storage/page"
)

// MetaPageNo and InitialRootPageNo are fixed by the index file layout:
// page 1 is always the meta page, page 2 is always the initial
// (empty leaf) root of a freshly created index.
const (
	MetaPageNo        page.ID = 1
	InitialRootPageNo page.ID = 2
)

// MetaPage is the single page describing an index file's identity and
// current root. RootIsLeaf is persisted explicitly rather than
// inferred from the root page number, so a reopen never has to guess
// whether the root is a leaf or an internal node.
type MetaPage struct {
	RelationName   string
	AttrByteOffset int32
	AttrType       AttrType
	RootPageNo     page.ID
	RootIsLeaf     bool
}

func decodeMeta(p *page.Page) *MetaPage {
	b := p.Data
	nameField := b[0:RelNameLen]
	end := bytes.IndexByte(nameField, 0)
	if end < 0 {
		end = RelNameLen
	}
	m := &MetaPage{RelationName: string(nameField[:end])}
	off := RelNameLen
	m.AttrByteOffset = int32(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	m.AttrType = AttrType(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	m.RootPageNo = page.ID(binary.LittleEndian.Uint32(b[off : off+4]))
	off += 4
	m.RootIsLeaf = b[off] != 0
	return m
}

func (m *MetaPage) encode(p *page.Page) {
	b := p.Data
	for i := 0; i < RelNameLen; i++ {
		b[i] = 0
	}
	copy(b[0:RelNameLen], m.RelationName)
	off := RelNameLen
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(m.AttrByteOffset))
	off += 4
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(m.AttrType))
	off += 4
	binary.LittleEndian.PutUint32(b[off:off+4], uint32(m.RootPageNo))
	off += 4
	if m.RootIsLeaf {
		b[off] = 1
	} else {
		b[off] = 0
	}
}

// IndexFileName derives the on-disk index file name from the source
// relation name and the byte offset of the indexed attribute.
func IndexFileName(relationName string, attrByteOffset int32) string {
	return relationName + "." + strconv.FormatInt(int64(attrByteOffset), 10)
}
