// Package heap is a minimal relation/record-file collaborator: the
// external source of records a B+Tree index bulk-loads from. The
// record file format and relation scanning are out of scope for
// correctness hardening; this package gives it just enough shape to
// drive index.Open's bulk load and exercise end-to-end scans.
package heap

import (
	"encoding/binary"
	"io"

	"github.com/google/uuid"

	"github.com/ryogrid/paged-btree/storage/errs"
	"github.com/ryogrid/paged-btree/storage/index"
	"github.com/ryogrid/paged-btree/storage/page"
)

// Record is one fixed-width row: an opaque byte payload plus a
// correlation id. ID is not part of the on-disk format; a fresh one is
// stamped in memory each time Next reads the record. BulkSourceAdapter
// does not pass it on to the index.
type Record struct {
	Bytes []byte
	ID    uuid.UUID
}

// File is a fixed-width flat file of records: recordSize bytes per
// record, one record per slot, slots packed back to back starting at
// offset 0 (no page-oriented layout — the heap file is the external
// collaborator, never reinterpreted by the buffer pool or the index).
type File struct {
	r          io.ReaderAt
	recordSize int
	slot       int64
}

// NewFile wraps r as a fixed-width record source.
func NewFile(r io.ReaderAt, recordSize int) *File {
	return &File{r: r, recordSize: recordSize}
}

// Next reads the next record, returning its RecordId (page_no is
// always 1 — this collaborator predates any page-oriented heap
// layout — slot_no is the record's sequential index) and the raw
// bytes. Returns errs.Sentinel(errs.EndOfFile) once the underlying
// reader is exhausted.
func (f *File) Next() (index.RecordId, Record, error) {
	buf := make([]byte, f.recordSize)
	off := f.slot * int64(f.recordSize)
	n, err := f.r.ReadAt(buf, off)
	if err == io.EOF && n < f.recordSize {
		return index.RecordId{}, Record{}, errs.New("Next", errs.EndOfFile)
	}
	if err != nil && err != io.EOF {
		return index.RecordId{}, Record{}, err
	}

	rid := index.RecordId{PageNo: page.ID(1), SlotNo: uint16(f.slot)}
	f.slot++
	return rid, Record{Bytes: buf, ID: uuid.New()}, nil
}

// BulkSourceAdapter adapts a *File into index.BulkSource, extracting
// the signed 32-bit key at attrByteOffset from each record's bytes.
type BulkSourceAdapter struct {
	file *File
}

// NewBulkSourceAdapter wraps file for use with index.Open.
func NewBulkSourceAdapter(file *File) *BulkSourceAdapter {
	return &BulkSourceAdapter{file: file}
}

func (a *BulkSourceAdapter) Next(attrByteOffset int32) (index.RecordId, int32, error) {
	rid, rec, err := a.file.Next()
	if err != nil {
		return index.RecordId{}, 0, err
	}
	key := int32(binary.LittleEndian.Uint32(rec.Bytes[attrByteOffset : attrByteOffset+4]))
	return rid, key, nil
}
