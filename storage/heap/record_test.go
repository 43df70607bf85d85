package heap

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/dsnet/golib/memfile"

	"github.com/ryogrid/paged-btree/storage/errs"
)

func buildFixture(t *testing.T, keys []int32) *memfile.File {
	t.Helper()
	const recordSize = 8
	buf := make([]byte, len(keys)*recordSize)
	for i, k := range keys {
		binary.LittleEndian.PutUint32(buf[i*recordSize:i*recordSize+4], uint32(k))
	}
	return memfile.New(buf)
}

func TestFile_Next_YieldsRecordsThenEndOfFile(t *testing.T) {
	type args struct {
		keys []int32
	}
	tests := []struct {
		name string
		args args
	}{
		{name: "three records", args: args{keys: []int32{1, 2, 3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mf := buildFixture(t, tt.args.keys)
			f := NewFile(mf, 8)

			for i := range tt.args.keys {
				rid, rec, err := f.Next()
				if err != nil {
					t.Fatalf("Next() #%d failed: %v", i, err)
				}
				if int(rid.SlotNo) != i {
					t.Errorf("Next() #%d slot = %d, want %d", i, rid.SlotNo, i)
				}
				if len(rec.Bytes) != 8 {
					t.Errorf("Next() #%d record size = %d, want 8", i, len(rec.Bytes))
				}
			}

			if _, _, err := f.Next(); !errors.Is(err, errs.Sentinel(errs.EndOfFile)) {
				t.Errorf("Next() past end = %v, want EndOfFile", err)
			}
		})
	}
}

func TestBulkSourceAdapter_Next_ExtractsKeyAtOffset(t *testing.T) {
	mf := buildFixture(t, []int32{42, 7, 100})
	adapter := NewBulkSourceAdapter(NewFile(mf, 8))

	want := []int32{42, 7, 100}
	for i, w := range want {
		_, key, err := adapter.Next(0)
		if err != nil {
			t.Fatalf("Next() #%d failed: %v", i, err)
		}
		if key != w {
			t.Errorf("Next() #%d key = %d, want %d", i, key, w)
		}
	}
}
