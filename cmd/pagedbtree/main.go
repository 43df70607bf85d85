// Command pagedbtree is a minimal CLI wrapper around storage/buffer
// and storage/index: build an index from a fixed-width heap file and
// scan it. It exists only so the storage core can be driven end to
// end; the core itself exposes a programmatic API, not a CLI contract.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ryogrid/paged-btree/storage/buffer"
	"github.com/ryogrid/paged-btree/storage/config"
	"github.com/ryogrid/paged-btree/storage/disk"
	"github.com/ryogrid/paged-btree/storage/heap"
	"github.com/ryogrid/paged-btree/storage/index"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to built-in demo settings)")
	heapPath := flag.String("heap", "", "path to a fixed-width heap file to bulk-load from")
	recordSize := flag.Int("record-size", 8, "fixed record width in bytes")
	lowVal := flag.Int("low", 0, "scan lower bound (inclusive)")
	highVal := flag.Int("high", 1<<30, "scan upper bound (inclusive)")
	flag.Parse()

	if err := run(*configPath, *heapPath, *recordSize, int32(*lowVal), int32(*highVal)); err != nil {
		slog.Error("pagedbtree: run failed", "err", err)
		os.Exit(1)
	}
}

func run(configPath, heapPath string, recordSize int, lowVal, highVal int32) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	pool := buffer.NewPoolManager(cfg.Buffer.FrameCount)
	defer pool.Close()

	indexFileName := index.IndexFileName(cfg.Index.RelationName, cfg.Index.AttrByteOffset)
	file, err := disk.OpenFile(indexFileName, cfg.Buffer.DirectIO)
	if err != nil {
		return err
	}

	var source index.BulkSource
	if heapPath != "" && !file.Exists() {
		f, err := os.Open(heapPath)
		if err != nil {
			return err
		}
		defer f.Close()
		source = heap.NewBulkSourceAdapter(heap.NewFile(f, recordSize))
	}

	idx, err := index.Open(pool, file, cfg.Index.RelationName, cfg.Index.AttrByteOffset, index.AttrType(cfg.Index.AttrType), source)
	if err != nil {
		return err
	}
	defer idx.Close()

	if err := idx.StartScan(lowVal, index.OpGTE, highVal, index.OpLTE); err != nil {
		return err
	}
	defer idx.EndScan()

	for {
		rid, err := idx.ScanNext()
		if err != nil {
			break
		}
		fmt.Printf("page=%d slot=%d\n", rid.PageNo, rid.SlotNo)
	}
	return nil
}
