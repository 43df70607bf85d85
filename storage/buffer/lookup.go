package buffer

import "github.com/devlights/gomy/structure"

// lookupTable maps (file, page) to a resident frame. The map is the
// authoritative O(1)-average index; the companion gomy Set tracks the
// same key space and is consulted by insert to catch a key being
// marked resident twice without an intervening remove — a map
// assignment would silently paper over that corruption by just
// overwriting the old FrameID, losing track of the frame it had
// pointed at.
type lookupTable struct {
	entries map[frameKey]FrameID
	keys    *structure.Set[frameKey]
}

func newLookupTable(frameCount int) *lookupTable {
	return &lookupTable{
		entries: make(map[frameKey]FrameID, int(float64(frameCount)*1.2)),
		keys:    structure.NewSet[frameKey](),
	}
}

func (lt *lookupTable) get(k frameKey) (FrameID, bool) {
	id, ok := lt.entries[k]
	return id, ok
}

// insert records k as resident in frame id. Panics if k is already
// resident: allocFrame must always evict (and remove) a prior
// occupant before a frame is reused, so a double-insert means the
// pool's own bookkeeping has drifted out of sync with itself.
func (lt *lookupTable) insert(k frameKey, id FrameID) {
	if lt.keys.Contains(k) {
		panic("buffer: lookupTable: key already resident, insert without remove")
	}
	lt.entries[k] = id
	lt.keys.Add(k)
}

func (lt *lookupTable) remove(k frameKey) {
	delete(lt.entries, k)
	lt.keys.Remove(k)
}

// residentCount reports how many distinct (file, page) pairs are
// currently mapped to a frame.
func (lt *lookupTable) residentCount() int {
	return lt.keys.Len()
}
