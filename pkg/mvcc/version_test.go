package mvcc

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supervm/txcore/pkg/types"
)

func chainOf(writeTimestamps ...uint64) *versionChain {
	c := &versionChain{}
	for i := 0; i < len(writeTimestamps); i++ {
		c.append(versionEntry{writeTS: types.Timestamp(writeTimestamps[i]), value: []byte{byte(writeTimestamps[i])}})
	}
	return c
}

func TestVisibleAtReturnsGreatestWriteTSAtOrBeforeReadTS(t *testing.T) {
	c := chainOf(10, 20, 30)

	v, writeTS, found := c.visibleAt(25)
	assert.True(t, found)
	assert.Equal(t, types.Timestamp(20), writeTS)
	assert.Equal(t, []byte{20}, v)

	_, _, found = c.visibleAt(5)
	assert.False(t, found)
}

func TestVisibleAtTombstoneHidesValue(t *testing.T) {
	c := &versionChain{}
	c.append(versionEntry{writeTS: 10, value: []byte{1}})
	c.append(versionEntry{writeTS: 20, tombstone: true})

	_, writeTS, found := c.visibleAt(30)
	assert.False(t, found)
	assert.Equal(t, types.Timestamp(20), writeTS)
}

func TestTrimKeepsRecentNWhenSafe(t *testing.T) {
	c := chainOf(10, 20, 30, 40, 50)
	removed := c.trim(2, 45) // nth (index 1) = writeTS 40 <= 45, safe
	assert.Equal(t, 3, removed)
	assert.Len(t, c.entries, 2)
	assert.Equal(t, types.Timestamp(50), c.entries[0].writeTS)
	assert.Equal(t, types.Timestamp(40), c.entries[1].writeTS)
}

func TestTrimFallsBackToAnchorWhenNthNewerThanLowWaterMark(t *testing.T) {
	c := chainOf(10, 20, 30, 40, 50)
	// low-water mark 35 is older than the 2nd entry's write_ts (40), so an
	// active reader at 35 still needs version 30; the keep-recent-N cap
	// cannot be honored. Fall back to the anchor (30, the newest entry
	// with write_ts <= 35) and keep everything from there.
	removed := c.trim(2, 35)
	assert.Equal(t, 2, removed)
	assert.Len(t, c.entries, 3)
	assert.Equal(t, types.Timestamp(30), c.entries[len(c.entries)-1].writeTS)
}

func TestTrimNoOpWhenUnderCap(t *testing.T) {
	c := chainOf(10, 20)
	removed := c.trim(5, 100)
	assert.Equal(t, 0, removed)
	assert.Len(t, c.entries, 2)
}

func TestTrimTTLRespectsAnchor(t *testing.T) {
	c := chainOf(10, 20, 30, 40)
	// cutoff 35 would normally drop everything below it, but the anchor for
	// low-water mark 15 is entry 10 (newest <= 15); nothing strictly below
	// the anchor exists here so no change.
	removed := c.trimTTL(35, 15)
	assert.Equal(t, 0, removed)
	assert.Len(t, c.entries, 4)
}
