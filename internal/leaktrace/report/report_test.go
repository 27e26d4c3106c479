package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kolkov/leaktracer/internal/leaktrace/frames"
	"github.com/kolkov/leaktracer/internal/leaktrace/record"
)

//go:noinline
func siteA() frames.Buffer { return frames.Capture(0, 6) }

//go:noinline
func siteB() frames.Buffer { return frames.Capture(0, 6) }

// twoSiteLeaks builds a snapshot with three allocations from siteA and one
// from siteB.
func twoSiteLeaks() map[uintptr]record.Allocation {
	leaks := make(map[uintptr]record.Allocation)
	for i := uintptr(0); i < 3; i++ {
		addr := 0x1000 + i*0x100
		leaks[addr] = record.Allocation{Addr: addr, Size: 100, Frames: siteA()}
	}
	leaks[0x9000] = record.Allocation{Addr: 0x9000, Size: 50, Frames: siteB()}
	return leaks
}

func TestAggregateGroupsBySite(t *testing.T) {
	groups := Aggregate(twoSiteLeaks())
	require.Len(t, groups, 2)

	// Largest leak first.
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, uint64(300), groups[0].Bytes)
	assert.Equal(t, 1, groups[1].Count)
	assert.Equal(t, uint64(50), groups[1].Bytes)
}

func TestAggregateEmpty(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
}

func TestSummaryTable(t *testing.T) {
	s := Summary(twoSiteLeaks())

	assert.Contains(t, s, "BYTES")
	assert.Contains(t, s, "COUNT")
	assert.Contains(t, s, "siteA")
	assert.Contains(t, s, "siteB")
	assert.Contains(t, s, "300")

	// siteA's row (300 bytes) sorts above siteB's (50 bytes).
	assert.Less(t, strings.Index(s, "siteA"), strings.Index(s, "siteB"))
}

func TestSummaryEmpty(t *testing.T) {
	assert.Equal(t, "no leak candidates\n", Summary(nil))
}

func TestWriteFullDump(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, twoSiteLeaks()))

	out := sb.String()
	assert.Contains(t, out, "#1: 300 bytes in 3 allocation(s)")
	assert.Contains(t, out, "#2: 50 bytes in 1 allocation(s)")
	assert.Contains(t, out, "siteA")
	assert.Contains(t, out, ".go:")
}

func TestWriteEmpty(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Write(&sb, nil))
	assert.Equal(t, "no leak candidates\n", sb.String())
}

func TestSiteUnresolvableFrames(t *testing.T) {
	rec := record.Allocation{Addr: 0x1, Size: 1}
	assert.Equal(t, "<no stack>", site(rec))
}
