package crawl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVisitLogDeduplicatesBeyondSampleCap(t *testing.T) {
	t.Parallel()

	v := newVisitLog(3)
	for i := 0; i < 10; i++ {
		require.True(t, v.markIfNew(fmt.Sprintf("https://acme.com/p%d", i)))
	}
	// Dedup coverage is unbounded even though the sample is full.
	require.False(t, v.markIfNew("https://acme.com/p7"))
	require.Equal(t, []string{
		"https://acme.com/p0",
		"https://acme.com/p1",
		"https://acme.com/p2",
	}, v.sampleCopy())
}

func TestOrderedSetSorted(t *testing.T) {
	t.Parallel()

	s := newOrderedSet()
	s.add("zeta@acme.com")
	s.add("alpha@acme.com")
	s.add("zeta@acme.com")
	s.add("")
	require.Equal(t, 2, s.len())
	require.Equal(t, []string{"alpha@acme.com", "zeta@acme.com"}, s.sorted())
}
