package crawl

import "sort"

// visitLog deduplicates visited URLs while keeping a bounded ordered
// sample for reporting. Dedup coverage is unbounded; only the reported
// sample is capped.
type visitLog struct {
	max    int
	seen   map[string]struct{}
	sample []string
}

func newVisitLog(max int) *visitLog {
	return &visitLog{
		max:  max,
		seen: make(map[string]struct{}),
	}
}

// markIfNew records url and reports whether it had not been seen before.
func (v *visitLog) markIfNew(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := v.seen[url]; ok {
		return false
	}
	v.seen[url] = struct{}{}
	if len(v.sample) < v.max {
		v.sample = append(v.sample, url)
	}
	return true
}

func (v *visitLog) sampleCopy() []string {
	out := make([]string, len(v.sample))
	copy(out, v.sample)
	return out
}

// orderedSet deduplicates while preserving insertion order, with sorted
// output for stable results.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

func (s *orderedSet) len() int { return len(s.items) }

func (s *orderedSet) sorted() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	sort.Strings(out)
	return out
}
