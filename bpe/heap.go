package bpe

// mergeCand is a candidate merge of the part at slot pos with its right
// neighbor, captured at push time. verL and verR snapshot the version
// counters of the two slots; a mismatch at pop time means one side has since
// been merged away and the candidate is stale.
type mergeCand struct {
	rank int
	pos  int
	verL int
	verR int
}

// mergeHeap is a min-heap of merge candidates ordered by rank, then by part
// position so that equal-rank candidates merge leftmost-first.
type mergeHeap []mergeCand

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].rank != h[j].rank {
		return h[i].rank < h[j].rank
	}
	return h[i].pos < h[j].pos
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) {
	*h = append(*h, x.(mergeCand))
}

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
