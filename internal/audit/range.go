package audit

import "fmt"

// IDRange represents an inclusive range of vote ids.
type IDRange struct {
	From uint64
	To   uint64
}

// SplitRange splits an id range into batches of size batchSize.
func SplitRange(from, to, batchSize uint64) ([]IDRange, error) {
	if batchSize == 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if to < from {
		return nil, fmt.Errorf("to id must be >= from id")
	}

	ranges := make([]IDRange, 0, (to-from)/batchSize+1)
	start := from
	for {
		end := to
		if to-start >= batchSize {
			end = start + batchSize - 1
		}
		ranges = append(ranges, IDRange{From: start, To: end})
		if end == to {
			break
		}
		start = end + 1
	}

	return ranges, nil
}
