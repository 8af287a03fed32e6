package queue

import (
	"sort"
	"time"

	"axiapac.com/punchsync/core"
)

func parsed(tx core.Transaction) time.Time {
	t, _ := time.Parse(time.RFC3339, tx.Timestamp)
	return t
}

func before(a, b core.Transaction) bool {
	ta, tb := parsed(a), parsed(b)
	if !ta.Equal(tb) {
		return ta.Before(tb)
	}
	return a.ID < b.ID
}

func sortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return before(txs[j], txs[i]) })
}

func sortOldestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool { return before(txs[i], txs[j]) })
}

// evict trims a newest-first list to max records. Uploaded records go
// first, oldest first; pending records are only dropped when nothing
// uploaded is left to drop.
func evict(txs []core.Transaction, max int) ([]core.Transaction, []string) {
	excess := len(txs) - max
	if max <= 0 || excess <= 0 {
		return txs, nil
	}

	drop := make(map[int]bool, excess)
	for i := len(txs) - 1; i >= 0 && len(drop) < excess; i-- {
		if txs[i].UploadStatus == core.Uploaded {
			drop[i] = true
		}
	}
	for i := len(txs) - 1; i >= 0 && len(drop) < excess; i-- {
		drop[i] = true
	}

	kept := make([]core.Transaction, 0, max)
	evicted := make([]string, 0, excess)
	for i, tx := range txs {
		if drop[i] {
			evicted = append(evicted, tx.ID)
			continue
		}
		kept = append(kept, tx)
	}
	return kept, evicted
}
