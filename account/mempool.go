package account

import "github.com/xlnfi/xln-core/xlnerrors"

// MempoolLimit is MEMPOOL_LIMIT of spec.md §3/§5: the bounded mempool size.
const MempoolLimit = 1000

// mempool is an ordered, bounded queue of not-yet-proposed Txs. It is owned
// exclusively by its Machine; the only mutating paths are AddTx, drain (on
// proposal) and prepend (on rollback restore), per spec.md §5 "Shared
// resources".
type mempool struct {
	txs []Tx
}

func (m *mempool) add(tx Tx) error {
	if len(m.txs) >= MempoolLimit {
		return xlnerrors.New(xlnerrors.KindValidation, "mempool full", "limit", MempoolLimit)
	}
	m.txs = append(m.txs, tx)
	return nil
}

func (m *mempool) len() int { return len(m.txs) }

// drain removes and returns all queued txs, in order, for inclusion in a
// proposed frame.
func (m *mempool) drain() []Tx {
	out := m.txs
	m.txs = nil
	return out
}

// prepend restores txs to the head of the mempool — used on a right-side
// rollback, so the discarded proposal's transactions are retried ahead of
// anything queued since (spec.md §4.4 "Simultaneous-proposal tiebreak").
func (m *mempool) prepend(txs []Tx) {
	m.txs = append(append([]Tx{}, txs...), m.txs...)
}
