package entity

// IDList is an ordered list of event ids within a transaction. The
// transfer correlation logic edits it positionally, so the mutating
// operations are named rather than done with raw slice indexing.
type IDList []string

func (l IDList) Len() int {
	return len(l)
}

// Last returns the final id and whether the list is non-empty.
func (l IDList) Last() (string, bool) {
	if len(l) == 0 {
		return "", false
	}
	return l[len(l)-1], true
}

func (l IDList) Append(id string) IDList {
	return append(l, id)
}

// ReplaceLast swaps the final id in place. No-op on an empty list.
func (l IDList) ReplaceLast(id string) IDList {
	if len(l) == 0 {
		return l
	}
	l[len(l)-1] = id
	return l
}

// RemoveLast drops the final id. No-op on an empty list.
func (l IDList) RemoveLast() IDList {
	if len(l) == 0 {
		return l
	}
	return l[:len(l)-1]
}

// Transaction groups the mints, burns and swaps that happened within
// one chain transaction, in log order.
type Transaction struct {
	ID          string
	BlockNumber uint64
	Timestamp   uint64
	Mints       IDList
	Burns       IDList
	Swaps       IDList
}

func NewTransaction(hash string, blockNumber, timestamp uint64) *Transaction {
	return &Transaction{
		ID:          hash,
		BlockNumber: blockNumber,
		Timestamp:   timestamp,
		Mints:       IDList{},
		Burns:       IDList{},
		Swaps:       IDList{},
	}
}
