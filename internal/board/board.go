// Package board groups records into kanban columns keyed by a fixed enumeration.
package board

type Column[K comparable, R any] struct {
	Key   K
	Items []R
}

type Board[K comparable, R any] struct {
	Columns []Column[K, R]
	// Unmatched holds records whose key is outside the enumeration.
	Unmatched []R
}

// Partition places each record in exactly one column by exact key match. Columns
// follow keys order and empty ones are kept. Records keep their collection order
// inside a column.
func Partition[K comparable, R any](items []R, keys []K, keyOf func(R) K) Board[K, R] {
	b := Board[K, R]{Columns: make([]Column[K, R], len(keys))}
	index := make(map[K]int, len(keys))
	for i, k := range keys {
		b.Columns[i] = Column[K, R]{Key: k}
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	for _, it := range items {
		if i, ok := index[keyOf(it)]; ok {
			b.Columns[i].Items = append(b.Columns[i].Items, it)
			continue
		}
		b.Unmatched = append(b.Unmatched, it)
	}
	return b
}

// Len is the number of records on the board, unmatched included.
func (b Board[K, R]) Len() int {
	n := len(b.Unmatched)
	for _, c := range b.Columns {
		n += len(c.Items)
	}
	return n
}

// Counts returns the column sizes in column order.
func (b Board[K, R]) Counts() []int {
	out := make([]int, len(b.Columns))
	for i, c := range b.Columns {
		out[i] = len(c.Items)
	}
	return out
}
