package accords

// RowSet is a published, immutable filtered result. A new RowSet replaces
// the previous one wholesale; its pointer identity is what derived views
// memoize on.
type RowSet struct {
	// Generation is the request sequence number that produced the set.
	Generation uint64
	// Predicate is the rendered predicate, for display and logs.
	Predicate string
	Rows      []Agreement
	// Err is set when the set was published because the query failed.
	Err error
}

// Len returns the number of rows, treating a nil set as empty.
func (rs *RowSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// Find returns the row with the given ID.
func (rs *RowSet) Find(id string) (Agreement, bool) {
	if rs == nil {
		return Agreement{}, false
	}
	for _, a := range rs.Rows {
		if a.ID == id {
			return a, true
		}
	}
	return Agreement{}, false
}
