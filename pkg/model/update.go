package model

// Update is one flattened (field key, value) pair ready for persistence.
// Value is a scalar for plain fields and Rows for repeating groups.
type Update struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// Rows is the flattened value of a repeating group in posted order.
type Rows []Row

// Row maps sub-field keys to values for one posted row. Index is the row's
// position key as posted. Nested repeating groups appear as Rows values.
type Row struct {
	Index  string         `json:"index"`
	Fields map[string]any `json:"fields"`
}
