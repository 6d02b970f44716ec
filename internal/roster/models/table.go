package models

// RawTable is a table read off a roster image. Blank cells are empty strings.
type RawTable struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}
