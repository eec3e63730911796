package schema

import "strings"

type Table struct {
	Name         string
	Columns      []*Column
	ForeignKeys  []*ForeignKey
	Dependencies []string // referenced tables, used for ordering
}

type Column struct {
	Name       string
	DataType   string
	Length     int
	IsNullable bool
	IsPK       bool
	IsAutoInc  bool
	IsUnique   bool
	Comment    string
	Meaning    string // decoded from abbreviations or the comment, e.g. "phone", "email"
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Column returns the column with the given name, matched case-insensitively.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// IdentityColumn returns the auto-increment column, or nil.
func (t *Table) IdentityColumn() *Column {
	for _, c := range t.Columns {
		if c.IsAutoInc {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the first primary key column, or nil.
func (t *Table) PrimaryKey() *Column {
	for _, c := range t.Columns {
		if c.IsPK {
			return c
		}
	}
	return nil
}

// FieldSet describes the columns of the table. Foreign key columns are
// reference fields; their physical name already is the derived identifier.
func (t *Table) FieldSet() FieldSet {
	fs := FieldSet{Reference: make(map[string]bool)}
	for _, c := range t.Columns {
		fs.Fields = append(fs.Fields, c.Name)
	}
	for _, fk := range t.ForeignKeys {
		fs.Reference[fk.Column] = true
	}
	return fs
}

// Convention derives the identifier under which a reference field is addressed.
type Convention func(field string) string

// Identity addresses reference fields by their own name.
func Identity(field string) string { return field }

// SuffixID addresses reference field "owner" as "owner_id".
func SuffixID(field string) string { return field + "_id" }

// FieldSet is the set of field identifiers of one record type.
type FieldSet struct {
	Fields     []string
	Reference  map[string]bool
	Convention Convention // nil means Identity
}

// Identifiers returns the field names with the naming convention applied to
// reference fields, in field order.
func (fs FieldSet) Identifiers() []string {
	conv := fs.Convention
	if conv == nil {
		conv = Identity
	}
	out := make([]string, 0, len(fs.Fields))
	for _, f := range fs.Fields {
		if fs.Reference[f] {
			out = append(out, conv(f))
			continue
		}
		out = append(out, f)
	}
	return out
}

// Has reports whether id is one of the identifiers of the set.
func (fs FieldSet) Has(id string) bool {
	for _, f := range fs.Identifiers() {
		if f == id {
			return true
		}
	}
	return false
}
