package waf

// FieldKind discriminates the value held by a Field.
type FieldKind int

// Field value kinds.
const (
	FieldString FieldKind = iota
	FieldBytes
	FieldInt
	FieldUint
	FieldList
)

// Field is a named, typed value. Header lists and metadata lists are
// ordered slices of fields; the audit generators render them to JSON or to
// header-line text depending on the part.
type Field struct {
	Name string
	Kind FieldKind

	Str   string
	Bytes []byte
	Int   int64
	Uint  uint64
	List  []Field
}

// NewStringField creates a string-valued field.
func NewStringField(name, value string) Field {
	return Field{Name: name, Kind: FieldString, Str: value}
}

// NewBytesField creates a field holding raw bytes. The bytes are borrowed,
// not copied.
func NewBytesField(name string, value []byte) Field {
	return Field{Name: name, Kind: FieldBytes, Bytes: value}
}

// NewIntField creates a signed numeric field.
func NewIntField(name string, value int64) Field {
	return Field{Name: name, Kind: FieldInt, Int: value}
}

// NewUintField creates an unsigned numeric field.
func NewUintField(name string, value uint64) Field {
	return Field{Name: name, Kind: FieldUint, Uint: value}
}

// NewListField creates a field holding a list of sub-fields.
func NewListField(name string, value []Field) Field {
	return Field{Name: name, Kind: FieldList, List: value}
}
