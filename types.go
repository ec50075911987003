package oberon

import (
	"fmt"
	"strings"
)

type Tag uint8

const (
	ErrorTag Tag = iota
	IntegerTag
	BooleanTag
	ArrayTag
	RecordTag
	AliasTag
)

func (t Tag) String() string {
	switch t {
	case ErrorTag:
		return "ERROR"
	case IntegerTag:
		return "INTEGER"
	case BooleanTag:
		return "BOOLEAN"
	case ArrayTag:
		return "ARRAY"
	case RecordTag:
		return "RECORD"
	case AliasTag:
		return "ALIAS"
	}
	panic("unreachable")
}

// Type is the checker's view of a type. Only the payload matching Tag is
// set: Name for ALIAS, Len and Elem for ARRAY, Fields for RECORD.
type Type struct {
	Tag    Tag     `msgpack:"tag"`
	Name   string  `msgpack:"name,omitempty"`
	Len    int64   `msgpack:"len,omitempty"`
	Elem   *Type   `msgpack:"elem,omitempty"`
	Fields []Field `msgpack:"fields,omitempty"`
}

// Field order is the memory layout order.
type Field struct {
	Name string `msgpack:"name"`
	Type *Type  `msgpack:"type"`
}

var (
	Integer   = &Type{Tag: IntegerTag}
	Boolean   = &Type{Tag: BooleanTag}
	ErrorType = &Type{Tag: ErrorTag}
)

func NewArray(length int64, elem *Type) *Type {
	return &Type{Tag: ArrayTag, Len: length, Elem: elem}
}

func NewRecord(fields []Field) *Type {
	return &Type{Tag: RecordTag, Fields: fields}
}

func NewAlias(name string) *Type {
	return &Type{Tag: AliasTag, Name: name}
}

// Equal is name equivalence: aliases match by name, arrays by length and
// identical element type, records only by identity. ERROR matches nothing.
func Equal(a, b *Type) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Tag == ErrorTag || b.Tag == ErrorTag {
		return false
	}
	if a == b {
		return true
	}
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case IntegerTag, BooleanTag:
		return true
	case AliasTag:
		return a.Name == b.Name
	case ArrayTag:
		return a.Len == b.Len && a.Elem == b.Elem
	}
	return false
}

func (t *Type) IsComposite() bool {
	return t.Tag == ArrayTag || t.Tag == RecordTag
}

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i]
		}
	}
	return nil
}

// FieldIndex returns the layout position of the field called name, or -1.
func (t *Type) FieldIndex(name string) int {
	for i, f := range t.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (t *Type) String() string {
	switch t.Tag {
	case AliasTag:
		return t.Name
	case ArrayTag:
		return fmt.Sprintf("ARRAY %d OF %s", t.Len, t.Elem)
	case RecordTag:
		fields := make([]string, 0, len(t.Fields))
		for _, f := range t.Fields {
			fields = append(fields, fmt.Sprintf("%s: %s", f.Name, f.Type))
		}
		return "RECORD " + strings.Join(fields, "; ") + " END"
	}
	return t.Tag.String()
}
