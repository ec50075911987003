package oberon

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const typesSchemaVersion = 1

type typesPayload struct {
	Schema uint16      `msgpack:"schema"`
	Module string      `msgpack:"module"`
	Types  []NamedType `msgpack:"types"`
}

// EncodeTypes writes the named types of module to w.
func EncodeTypes(w io.Writer, module string, types []NamedType) error {
	enc := msgpack.NewEncoder(w)
	return enc.Encode(&typesPayload{
		Schema: typesSchemaVersion,
		Module: module,
		Types:  types,
	})
}

// DecodeTypes reads what EncodeTypes wrote. INTEGER, BOOLEAN and ERROR
// come back as the shared Integer, Boolean and ErrorType values.
func DecodeTypes(r io.Reader) (string, []NamedType, error) {
	var payload typesPayload
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return "", nil, err
	}
	if payload.Schema != typesSchemaVersion {
		return "", nil, fmt.Errorf("types schema %d is not supported", payload.Schema)
	}
	for i := range payload.Types {
		payload.Types[i].Type = canonical(payload.Types[i].Type)
	}
	return payload.Module, payload.Types, nil
}

func canonical(t *Type) *Type {
	if t == nil {
		return ErrorType
	}
	switch t.Tag {
	case IntegerTag:
		return Integer
	case BooleanTag:
		return Boolean
	case ErrorTag:
		return ErrorType
	case ArrayTag:
		t.Elem = canonical(t.Elem)
	case RecordTag:
		for i := range t.Fields {
			t.Fields[i].Type = canonical(t.Fields[i].Type)
		}
	}
	return t
}
