package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Object represents a PDF object. The set of implementations is closed:
// Null, Number, Name, String, HexString, Array, *Dict, *Stream, Reference,
// *IndirectObject and Identifier. Callers dispatch with a type switch.
type Object interface {
	Type() ObjectType
	String() string
}

// ObjectType represents the type of PDF object
type ObjectType int

const (
	ObjNull ObjectType = iota
	ObjNumber
	ObjName
	ObjString
	ObjHexString
	ObjArray
	ObjDict
	ObjStream
	ObjReference
	ObjIndirectObject
	ObjIdentifier
)

// String returns the string representation of the object type
func (t ObjectType) String() string {
	switch t {
	case ObjNull:
		return "Null"
	case ObjNumber:
		return "Number"
	case ObjName:
		return "Name"
	case ObjString:
		return "String"
	case ObjHexString:
		return "HexString"
	case ObjArray:
		return "Array"
	case ObjDict:
		return "Dict"
	case ObjStream:
		return "Stream"
	case ObjReference:
		return "Reference"
	case ObjIndirectObject:
		return "IndirectObject"
	case ObjIdentifier:
		return "Identifier"
	default:
		return "Unknown"
	}
}

// Null is the explicit PDF null. A nil Object means "not present".
type Null struct{}

func (n Null) Type() ObjectType { return ObjNull }
func (n Null) String() string   { return "null" }

// Number is a PDF numeric value. Integers and reals share one representation.
type Number float64

func (n Number) Type() ObjectType { return ObjNumber }
func (n Number) String() string   { return strconv.FormatFloat(float64(n), 'f', -1, 64) }

// Int returns the value truncated toward zero.
func (n Number) Int() int { return int(n) }

// Int64 returns the value truncated toward zero.
func (n Number) Int64() int64 { return int64(n) }

// Float returns the value as a float64.
func (n Number) Float() float64 { return float64(n) }

// Name is a PDF name. The value excludes the leading slash.
type Name string

func (n Name) Type() ObjectType { return ObjName }
func (n Name) String() string   { return "/" + string(n) }

// String is a literal string "(...)". It holds raw bytes, not text.
type String string

func (s String) Type() ObjectType { return ObjString }
func (s String) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if c < 0x20 || c > 0x7e {
				fmt.Fprintf(&b, "\\%03o", c)
			} else {
				b.WriteByte(c)
			}
		}
	}
	b.WriteByte(')')
	return b.String()
}

// Bytes returns the raw bytes of the string.
func (s String) Bytes() []byte { return []byte(s) }

// HexString is a hexadecimal string "<...>", already decoded to raw bytes.
type HexString string

func (h HexString) Type() ObjectType { return ObjHexString }
func (h HexString) String() string   { return fmt.Sprintf("<%X>", string(h)) }

// Bytes returns the decoded bytes of the string.
func (h HexString) Bytes() []byte { return []byte(h) }

// Identifier is a bare keyword such as a content stream operator. It is
// passed through unresolved.
type Identifier string

func (id Identifier) Type() ObjectType { return ObjIdentifier }
func (id Identifier) String() string   { return string(id) }

// Array represents a PDF array
type Array []Object

func (a Array) Type() ObjectType { return ObjArray }
func (a Array) String() string {
	parts := make([]string, 0, len(a))
	for _, obj := range a {
		parts = append(parts, objectString(obj))
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Len returns the length of the array
func (a Array) Len() int {
	return len(a)
}

// Get retrieves an element at the given index
func (a Array) Get(index int) Object {
	if index < 0 || index >= len(a) {
		return nil
	}
	return a[index]
}

// GetNumber retrieves a number at the given index
func (a Array) GetNumber(index int) (Number, bool) {
	n, ok := a.Get(index).(Number)
	return n, ok
}

// GetInt retrieves a number at the given index, truncated to an int
func (a Array) GetInt(index int) (int, bool) {
	n, ok := a.GetNumber(index)
	return n.Int(), ok
}

// GetName retrieves a name at the given index
func (a Array) GetName(index int) (Name, bool) {
	n, ok := a.Get(index).(Name)
	return n, ok
}

// Dict represents a PDF dictionary. Keys are unique; insertion order is kept
// for display only.
type Dict struct {
	keys    []string
	entries map[string]Object
}

// NewDict creates an empty dictionary
func NewDict() *Dict {
	return &Dict{entries: make(map[string]Object)}
}

// DictOf builds a dictionary from alternating key/value arguments. It is a
// convenience for tests and callers constructing small dictionaries.
func DictOf(kv ...any) *Dict {
	d := NewDict()
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Sprintf("core.DictOf: key %d is %T, want string", i/2, kv[i]))
		}
		val, ok := kv[i+1].(Object)
		if !ok {
			panic(fmt.Sprintf("core.DictOf: value for %q is %T, want Object", key, kv[i+1]))
		}
		d.Set(key, val)
	}
	return d
}

func (d *Dict) Type() ObjectType { return ObjDict }
func (d *Dict) String() string {
	if d == nil {
		return "<<>>"
	}
	parts := make([]string, 0, len(d.keys))
	for _, key := range d.keys {
		parts = append(parts, fmt.Sprintf("/%s %s", key, objectString(d.entries[key])))
	}
	return "<<" + strings.Join(parts, " ") + ">>"
}

// Len returns the number of entries
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Get retrieves a value from the dictionary, or nil if the key is absent
func (d *Dict) Get(key string) Object {
	if d == nil {
		return nil
	}
	return d.entries[key]
}

// Has checks if a key exists in the dictionary
func (d *Dict) Has(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.entries[key]
	return ok
}

// Set sets a value in the dictionary. Replacing a key keeps its position.
func (d *Dict) Set(key string, value Object) {
	if d.entries == nil {
		d.entries = make(map[string]Object)
	}
	if _, ok := d.entries[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.entries[key] = value
}

// Delete removes a key from the dictionary
func (d *Dict) Delete(key string) {
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns all keys in insertion order
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.keys))
	copy(keys, d.keys)
	return keys
}

// GetName retrieves a name value
func (d *Dict) GetName(key string) (Name, bool) {
	n, ok := d.Get(key).(Name)
	return n, ok
}

// GetNumber retrieves a number value
func (d *Dict) GetNumber(key string) (Number, bool) {
	n, ok := d.Get(key).(Number)
	return n, ok
}

// GetInt retrieves a number value truncated to an int
func (d *Dict) GetInt(key string) (int, bool) {
	n, ok := d.GetNumber(key)
	return n.Int(), ok
}

// GetDict retrieves a dictionary value
func (d *Dict) GetDict(key string) (*Dict, bool) {
	v, ok := d.Get(key).(*Dict)
	return v, ok
}

// GetArray retrieves an array value
func (d *Dict) GetArray(key string) (Array, bool) {
	arr, ok := d.Get(key).(Array)
	return arr, ok
}

// GetStream retrieves a stream value
func (d *Dict) GetStream(key string) (*Stream, bool) {
	s, ok := d.Get(key).(*Stream)
	return s, ok
}

// GetReference retrieves an indirect reference
func (d *Dict) GetReference(key string) (Reference, bool) {
	ref, ok := d.Get(key).(Reference)
	return ref, ok
}

// GetBytes retrieves the bytes of a literal or hex string value
func (d *Dict) GetBytes(key string) ([]byte, bool) {
	return Bytes(d.Get(key))
}

// GetBool interprets the bare identifiers true and false
func (d *Dict) GetBool(key string) (bool, bool) {
	id, ok := d.Get(key).(Identifier)
	if !ok {
		return false, false
	}
	switch id {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

// Stream is a dictionary plus its raw, still-encoded payload. The decoded
// payload is derived on every call to Decode and never stored.
type Stream struct {
	Dict *Dict
	Data []byte
}

func (s *Stream) Type() ObjectType { return ObjStream }
func (s *Stream) String() string {
	return fmt.Sprintf("stream %s (%d bytes)", s.Dict.String(), len(s.Data))
}

// Reference names an indirect object. It carries no payload.
type Reference struct {
	Number     int
	Generation int
}

func (r Reference) Type() ObjectType { return ObjReference }
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// IndirectObject is the definition site "N G obj ... endobj". It only appears
// while a location is being resolved.
type IndirectObject struct {
	Number     int
	Generation int
	Object     Object
}

func (o *IndirectObject) Type() ObjectType { return ObjIndirectObject }
func (o *IndirectObject) String() string {
	return fmt.Sprintf("%d %d obj %s endobj", o.Number, o.Generation, objectString(o.Object))
}

// Bytes returns the raw bytes of a String or HexString.
func Bytes(obj Object) ([]byte, bool) {
	switch v := obj.(type) {
	case String:
		return v.Bytes(), true
	case HexString:
		return v.Bytes(), true
	}
	return nil, false
}

func objectString(obj Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}
