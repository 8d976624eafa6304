package core

import (
	"bytes"
	"fmt"
	"io"
)

// ObjectStream is a decoded /Type /ObjStm stream holding several
// non-stream objects back to back.
type ObjectStream struct {
	first   int
	extends Object
	entries []objStmEntry
	data    []byte

	resolver ReferenceResolver
}

type objStmEntry struct {
	number int
	offset int // relative to First
}

// NewObjectStream decodes stream and reads its header of N
// "objnum offset" pairs. The resolver, which may be nil, is handed to the
// parsers of the contained objects.
func NewObjectStream(stream *Stream, decoder Decoder, resolver ReferenceResolver) (*ObjectStream, error) {
	if stream == nil {
		return nil, NewStructuralError("object stream is nil")
	}
	if typ, ok := stream.Dict.GetName("Type"); !ok || typ != "ObjStm" {
		return nil, NewStructuralError(fmt.Sprintf("stream is not an object stream: /Type %s", objectString(stream.Dict.Get("Type"))))
	}

	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, NewStructuralError("object stream has a missing or invalid /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, NewStructuralError("object stream has a missing or invalid /First")
	}

	// Each header pair takes at least two digits and a separator.
	if n > (first+1)/2 {
		return nil, NewStructuralError(fmt.Sprintf("object stream /N %d does not fit in a %d-byte header", n, first))
	}

	data, err := decoder.Decode(stream)
	if err != nil {
		return nil, fmt.Errorf("decoding object stream: %w", err)
	}
	if first > len(data) {
		return nil, NewStructuralError(fmt.Sprintf("object stream /First %d beyond %d decoded bytes", first, len(data)))
	}

	os := &ObjectStream{
		first:    first,
		extends:  stream.Dict.Get("Extends"),
		data:     data,
		resolver: resolver,
	}
	if err := os.parseHeader(n); err != nil {
		return nil, err
	}
	return os, nil
}

func (os *ObjectStream) parseHeader(n int) error {
	p := NewParser(bytes.NewReader(os.data[:os.first]))
	readInt := func() (int, error) {
		obj, err := p.ParseObject()
		if err == io.EOF {
			return 0, &ParseError{Construct: "object stream header", Err: io.ErrUnexpectedEOF}
		}
		if err != nil {
			return 0, err
		}
		num, ok := obj.(Number)
		if !ok {
			return 0, &ParseError{Construct: "object stream header", Err: fmt.Errorf("found %s, want a number", obj)}
		}
		return num.Int(), nil
	}

	os.entries = make([]objStmEntry, 0, n)
	for i := 0; i < n; i++ {
		number, err := readInt()
		if err != nil {
			return err
		}
		offset, err := readInt()
		if err != nil {
			return err
		}
		if offset < 0 || os.first+offset > len(os.data) {
			return &ParseError{Construct: "object stream header", Err: fmt.Errorf("object %d offset %d out of range", number, offset)}
		}
		os.entries = append(os.entries, objStmEntry{number: number, offset: offset})
	}
	return nil
}

// Len returns the number of objects in the stream.
func (os *ObjectStream) Len() int {
	return len(os.entries)
}

// Extends returns the /Extends entry, or nil.
func (os *ObjectStream) Extends() Object {
	return os.extends
}

// ObjectNumbers returns the object numbers in header order.
func (os *ObjectStream) ObjectNumbers() []int {
	nums := make([]int, len(os.entries))
	for i, e := range os.entries {
		nums[i] = e.number
	}
	return nums
}

// ObjectAt parses the object at index, returning its object number too.
func (os *ObjectStream) ObjectAt(index int) (int, Object, error) {
	if index < 0 || index >= len(os.entries) {
		return 0, nil, NewStructuralError(fmt.Sprintf("object stream index %d out of range [0,%d)", index, len(os.entries)))
	}
	e := os.entries[index]

	p := NewParser(bytes.NewReader(os.data[os.first+e.offset:]))
	p.SetReferenceResolver(os.resolver)
	obj, err := p.ParseObject()
	if err == io.EOF {
		return e.number, nil, &ParseError{Construct: "compressed object", Offset: int64(os.first + e.offset), Err: io.ErrUnexpectedEOF}
	}
	if err != nil {
		return e.number, nil, fmt.Errorf("compressed object %d: %w", e.number, err)
	}
	return e.number, obj, nil
}
