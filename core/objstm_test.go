package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objStm(t *testing.T, header, body string, n int) *Stream {
	t.Helper()
	data := header + body
	return &Stream{
		Dict: DictOf(
			"Type", Name("ObjStm"),
			"N", Number(n),
			"First", Number(len(header)),
			"Filter", Name("FlateDecode"),
		),
		Data: deflate(t, []byte(data)),
	}
}

func TestObjectStreamObjects(t *testing.T) {
	body := "<< /Type /Font >> [1 2 0 R] (text)"
	s := objStm(t, "10 0 11 18 12 28 ", body, 3)

	os, err := NewObjectStream(s, Decoder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, os.Len())
	assert.Equal(t, []int{10, 11, 12}, os.ObjectNumbers())

	num, obj, err := os.ObjectAt(0)
	require.NoError(t, err)
	assert.Equal(t, 10, num)
	assert.Equal(t, DictOf("Type", Name("Font")), obj)

	num, obj, err = os.ObjectAt(1)
	require.NoError(t, err)
	assert.Equal(t, 11, num)
	assert.Equal(t, Array{Number(1), Reference{Number: 2}}, obj)

	_, obj, err = os.ObjectAt(2)
	require.NoError(t, err)
	assert.Equal(t, String("text"), obj)

	_, _, err = os.ObjectAt(3)
	assert.ErrorIs(t, err, ErrStructural)
}

func TestObjectStreamValidation(t *testing.T) {
	good := objStm(t, "1 0 ", "42", 1)

	notObjStm := &Stream{Dict: DictOf("Type", Name("XRef"), "N", Number(1), "First", Number(4)), Data: good.Data}
	_, err := NewObjectStream(notObjStm, Decoder{}, nil)
	assert.ErrorIs(t, err, ErrStructural)

	short := objStm(t, "1 0 ", "42", 2)
	_, err = NewObjectStream(short, Decoder{}, nil)
	assert.ErrorIs(t, err, ErrStructural)

	badOffset := objStm(t, "1 99 ", "42", 1)
	_, err = NewObjectStream(badOffset, Decoder{}, nil)
	assert.ErrorIs(t, err, ErrStructural)

	huge := objStm(t, "1 0 ", "42", 1)
	huge.Dict.Set("N", Number(1e15))
	_, err = NewObjectStream(huge, Decoder{}, nil)
	assert.ErrorIs(t, err, ErrStructural)
	assert.ErrorContains(t, err, "does not fit")
}

func TestObjectStreamExtends(t *testing.T) {
	s := objStm(t, "1 0 ", "42", 1)
	s.Dict.Set("Extends", Reference{Number: 8})

	os, err := NewObjectStream(s, Decoder{}, nil)
	require.NoError(t, err)
	assert.Equal(t, Reference{Number: 8}, os.Extends())
}
