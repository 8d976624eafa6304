package reader

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/internal/pdftest"
)

func graph() []byte {
	return pdftest.New("1.4").
		Object(1, "<< /Type /Catalog >>").
		Object(2, "<< /Kind /Shared /Items [1 2 3] >>").
		Object(3, "4 0 R").
		Object(4, "(end of chain)").
		Object(5, "6 0 R").
		Object(6, "5 0 R").
		Stream(7, "", []byte("self"), "7 0 R").
		Stream(8, "", []byte("abc"), "9 0 R").
		Object(9, "3").
		ObjectGen(10, 2, "(second generation)").
		Free(11).
		XRefTable("/Root 1 0 R").
		Bytes()
}

func ref(n int) core.Reference {
	return core.Reference{Number: n}
}

func TestResolveDirectObjectsUnchanged(t *testing.T) {
	r := open(t, graph())
	for _, obj := range []core.Object{core.Number(3), core.Name("X"), core.Null{}, core.Array{ref(1)}} {
		got, err := r.Resolve(obj)
		require.NoError(t, err)
		assert.Equal(t, obj, got)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := open(t, graph())

	first, err := r.Resolve(ref(2))
	require.NoError(t, err)
	second, err := r.Resolve(ref(2))
	require.NoError(t, err)
	assert.Same(t, first, second)

	again, err := r.Resolve(first)
	require.NoError(t, err)
	assert.Same(t, first, again)
}

func TestResolveWithoutCache(t *testing.T) {
	r := open(t, graph(), WithObjectCache(false))

	first, err := r.Resolve(ref(2))
	require.NoError(t, err)
	second, err := r.Resolve(ref(2))
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, first, second)
}

func TestResolveChain(t *testing.T) {
	r := open(t, graph())
	obj, err := r.Resolve(ref(3))
	require.NoError(t, err)
	assert.Equal(t, core.String("end of chain"), obj)
}

func TestResolveMissingAndFree(t *testing.T) {
	r := open(t, graph())
	for _, n := range []int{11, 99} {
		obj, err := r.Resolve(ref(n))
		require.NoError(t, err, "object %d", n)
		assert.Nil(t, obj, "object %d", n)
	}

	obj, err := r.Object(99)
	require.NoError(t, err)
	assert.Nil(t, obj)
}

func TestResolveReferenceCycle(t *testing.T) {
	r := open(t, graph())
	_, err := r.Resolve(ref(5))
	assert.ErrorIs(t, err, core.ErrReferenceCycle)
	assert.ErrorIs(t, err, core.ErrStructural)
}

func TestResolveLengthNamingItself(t *testing.T) {
	r := open(t, graph())
	_, err := r.Resolve(ref(7))
	assert.ErrorIs(t, err, core.ErrReferenceCycle)

	// The failure is not cached as a success.
	_, err = r.Resolve(ref(7))
	assert.ErrorIs(t, err, core.ErrReferenceCycle)
}

func TestResolveIndirectLength(t *testing.T) {
	r := open(t, graph())
	obj, err := r.Resolve(ref(8))
	require.NoError(t, err)
	s, ok := obj.(*core.Stream)
	require.True(t, ok)
	assert.Equal(t, "abc", string(s.Data))
}

func TestObjectIgnoresGeneration(t *testing.T) {
	r := open(t, graph())
	obj, err := r.Object(10)
	require.NoError(t, err)
	assert.Equal(t, core.String("second generation"), obj)

	obj, err = r.Resolve(core.Reference{Number: 10, Generation: 0})
	require.NoError(t, err)
	assert.Equal(t, core.String("second generation"), obj)
}

func TestXRefOffsetHoldsOtherObject(t *testing.T) {
	b := pdftest.New("1.4").
		Object(1, "<< /Type /Catalog >>").
		Object(2, "(two)")
	xref := b.Len()
	b.Raw("xref\n0 4\n0000000000 65535 f\r\n")
	for _, n := range []int{1, 2, 2} {
		b.Raw(fmt.Sprintf("%010d 00000 n\r\n", b.Offset(n)))
	}
	b.Raw(fmt.Sprintf("trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref))

	r := open(t, b.Bytes())
	_, err := r.Resolve(ref(3))
	assert.ErrorIs(t, err, core.ErrStructural)
	assert.Contains(t, err.Error(), "holds object 2")
}

func TestXRefObjects(t *testing.T) {
	r := open(t, graph())
	objs, err := r.XRefObjects()
	require.NoError(t, err)

	var nums []int
	byNum := make(map[int]XRefObject)
	for _, o := range objs {
		nums = append(nums, o.Number)
		byNum[o.Number] = o
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, nums)
	assert.Equal(t, core.String("end of chain"), byNum[3].Object)
	assert.ErrorIs(t, byNum[5].Err, core.ErrReferenceCycle)
	assert.ErrorIs(t, byNum[7].Err, core.ErrReferenceCycle)
}

func TestConcurrentResolve(t *testing.T) {
	r := open(t, graph())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, n := range []int{2, 3, 8, 10} {
				obj, err := r.Resolve(ref(n))
				assert.NoError(t, err)
				assert.NotNil(t, obj)
			}
		}()
	}
	wg.Wait()
}

func TestObjectStreamOnlyDocument(t *testing.T) {
	b := pdftest.New("1.5").
		ObjectStream(10, []int{1}, []string{"<< /Type /Catalog >>"})
	data := b.XRefStream(11, "/Root 1 0 R").Bytes()

	r, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	obj, err := r.Object(1)
	require.NoError(t, err)
	assert.IsType(t, &core.Dict{}, obj)
}
