package pages

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
)

// mockResolver is a mock ObjectResolver for testing
type mockResolver struct {
	objects map[int]core.Object
}

func newMockResolver() *mockResolver {
	return &mockResolver{
		objects: make(map[int]core.Object),
	}
}

func (m *mockResolver) AddObject(num int, obj core.Object) {
	m.objects[num] = obj
}

func (m *mockResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.Reference)
	if !ok {
		return obj, nil
	}
	o, ok := m.objects[ref.Number]
	if !ok {
		return nil, fmt.Errorf("object %d not found", ref.Number)
	}
	return o, nil
}

func (m *mockResolver) Decode(s *core.Stream) ([]byte, error) {
	return s.Decode()
}

func (m *mockResolver) CMaps() *font.CMapStore {
	return nil
}

func ref(n int) core.Reference {
	return core.Reference{Number: n}
}

func nums(v ...float64) core.Array {
	arr := make(core.Array, len(v))
	for i, f := range v {
		arr[i] = core.Number(f)
	}
	return arr
}

// buildTree registers:
//
//	1 Pages (MediaBox, Resources, Rotate 90)
//	├── 2 Pages (CropBox)
//	│   ├── 3 Page
//	│   └── 4 Page (own MediaBox, Rotate -90)
//	└── 5 Page
func buildTree(m *mockResolver) *core.Dict {
	root := core.DictOf(
		"Type", core.Name("Pages"),
		"Kids", core.Array{ref(2), ref(5)},
		"Count", core.Number(3),
		"MediaBox", nums(0, 0, 612, 792),
		"Resources", ref(10),
		"Rotate", core.Number(90),
	)
	m.AddObject(1, root)
	m.AddObject(2, core.DictOf(
		"Type", core.Name("Pages"),
		"Parent", ref(1),
		"Kids", core.Array{ref(3), ref(4)},
		"Count", core.Number(2),
		"CropBox", nums(10, 10, 600, 780),
	))
	m.AddObject(3, core.DictOf("Type", core.Name("Page"), "Parent", ref(2)))
	m.AddObject(4, core.DictOf(
		"Type", core.Name("Page"),
		"Parent", ref(2),
		"MediaBox", nums(595, 842, 0, 0),
		"Rotate", core.Number(-90),
	))
	m.AddObject(5, core.DictOf("Type", core.Name("Page"), "Parent", ref(1)))
	m.AddObject(10, core.DictOf("ProcSet", core.Array{core.Name("PDF")}))
	return root
}

func TestCatalog(t *testing.T) {
	m := newMockResolver()
	buildTree(m)
	catalog := NewCatalog(core.DictOf(
		"Type", core.Name("Catalog"),
		"Version", core.Name("1.7"),
		"Pages", ref(1),
	), m)

	assert.Equal(t, "Catalog", catalog.Type())
	assert.Equal(t, "1.7", catalog.Version())

	tree, err := catalog.Pages()
	require.NoError(t, err)
	count, err := tree.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCatalogPagesErrors(t *testing.T) {
	m := newMockResolver()
	m.AddObject(2, core.Array{})

	_, err := NewCatalog(core.NewDict(), m).Pages()
	assert.Error(t, err)

	_, err = NewCatalog(core.DictOf("Pages", ref(2)), m).Pages()
	assert.Error(t, err)

	_, err = NewCatalog(core.DictOf("Pages", ref(99)), m).Pages()
	assert.Error(t, err)
}

func TestPageTreeOrderAndInheritance(t *testing.T) {
	m := newMockResolver()
	tree := NewPageTree(buildTree(m), m)

	pages, err := tree.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Same(t, m.objects[3], pages[0].Dict())
	assert.Same(t, m.objects[4], pages[1].Dict())
	assert.Same(t, m.objects[5], pages[2].Dict())

	// Page 3 inherits MediaBox from the grandparent and CropBox from the
	// parent.
	media, err := pages[0].MediaBox()
	require.NoError(t, err)
	assert.Equal(t, Rectangle{0, 0, 612, 792}, media)
	assert.Equal(t, 612.0, media.Width())
	assert.Equal(t, 792.0, media.Height())

	crop, err := pages[0].CropBox()
	require.NoError(t, err)
	assert.Equal(t, Rectangle{10, 10, 600, 780}, crop)
	assert.Equal(t, 90, pages[0].Rotate())

	// Page 4 overrides MediaBox with swapped corners and a negative
	// rotation.
	media, err = pages[1].MediaBox()
	require.NoError(t, err)
	assert.Equal(t, Rectangle{0, 0, 595, 842}, media)
	assert.Equal(t, 270, pages[1].Rotate())

	// Page 5 has no CropBox anywhere on its chain.
	crop, err = pages[2].CropBox()
	require.NoError(t, err)
	assert.Equal(t, Rectangle{0, 0, 612, 792}, crop)

	res, err := pages[2].Resources()
	require.NoError(t, err)
	assert.Same(t, m.objects[10], res)
}

func TestPageTreePageIndex(t *testing.T) {
	m := newMockResolver()
	tree := NewPageTree(buildTree(m), m)

	p, err := tree.Page(2)
	require.NoError(t, err)
	assert.Same(t, m.objects[5], p.Dict())

	_, err = tree.Page(3)
	assert.Error(t, err)
	_, err = tree.Page(-1)
	assert.Error(t, err)
}

func TestPageTreeCountWithoutCountEntry(t *testing.T) {
	m := newMockResolver()
	m.AddObject(3, core.DictOf("Type", core.Name("Page")))
	root := core.DictOf("Kids", core.Array{ref(3), ref(3)})

	// The same leaf listed twice is a malformed tree.
	_, err := NewPageTree(root, m).Count()
	assert.Error(t, err)

	m.AddObject(4, core.DictOf("Type", core.Name("Page")))
	root = core.DictOf("Kids", core.Array{ref(3), ref(4), core.Number(7)})
	count, err := NewPageTree(root, m).Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestPageTreeCycle(t *testing.T) {
	m := newMockResolver()
	root := core.DictOf("Type", core.Name("Pages"), "Kids", core.Array{ref(1)})
	m.AddObject(1, root)

	_, err := NewPageTree(root, m).Pages()
	assert.Error(t, err)
}

func TestPageTreeUnexpectedType(t *testing.T) {
	m := newMockResolver()
	m.AddObject(3, core.DictOf("Type", core.Name("Annot")))
	root := core.DictOf("Type", core.Name("Pages"), "Kids", core.Array{ref(3)})

	_, err := NewPageTree(root, m).Pages()
	assert.Error(t, err)
}

func TestMissingMediaBox(t *testing.T) {
	m := newMockResolver()
	p := NewPage(core.DictOf("Type", core.Name("Page")), m)

	_, err := p.MediaBox()
	assert.Error(t, err)
	_, err = p.CropBox()
	assert.Error(t, err)
	assert.Equal(t, 0, p.Rotate())

	res, err := p.Resources()
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestInvalidMediaBox(t *testing.T) {
	m := newMockResolver()
	tests := []struct {
		name string
		box  core.Object
	}{
		{"short", nums(0, 0, 1)},
		{"not array", core.Name("Letter")},
		{"non numeric", core.Array{core.Number(0), core.Number(0), core.Name("x"), core.Number(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage(core.DictOf("MediaBox", tt.box), m)
			_, err := p.MediaBox()
			assert.Error(t, err)
		})
	}
}

func TestContents(t *testing.T) {
	m := newMockResolver()
	m.AddObject(7, &core.Stream{Dict: core.NewDict(), Data: []byte("BT")})
	m.AddObject(8, &core.Stream{Dict: core.DictOf("Filter", core.Name("DCTDecode")), Data: []byte{0xFF}})
	m.AddObject(9, &core.Stream{Dict: core.NewDict(), Data: []byte("ET")})

	single := NewPage(core.DictOf("Contents", ref(7)), m)
	streams, err := single.Contents()
	require.NoError(t, err)
	assert.Len(t, streams, 1)

	multi := NewPage(core.DictOf("Contents", core.Array{ref(7), ref(8), ref(9)}), m)
	streams, err = multi.Contents()
	require.NoError(t, err)
	assert.Len(t, streams, 3)

	data, err := multi.ContentData()
	require.NoError(t, err)
	assert.Equal(t, "BT\nET", string(data))

	empty := NewPage(core.NewDict(), m)
	data, err = empty.ContentData()
	require.NoError(t, err)
	assert.Empty(t, data)

	bad := NewPage(core.DictOf("Contents", core.Number(3)), m)
	_, err = bad.Contents()
	assert.Error(t, err)
}

func TestFonts(t *testing.T) {
	m := newMockResolver()
	m.AddObject(20, core.DictOf(
		"Type", core.Name("Font"),
		"Subtype", core.Name("Type1"),
		"BaseFont", core.Name("Helvetica"),
		"Encoding", core.Name("WinAnsiEncoding"),
	))
	m.AddObject(10, core.DictOf("Font", core.DictOf(
		"F1", ref(20),
		"F2", core.Number(1),
	)))
	m.AddObject(1, core.DictOf("Type", core.Name("Pages"), "Resources", ref(10)))

	p := NewPage(core.DictOf("Type", core.Name("Page"), "Parent", ref(1)), m)
	fonts, err := p.Fonts()
	require.NoError(t, err)
	require.Len(t, fonts, 1)
	assert.Equal(t, "Helvetica", fonts["F1"].BaseFont)
	assert.Equal(t, "F1", fonts["F1"].Name)

	none, err := NewPage(core.NewDict(), m).Fonts()
	require.NoError(t, err)
	assert.Nil(t, none)
}
