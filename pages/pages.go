package pages

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
	"github.com/tsawler/pdfstruct/logging"
)

// maxInheritDepth bounds the /Parent walk for inheritable attributes.
const maxInheritDepth = 64

// ObjectResolver gives pages access to the document they belong to.
type ObjectResolver interface {
	Resolve(obj core.Object) (core.Object, error)
	Decode(s *core.Stream) ([]byte, error)
	CMaps() *font.CMapStore
}

// Catalog represents the PDF document catalog (root of document structure)
type Catalog struct {
	dict     *core.Dict
	resolver ObjectResolver
}

// NewCatalog creates a new catalog from a dictionary
func NewCatalog(dict *core.Dict, resolver ObjectResolver) *Catalog {
	return &Catalog{
		dict:     dict,
		resolver: resolver,
	}
}

// Type returns the catalog type (should be "Catalog")
func (c *Catalog) Type() string {
	name, _ := c.dict.GetName("Type")
	return string(name)
}

// Version returns the /Version entry, which overrides the header version
// when it is later. Empty if absent.
func (c *Catalog) Version() string {
	name, _ := c.dict.GetName("Version")
	return string(name)
}

// Pages returns the page tree root
func (c *Catalog) Pages() (*PageTree, error) {
	if !c.dict.Has("Pages") {
		return nil, fmt.Errorf("catalog missing /Pages entry")
	}
	obj, err := c.resolver.Resolve(c.dict.Get("Pages"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Pages: %w", err)
	}
	root, ok := obj.(*core.Dict)
	if !ok {
		return nil, fmt.Errorf("invalid /Pages type: %s", typeOf(obj))
	}
	return NewPageTree(root, c.resolver), nil
}

// PageTree represents the PDF page tree
type PageTree struct {
	root     *core.Dict
	resolver ObjectResolver

	mu    sync.Mutex
	pages []*Page // Cached flattened page list
}

// NewPageTree creates a new page tree from the root pages dictionary
func NewPageTree(root *core.Dict, resolver ObjectResolver) *PageTree {
	return &PageTree{
		root:     root,
		resolver: resolver,
	}
}

// Count returns the /Count of the root node, or the number of leaves when
// it is absent.
func (t *PageTree) Count() (int, error) {
	obj, err := t.resolver.Resolve(t.root.Get("Count"))
	if err != nil {
		return 0, fmt.Errorf("failed to resolve /Count: %w", err)
	}
	if n, ok := obj.(core.Number); ok {
		return n.Int(), nil
	}
	pages, err := t.Pages()
	if err != nil {
		return 0, err
	}
	return len(pages), nil
}

// Page returns the page at the given index (0-based)
func (t *PageTree) Page(index int) (*Page, error) {
	pages, err := t.Pages()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(pages) {
		return nil, fmt.Errorf("page index %d out of range [0, %d)", index, len(pages))
	}
	return pages[index], nil
}

// Pages returns all pages in document order.
func (t *PageTree) Pages() ([]*Page, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pages != nil {
		return t.pages, nil
	}
	var pages []*Page
	if err := t.walk(t.root, make(map[*core.Dict]bool), &pages); err != nil {
		return nil, fmt.Errorf("failed to traverse page tree: %w", err)
	}
	t.pages = pages
	return pages, nil
}

// walk appends the leaves under node. A node without /Type is classified
// by the presence of /Kids.
func (t *PageTree) walk(node *core.Dict, seen map[*core.Dict]bool, out *[]*Page) error {
	if seen[node] {
		return fmt.Errorf("page tree node visited twice")
	}
	seen[node] = true

	typ, _ := node.GetName("Type")
	if typ == "" && node.Has("Kids") {
		typ = "Pages"
	}

	switch typ {
	case "Pages":
		obj, err := t.resolver.Resolve(node.Get("Kids"))
		if err != nil {
			return fmt.Errorf("failed to resolve /Kids: %w", err)
		}
		kids, ok := obj.(core.Array)
		if !ok {
			return fmt.Errorf("invalid /Kids type: %s", typeOf(obj))
		}
		for i, kid := range kids {
			resolved, err := t.resolver.Resolve(kid)
			if err != nil {
				return fmt.Errorf("failed to resolve kid %d: %w", i, err)
			}
			dict, ok := resolved.(*core.Dict)
			if !ok {
				logging.Logger().Debug("skipping page tree kid", "index", i, "type", typeOf(resolved))
				continue
			}
			if err := t.walk(dict, seen, out); err != nil {
				return err
			}
		}
	case "Page", "":
		*out = append(*out, NewPage(node, t.resolver))
	default:
		return fmt.Errorf("unexpected page node type: %s", typ)
	}
	return nil
}

// Rectangle is a box in default user space.
type Rectangle struct {
	Left, Bottom, Right, Top float64
}

// Width returns the horizontal extent
func (r Rectangle) Width() float64 {
	return r.Right - r.Left
}

// Height returns the vertical extent
func (r Rectangle) Height() float64 {
	return r.Top - r.Bottom
}

// Page represents a single PDF page
type Page struct {
	dict     *core.Dict
	resolver ObjectResolver
}

// NewPage creates a new page from a dictionary
func NewPage(dict *core.Dict, resolver ObjectResolver) *Page {
	return &Page{
		dict:     dict,
		resolver: resolver,
	}
}

// Dict returns the page dictionary
func (p *Page) Dict() *core.Dict {
	return p.dict
}

// inherited looks key up on the page and then on each /Parent in turn.
func (p *Page) inherited(key string) (core.Object, error) {
	node := p.dict
	for depth := 0; node != nil && depth < maxInheritDepth; depth++ {
		if node.Has(key) {
			obj, err := p.resolver.Resolve(node.Get(key))
			if err != nil {
				return nil, fmt.Errorf("failed to resolve /%s: %w", key, err)
			}
			return obj, nil
		}
		parent, err := p.resolver.Resolve(node.Get("Parent"))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve /Parent: %w", err)
		}
		node, _ = parent.(*core.Dict)
	}
	return nil, nil
}

// MediaBox returns the page media box. It is inheritable and required.
func (p *Page) MediaBox() (Rectangle, error) {
	r, ok, err := p.box("MediaBox")
	if err != nil {
		return Rectangle{}, err
	}
	if !ok {
		return Rectangle{}, fmt.Errorf("page has no MediaBox")
	}
	return r, nil
}

// CropBox returns the crop box, defaulting to the media box.
func (p *Page) CropBox() (Rectangle, error) {
	r, ok, err := p.box("CropBox")
	if err != nil {
		return Rectangle{}, err
	}
	if !ok {
		return p.MediaBox()
	}
	return r, nil
}

func (p *Page) box(key string) (Rectangle, bool, error) {
	obj, err := p.inherited(key)
	if err != nil || obj == nil {
		return Rectangle{}, false, err
	}
	arr, ok := obj.(core.Array)
	if !ok || len(arr) != 4 {
		return Rectangle{}, false, fmt.Errorf("invalid /%s: %s", key, obj)
	}

	var v [4]float64
	for i := range v {
		n, err := p.resolver.Resolve(arr[i])
		if err != nil {
			return Rectangle{}, false, fmt.Errorf("failed to resolve /%s element: %w", key, err)
		}
		num, ok := n.(core.Number)
		if !ok {
			return Rectangle{}, false, fmt.Errorf("invalid /%s element type: %s", key, typeOf(n))
		}
		v[i] = num.Float()
	}

	// Normalize so that Left <= Right and Bottom <= Top.
	r := Rectangle{Left: v[0], Bottom: v[1], Right: v[2], Top: v[3]}
	if r.Left > r.Right {
		r.Left, r.Right = r.Right, r.Left
	}
	if r.Bottom > r.Top {
		r.Bottom, r.Top = r.Top, r.Bottom
	}
	return r, true, nil
}

// Rotate returns the page rotation normalized to 0, 90, 180 or 270
func (p *Page) Rotate() int {
	obj, err := p.inherited("Rotate")
	if err != nil {
		return 0
	}
	n, ok := obj.(core.Number)
	if !ok {
		return 0
	}
	r := n.Int() % 360
	if r < 0 {
		r += 360
	}
	return r - r%90
}

// Resources returns the inherited resource dictionary, or nil.
func (p *Page) Resources() (*core.Dict, error) {
	obj, err := p.inherited("Resources")
	if err != nil {
		return nil, err
	}
	d, _ := obj.(*core.Dict)
	return d, nil
}

// Contents returns the page content streams in order.
func (p *Page) Contents() ([]*core.Stream, error) {
	obj, err := p.resolver.Resolve(p.dict.Get("Contents"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Contents: %w", err)
	}

	var items core.Array
	switch v := obj.(type) {
	case nil:
		return nil, nil
	case *core.Stream:
		return []*core.Stream{v}, nil
	case core.Array:
		items = v
	default:
		return nil, fmt.Errorf("invalid /Contents type: %s", typeOf(obj))
	}

	streams := make([]*core.Stream, 0, len(items))
	for i, item := range items {
		resolved, err := p.resolver.Resolve(item)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve contents[%d]: %w", i, err)
		}
		if s, ok := resolved.(*core.Stream); ok {
			streams = append(streams, s)
		}
	}
	return streams, nil
}

// ContentData returns the decoded content streams joined by newlines.
// Streams that cannot be decoded are logged and skipped.
func (p *Page) ContentData() ([]byte, error) {
	streams, err := p.Contents()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, s := range streams {
		data, err := p.resolver.Decode(s)
		if err != nil {
			logging.Logger().Debug("skipping content stream", "index", i, "error", err)
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}

// Fonts builds the fonts of the resource /Font dictionary, keyed by
// resource name. Entries that are not dictionaries are skipped.
func (p *Page) Fonts() (map[string]*font.Font, error) {
	res, err := p.Resources()
	if err != nil || res == nil {
		return nil, err
	}
	obj, err := p.resolver.Resolve(res.Get("Font"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve /Font: %w", err)
	}
	dict, ok := obj.(*core.Dict)
	if !ok {
		return nil, nil
	}

	fonts := make(map[string]*font.Font, dict.Len())
	for _, name := range dict.Keys() {
		fobj, err := p.resolver.Resolve(dict.Get(name))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve font %s: %w", name, err)
		}
		fd, ok := fobj.(*core.Dict)
		if !ok {
			continue
		}
		f, err := font.New(name, fd, p.resolver, p.resolver.CMaps())
		if err != nil {
			return nil, err
		}
		fonts[name] = f
	}
	return fonts, nil
}

func typeOf(obj core.Object) string {
	if obj == nil {
		return "absent"
	}
	return obj.Type().String()
}
