package reader

import (
	"fmt"
	"io"
	"sort"

	"github.com/tsawler/pdfstruct/core"
)

// maxHops bounds a chain of references that each name another reference.
const maxHops = 32

// resolution carries the objects currently being loaded through one
// top-level Resolve call, including nested /Length lookups, so that a cycle
// fails instead of recursing forever.
type resolution struct {
	r      *Reader
	xref   *core.XRefTable
	active map[int]bool
}

func (r *Reader) newResolution() *resolution {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &resolution{r: r, xref: r.xref, active: make(map[int]bool)}
}

// Resolve returns obj unchanged unless it is a Reference, in which case the
// object it ultimately names is returned. A reference to a missing or free
// object yields (nil, nil).
func (r *Reader) Resolve(obj core.Object) (core.Object, error) {
	if _, ok := obj.(core.Reference); !ok {
		return obj, nil
	}
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.newResolution().resolve(obj)
}

// ResolveReference resolves ref. It satisfies core.ReferenceResolver.
func (r *Reader) ResolveReference(ref core.Reference) (core.Object, error) {
	return r.Resolve(ref)
}

// Object resolves object number num regardless of generation.
func (r *Reader) Object(num int) (core.Object, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	e, ok := r.xref.Get(num)
	if !ok {
		return nil, nil
	}
	gen := e.Generation
	if e.Type == core.XRefCompressed {
		gen = 0
	}
	return r.Resolve(core.Reference{Number: num, Generation: gen})
}

func (c *resolution) ResolveReference(ref core.Reference) (core.Object, error) {
	return c.resolve(ref)
}

func (c *resolution) resolve(obj core.Object) (core.Object, error) {
	var chain []int
	for hops := 0; ; hops++ {
		ref, ok := obj.(core.Reference)
		if !ok {
			return obj, nil
		}
		if hops == maxHops {
			return nil, fmt.Errorf("%w: more than %d chained references from %d", core.ErrReferenceCycle, maxHops, chain[0])
		}
		for _, n := range chain {
			if n == ref.Number {
				return nil, fmt.Errorf("%w: object %d refers back to itself", core.ErrReferenceCycle, ref.Number)
			}
		}
		chain = append(chain, ref.Number)

		next, err := c.load(ref)
		if err != nil {
			return nil, err
		}
		obj = next
	}
}

// load returns the direct value stored for ref, which may itself be a
// Reference.
func (c *resolution) load(ref core.Reference) (core.Object, error) {
	r := c.r
	r.mu.Lock()
	cached, ok := r.cache[ref.Number]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	if c.active[ref.Number] {
		return nil, fmt.Errorf("%w: object %d is needed to parse itself", core.ErrReferenceCycle, ref.Number)
	}
	c.active[ref.Number] = true
	defer delete(c.active, ref.Number)

	e, ok := c.xref.Get(ref.Number)
	if !ok {
		r.log.Debug("dangling reference", "ref", ref.String())
		return nil, nil
	}

	var obj core.Object
	var err error
	switch e.Type {
	case core.XRefFree:
		r.log.Debug("reference to free object", "ref", ref.String())
		return nil, nil
	case core.XRefInUse:
		obj, err = c.parseAt(ref, e.Offset)
	case core.XRefCompressed:
		obj, err = c.fromObjectStream(ref, e)
	}
	if err != nil {
		return nil, err
	}

	if r.cfg.cache {
		r.mu.Lock()
		if r.cache != nil {
			r.cache[ref.Number] = obj
		}
		r.mu.Unlock()
	}
	return obj, nil
}

// parseAt parses "N G obj ... endobj" at offset with a cursor of its own.
func (c *resolution) parseAt(ref core.Reference, offset int64) (core.Object, error) {
	p := core.NewParser(io.NewSectionReader(c.r.src, 0, c.r.size))
	p.SetReferenceResolver(c)
	if err := p.Seek(offset); err != nil {
		return nil, err
	}

	ind, err := p.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}
	if ind.Number != ref.Number {
		return nil, core.NewStructuralError(fmt.Sprintf("xref offset %d for object %d holds object %d", offset, ref.Number, ind.Number))
	}
	return ind.Object, nil
}

func (c *resolution) fromObjectStream(ref core.Reference, e core.XRefEntry) (core.Object, error) {
	os, err := c.objectStream(e.StreamNumber)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}

	index := e.Index
	nums := os.ObjectNumbers()
	if index >= len(nums) || nums[index] != ref.Number {
		index = -1
		for i, n := range nums {
			if n == ref.Number {
				index = i
				break
			}
		}
		if index < 0 {
			c.r.log.Debug("object missing from its object stream", "ref", ref.String(), "stream", e.StreamNumber)
			return nil, nil
		}
	}

	_, obj, err := os.ObjectAt(index)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", ref, err)
	}
	return obj, nil
}

// objectStream returns the unpacked object stream num, loading it once.
func (c *resolution) objectStream(num int) (*core.ObjectStream, error) {
	r := c.r
	r.mu.Lock()
	os, ok := r.objStreams[num]
	r.mu.Unlock()
	if ok {
		return os, nil
	}

	obj, err := c.resolve(core.Reference{Number: num})
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*core.Stream)
	if !ok {
		return nil, core.NewStructuralError(fmt.Sprintf("object stream %d is %s", num, describe(obj)))
	}

	decoder := r.decoder
	decoder.Resolver = c
	os, err = core.NewObjectStream(stream, decoder, r)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %w", num, err)
	}

	r.mu.Lock()
	if r.objStreams != nil {
		r.objStreams[num] = os
	}
	r.mu.Unlock()
	return os, nil
}

// XRefObject is one entry of XRefObjects.
type XRefObject struct {
	Number     int
	Generation int
	Object     core.Object // nil when the object could not be resolved
	Err        error
}

// XRefObjects resolves every in-use or compressed entry of the index, in
// ascending object number order. Resolution failures are reported per
// object rather than aborting the listing.
func (r *Reader) XRefObjects() ([]XRefObject, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	var out []XRefObject
	for _, num := range r.xref.Numbers() {
		e, _ := r.xref.Get(num)
		if e.Type == core.XRefFree {
			continue
		}
		obj, err := r.Object(num)
		out = append(out, XRefObject{Number: num, Generation: e.Generation, Object: obj, Err: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}
