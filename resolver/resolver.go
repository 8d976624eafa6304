package resolver

import (
	"fmt"

	"github.com/tsawler/pdfstruct/core"
)

// ObjectResolver expands the indirect references inside PDF objects.
// It holds no per-call state and may be shared between goroutines.
type ObjectResolver struct {
	reader   ObjectReader
	maxDepth int  // Maximum recursion depth
	strict   bool // Fail on a reference back into the current branch
}

// ObjectReader interface allows the resolver to work with any reader
type ObjectReader interface {
	Object(num int) (core.Object, error)
	ResolveReference(ref core.Reference) (core.Object, error)
}

// Option configures the resolver
type Option func(*ObjectResolver)

// WithMaxDepth sets the maximum recursion depth (default: 100)
func WithMaxDepth(depth int) Option {
	return func(r *ObjectResolver) {
		r.maxDepth = depth
	}
}

// WithStrictCycles makes a reference back to an object that is already
// being expanded an error matching core.ErrReferenceCycle. By default such
// a reference is left in place unexpanded.
func WithStrictCycles() Option {
	return func(r *ObjectResolver) {
		r.strict = true
	}
}

// NewResolver creates a new object resolver
func NewResolver(reader ObjectReader, opts ...Option) *ObjectResolver {
	r := &ObjectResolver{
		reader:   reader,
		maxDepth: 100,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Resolve follows obj if it is a reference, without descending into
// containers.
func (r *ObjectResolver) Resolve(obj core.Object) (core.Object, error) {
	ref, ok := obj.(core.Reference)
	if !ok {
		return obj, nil
	}
	return r.ResolveReference(ref)
}

// ResolveReference resolves a single indirect reference
// This is a shallow resolution - it returns the referenced object but doesn't recurse
func (r *ObjectResolver) ResolveReference(ref core.Reference) (core.Object, error) {
	resolved, err := r.reader.ResolveReference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve reference %s: %w", ref, err)
	}
	return resolved, nil
}

// ResolveDeep returns a copy of obj with every reference inside
// dictionaries, arrays and stream dictionaries replaced by the object it
// names. Missing objects become null. The input is not modified.
func (r *ObjectResolver) ResolveDeep(obj core.Object) (core.Object, error) {
	return r.resolve(obj, make(map[int]bool), 0)
}

// ResolveDict is a convenience method for resolving dictionaries
// It resolves the dictionary and all its values (deep resolution)
func (r *ObjectResolver) ResolveDict(dict *core.Dict) (*core.Dict, error) {
	resolved, err := r.ResolveDeep(dict)
	if err != nil {
		return nil, err
	}
	d, ok := resolved.(*core.Dict)
	if !ok || d == nil {
		return nil, fmt.Errorf("dictionary resolved to %s", resolved)
	}
	return d, nil
}

// ResolveArray is a convenience method for resolving arrays
// It resolves all elements in the array (deep resolution)
func (r *ObjectResolver) ResolveArray(arr core.Array) (core.Array, error) {
	resolved, err := r.ResolveDeep(arr)
	if err != nil {
		return nil, err
	}
	a, ok := resolved.(core.Array)
	if !ok {
		return nil, fmt.Errorf("array resolved to %s", resolved)
	}
	return a, nil
}

// ObjectDeep loads object num and fully expands it.
func (r *ObjectResolver) ObjectDeep(num int) (core.Object, error) {
	obj, err := r.reader.Object(num)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return core.Null{}, nil
	}
	return r.resolve(obj, map[int]bool{num: true}, 0)
}

// resolve expands obj. branch holds the object numbers being expanded on
// the path from the root to obj.
func (r *ObjectResolver) resolve(obj core.Object, branch map[int]bool, depth int) (core.Object, error) {
	if depth >= r.maxDepth {
		return nil, fmt.Errorf("maximum recursion depth (%d) exceeded", r.maxDepth)
	}

	switch v := obj.(type) {
	case core.Reference:
		if branch[v.Number] {
			if r.strict {
				return nil, fmt.Errorf("%w: object %d contains itself", core.ErrReferenceCycle, v.Number)
			}
			return v, nil
		}

		resolved, err := r.ResolveReference(v)
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			return core.Null{}, nil
		}

		branch[v.Number] = true
		defer delete(branch, v.Number)
		return r.resolve(resolved, branch, depth+1)

	case *core.Dict:
		if v == nil {
			return core.Null{}, nil
		}
		resolved := core.NewDict()
		for _, key := range v.Keys() {
			value, err := r.resolve(v.Get(key), branch, depth+1)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve dict key %s: %w", key, err)
			}
			resolved.Set(key, value)
		}
		return resolved, nil

	case core.Array:
		resolved := make(core.Array, len(v))
		for i, elem := range v {
			value, err := r.resolve(elem, branch, depth+1)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve array element %d: %w", i, err)
			}
			resolved[i] = value
		}
		return resolved, nil

	case *core.Stream:
		dict, err := r.resolve(v.Dict, branch, depth+1)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve stream dict: %w", err)
		}
		d, _ := dict.(*core.Dict)
		return &core.Stream{Dict: d, Data: v.Data}, nil

	case nil:
		return core.Null{}, nil

	default:
		// Primitive types don't need resolution
		return obj, nil
	}
}
