// Package resolver expands indirect references inside PDF objects.
//
// PDF documents use indirect references (e.g., "5 0 R") to refer to objects
// stored elsewhere in the file. The reader follows one reference at a time;
// this package expands a whole subgraph.
//
// # Basic Usage
//
// Create a resolver over an open document:
//
//	res := resolver.NewResolver(doc)
//	obj, err := res.Resolve(ref)
//
// # Deep Resolution
//
// For complete expansion of nested references in dictionaries and arrays:
//
//	expanded, err := res.ResolveDeep(obj)
//
// The result is a copy; the input and the document cache are untouched.
//
// # Cycles
//
// Page trees point back at their parents, so a reference to an object that
// is already being expanded on the current branch is left in place.
// WithStrictCycles turns it into an error instead. Expansion also stops at
// a maximum depth:
//
//	res := resolver.NewResolver(doc, resolver.WithMaxDepth(50))
package resolver
