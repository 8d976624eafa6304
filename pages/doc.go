// Package pages provides PDF page tree traversal and page access.
//
// # Page Tree
//
// PDF documents organize pages in a tree structure. The [PageTree] type
// flattens this hierarchy in document order:
//
//	tree := pages.NewPageTree(pagesDict, resolver)
//	count, _ := tree.Count()
//	page, _ := tree.Page(0)  // 0-indexed
//
// A node reached twice while walking /Kids fails the walk.
//
// # Page Access
//
// The [Page] type represents a single PDF page with:
//
//   - MediaBox - page dimensions
//   - CropBox - visible area, defaulting to MediaBox
//   - Rotate - page rotation (0, 90, 180, 270)
//   - Resources - fonts, images, etc.
//   - Contents and ContentData - content streams
//   - Fonts - the resource fonts, ready to decode shown strings
//
// MediaBox, CropBox, Rotate and Resources are inherited through every
// /Parent up to the root.
package pages
