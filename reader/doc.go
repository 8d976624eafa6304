// Package reader opens documents and resolves their object graph.
//
// # Opening
//
// [Open] maps a file read-only; [NewReader] accepts any io.ReadSeeker:
//
//	r, err := reader.Open("document.pdf", reader.WithExtendedFilters())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// Opening reads the header, walks the cross-reference chain from startxref
// through every /XRefStm and /Prev, unpacks object streams and resolves the
// catalog. Any failure there matches core.ErrStructural and no Reader is
// returned. Encrypted documents are rejected with ErrEncrypted.
//
// # Resolution
//
//   - Resolve(obj) returns non-references unchanged
//   - ResolveReference(ref) follows a reference to its object, or nil if the
//     object is missing or free
//   - Object(num) resolves by object number
//   - XRefObjects() lists every indexed object in ascending order
//
// A reference that is needed to parse itself, for example a stream whose
// /Length names the stream, fails with core.ErrReferenceCycle.
//
// # Decoding
//
// Decode applies the stream's filters; an unsupported filter yields
// core.ErrUnsupportedFilter. DecodeOrRaw falls back to the raw bytes instead.
//
// # Lifetime
//
// After Close every accessor returns ErrNotOpen.
package reader
