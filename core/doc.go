// Package core provides low-level PDF parsing primitives and object types.
//
// # Object Types
//
// Every value satisfies the [Object] interface:
//
//   - [Null] - the explicit null; a nil Object means "absent"
//   - [Number] - integers and reals share one float64 representation
//   - [Name] - /Type, /Font, with #xx escapes already decoded
//   - [String] and [HexString] - raw bytes, not text
//   - [Identifier] - any other bare keyword, including true, false and
//     content stream operators
//   - [Array] and [Dict] - containers; Dict keeps insertion order for display
//   - [Stream] - a dictionary plus its still-encoded payload
//   - [Reference] - "N G R", resolved by the caller
//
// # Parsing
//
// [Lexer] tokenizes bytes and keeps a stack of pushed-back tokens. [Parser]
// builds objects from tokens, looking two tokens past a number to recognize
// "N G R" and "N G obj". A stream /Length that is a reference is resolved
// through the parser's [ReferenceResolver].
//
// # Cross-Reference Index
//
// [XRefParser] finds startxref, then walks every classic table and xref
// stream through /XRefStm and /Prev. The first entry seen for an object
// number wins, so newer revisions shadow older ones. The result is an
// [XRefTable] plus the newest trailer.
//
// # Object Streams
//
// [ObjectStream] unpacks an /ObjStm so that compressed objects can be looked
// up by position.
//
// # Decoding
//
// [Decoder] applies /Filter chains. FlateDecode with PNG predictors is always
// available; the ASCII, LZW and CCITT filters need Decoder.Extended. Anything
// else fails with [ErrUnsupportedFilter].
//
// # Errors
//
// Failures that make a document unusable match [ErrStructural]: syntax
// errors ([ParseError]), a missing startxref or trailer and reference
// cycles ([ErrReferenceCycle]).
package core
