// Package contentstream splits PDF content streams into operations.
//
// A content stream is postfix: operands come first, then the operator that
// consumes them.
//
//	ops, err := contentstream.Parse(data)
//	for _, op := range ops {
//	    fmt.Println(op.Operator, op.Operands)
//	}
//
// Operands are [core.Object] values produced by the core parser, so
// numbers arrive as [core.Number], strings as [core.String] or
// [core.HexString] and dictionaries as *[core.Dict]. The keywords true and
// false stay operands; every other bare keyword ends an operation.
//
// # Inline Images
//
// BI ... ID data EI is folded into a single operation named BI with two
// operands: the image dictionary and the raw image bytes.
package contentstream
