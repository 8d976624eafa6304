// Package text extracts the shown text of a page.
//
// [ExtractPage] decodes the page content, then walks its show-text
// operators (Tj, TJ, ' and ") and maps each string through the font
// selected by the last Tf:
//
//	s, err := text.ExtractPage(page)
//
// A new line starts at T*, ', ", ET and at Td or TD with a vertical
// offset. A TJ displacement of 250 thousandths or more inserts a space.
// Lines carry the [Direction] of their text, taken from the Unicode
// bidirectional class of each character.
//
// Strings shown before a syntax error in the content stream are kept.
package text
