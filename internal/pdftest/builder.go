// Package pdftest assembles small PDF files with correct byte offsets for
// tests. It writes bytes only and knows nothing about the object model.
package pdftest

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"sort"
	"strings"
)

type entry struct {
	kind   int // 0 free, 1 offset, 2 compressed
	offset int64
	stream int
	index  int
}

// Builder writes a PDF body followed by any number of cross-reference
// sections. Each section covers the objects written since the previous one,
// which models incremental updates.
type Builder struct {
	buf      bytes.Buffer
	pending  map[int]entry
	offsets  map[int]int64
	lastXRef int64
	sections int
	size     int
}

// New starts a file with the given header version, e.g. "1.7".
func New(version string) *Builder {
	b := &Builder{
		pending:  make(map[int]entry),
		offsets:  make(map[int]int64),
		lastXRef: -1,
	}
	fmt.Fprintf(&b.buf, "%%PDF-%s\n%%\xE2\xE3\xCF\xD3\n", version)
	return b
}

func (b *Builder) track(num int) {
	if num+1 > b.size {
		b.size = num + 1
	}
}

// Object writes "num 0 obj body endobj".
func (b *Builder) Object(num int, body string) *Builder {
	return b.ObjectGen(num, 0, body)
}

// ObjectGen writes an object with an explicit generation.
func (b *Builder) ObjectGen(num, gen int, body string) *Builder {
	off := int64(b.buf.Len())
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", num, gen, body)
	b.offsets[num] = off
	b.pending[num] = entry{kind: 1, offset: off}
	b.track(num)
	return b
}

// Stream writes a stream object. dict holds the dictionary entries without
// the surrounding brackets; /Length is appended unless lengthRef is non-empty,
// in which case "/Length <lengthRef>" is used verbatim.
func (b *Builder) Stream(num int, dict string, data []byte, lengthRef ...string) *Builder {
	length := fmt.Sprint(len(data))
	if len(lengthRef) > 0 {
		length = lengthRef[0]
	}
	body := fmt.Sprintf("<< %s /Length %s >>\nstream\n%s\nendstream", dict, length, data)
	return b.Object(num, body)
}

// FlateStream writes a FlateDecode-compressed stream.
func (b *Builder) FlateStream(num int, dict string, data []byte) *Builder {
	return b.Stream(num, strings.TrimSpace(dict+" /Filter /FlateDecode"), Deflate(data))
}

// ObjectStream writes an /ObjStm holding bodies in order and records the
// contained objects as compressed entries.
func (b *Builder) ObjectStream(num int, nums []int, bodies []string) *Builder {
	var header, body strings.Builder
	for i, n := range nums {
		fmt.Fprintf(&header, "%d %d ", n, body.Len())
		body.WriteString(bodies[i])
		body.WriteByte(' ')
	}
	first := header.Len()
	data := []byte(header.String() + body.String())
	b.FlateStream(num, fmt.Sprintf("/Type /ObjStm /N %d /First %d", len(nums), first), data)
	for i, n := range nums {
		b.pending[n] = entry{kind: 2, stream: num, index: i}
		b.track(n)
	}
	return b
}

// Free marks num as free in the next section.
func (b *Builder) Free(num int) *Builder {
	b.pending[num] = entry{kind: 0}
	b.track(num)
	return b
}

// Raw appends bytes as-is.
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Offset returns where object num was last written.
func (b *Builder) Offset(num int) int64 {
	return b.offsets[num]
}

// Len returns the current file length.
func (b *Builder) Len() int64 {
	return int64(b.buf.Len())
}

func (b *Builder) sortedPending() []int {
	nums := make([]int, 0, len(b.pending))
	for n := range b.pending {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

func (b *Builder) trailerExtras(extra string) string {
	s := fmt.Sprintf("/Size %d", b.size)
	if b.lastXRef >= 0 {
		s += fmt.Sprintf(" /Prev %d", b.lastXRef)
	}
	if extra != "" {
		s += " " + extra
	}
	return s
}

func (b *Builder) finishSection(off int64) {
	fmt.Fprintf(&b.buf, "startxref\n%d\n%%%%EOF\n", off)
	b.lastXRef = off
	b.pending = make(map[int]entry)
	b.sections++
}

// XRefTable writes a classic table for pending objects, the trailer and the
// startxref footer. trailer holds extra entries such as "/Root 1 0 R".
// Compressed entries cannot be expressed and are skipped.
func (b *Builder) XRefTable(trailer string) *Builder {
	if b.sections == 0 {
		if _, ok := b.pending[0]; !ok {
			b.pending[0] = entry{kind: 0}
		}
	}
	nums := b.sortedPending()

	off := int64(b.buf.Len())
	b.buf.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&b.buf, "%d %d\n", nums[i], j-i+1)
		for _, n := range nums[i : j+1] {
			e := b.pending[n]
			switch e.kind {
			case 1:
				fmt.Fprintf(&b.buf, "%010d 00000 n\r\n", e.offset)
			default:
				gen := 0
				if n == 0 {
					gen = 65535
				}
				fmt.Fprintf(&b.buf, "%010d %05d f\r\n", 0, gen)
			}
		}
		i = j + 1
	}
	fmt.Fprintf(&b.buf, "trailer\n<< %s >>\n", b.trailerExtras(trailer))
	b.finishSection(off)
	return b
}

// XRefStream writes the pending entries as a cross-reference stream object
// numbered num with /W [1 4 2], followed by the startxref footer.
func (b *Builder) XRefStream(num int, trailer string) *Builder {
	b.track(num)
	off := int64(b.buf.Len())
	b.pending[num] = entry{kind: 1, offset: off}
	if b.sections == 0 {
		if _, ok := b.pending[0]; !ok {
			b.pending[0] = entry{kind: 0}
		}
	}
	nums := b.sortedPending()

	var rows bytes.Buffer
	var index []string
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		index = append(index, fmt.Sprintf("%d %d", nums[i], j-i+1))
		for _, n := range nums[i : j+1] {
			e := b.pending[n]
			var f1 int64
			var f2 int
			switch e.kind {
			case 1:
				f1 = e.offset
			case 2:
				f1, f2 = int64(e.stream), e.index
			}
			rows.Write([]byte{byte(e.kind), byte(f1 >> 24), byte(f1 >> 16), byte(f1 >> 8), byte(f1), byte(f2 >> 8), byte(f2)})
		}
		i = j + 1
	}

	data := Deflate(rows.Bytes())
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Type /XRef /W [1 4 2] /Index [%s] /Filter /FlateDecode %s /Length %d >>\nstream\n",
		num, strings.Join(index, " "), b.trailerExtras(trailer), len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	b.offsets[num] = off
	b.finishSection(off)
	return b
}

// Detach makes the next section start a new chain with no /Prev, as the
// classic half of a hybrid file does.
func (b *Builder) Detach() *Builder {
	b.lastXRef = -1
	return b
}

// Bytes returns the file assembled so far.
func (b *Builder) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

// Deflate zlib-compresses data.
func Deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Minimal returns a one-page document with the given content stream and a
// Helvetica font resource named /F1.
func Minimal(content string) []byte {
	return New("1.7").
		Object(1, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>").
		Object(3, "<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>").
		Stream(4, "", []byte(content)).
		Object(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>").
		XRefTable("/Root 1 0 R").
		Bytes()
}
