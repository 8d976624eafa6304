package font

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"unicode/utf16"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/logging"
)

// ReplacementChar is emitted for every code a CMap cannot map.
const ReplacementChar = '\uFFFD'

// maxUseCMapDepth bounds usecmap chains.
const maxUseCMapDepth = 8

// ErrCMapNotFound is returned when a predefined CMap is not available.
var ErrCMapNotFound = errors.New("cmap not found")

// CodespaceRange is a range of source codes of a fixed byte length.
type CodespaceRange struct {
	Low, High uint32
	Length    int
}

// CMapRange maps the source codes Low..High to Dest, Dest+1, ... The
// increment applies to the last rune of Dest.
type CMapRange struct {
	Low, High uint32
	Dest      []rune
}

// CMap maps character codes to Unicode text.
type CMap struct {
	Name  string
	WMode int

	codespaces []CodespaceRange
	ranges     []CMapRange
	singles    map[uint32][]rune
}

// NewCMap creates an empty CMap
func NewCMap() *CMap {
	return &CMap{singles: make(map[uint32][]rune)}
}

// CMapLoader returns the program of the named CMap, for usecmap.
type CMapLoader func(name string) (*CMap, error)

// ParseCMap parses a CMap program. Operands are pushed onto a scratch list
// that is cleared at each begin/end keyword; the end keywords consume it in
// groups of two (char forms) or three (range forms). cidchar and cidrange
// blocks are stored inverted, so a Unicode-to-CID CMap decodes CIDs to
// Unicode. load may be nil, in which case usecmap is ignored.
func ParseCMap(data []byte, load CMapLoader) (*CMap, error) {
	cm := NewCMap()
	if err := cm.parse(data, load); err != nil {
		return nil, err
	}
	return cm, nil
}

func (cm *CMap) parse(data []byte, load CMapLoader) error {
	log := logging.Logger()
	p := core.NewParser(bytes.NewReader(data))

	var stack []core.Object
	for {
		obj, err := p.ParseObject()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to parse cmap: %w", err)
		}

		id, ok := obj.(core.Identifier)
		if !ok {
			stack = append(stack, obj)
			continue
		}

		switch id {
		case "begincodespacerange", "beginbfchar", "beginbfrange", "begincidchar", "begincidrange":
			stack = stack[:0]
		case "endcodespacerange":
			cm.addCodespaces(stack)
			stack = stack[:0]
		case "endbfchar":
			for i := 0; i+1 < len(stack); i += 2 {
				if !cm.addBfChar(stack[i], stack[i+1]) {
					log.Debug("skipping bfchar entry", "src", stack[i], "dst", stack[i+1])
				}
			}
			stack = stack[:0]
		case "endbfrange":
			for i := 0; i+2 < len(stack); i += 3 {
				if !cm.addBfRange(stack[i], stack[i+1], stack[i+2]) {
					log.Debug("skipping bfrange entry", "low", stack[i], "high", stack[i+1])
				}
			}
			stack = stack[:0]
		case "endcidchar":
			for i := 0; i+1 < len(stack); i += 2 {
				if !cm.addCIDChar(stack[i], stack[i+1]) {
					log.Debug("skipping cidchar entry", "src", stack[i], "cid", stack[i+1])
				}
			}
			stack = stack[:0]
		case "endcidrange":
			for i := 0; i+2 < len(stack); i += 3 {
				if !cm.addCIDRange(stack[i], stack[i+1], stack[i+2]) {
					log.Debug("skipping cidrange entry", "low", stack[i], "high", stack[i+1])
				}
			}
			stack = stack[:0]
		case "usecmap":
			if err := cm.use(stack, load); err != nil {
				return err
			}
		case "def":
			cm.define(stack)
		default:
			stack = append(stack, obj)
		}
	}
}

// use merges the CMap named just before usecmap. Entries already defined
// take precedence over the parent's.
func (cm *CMap) use(stack []core.Object, load CMapLoader) error {
	if load == nil || len(stack) == 0 {
		return nil
	}
	name, ok := stack[len(stack)-1].(core.Name)
	if !ok {
		return nil
	}
	parent, err := load(string(name))
	if err != nil {
		return fmt.Errorf("usecmap %s: %w", name, err)
	}
	cm.codespaces = append(append([]CodespaceRange(nil), parent.codespaces...), cm.codespaces...)
	cm.ranges = append(append([]CMapRange(nil), parent.ranges...), cm.ranges...)
	for code, dest := range parent.singles {
		if _, ok := cm.singles[code]; !ok {
			cm.singles[code] = dest
		}
	}
	return nil
}

func (cm *CMap) define(stack []core.Object) {
	if len(stack) < 2 {
		return
	}
	key, ok := stack[len(stack)-2].(core.Name)
	if !ok {
		return
	}
	switch key {
	case "CMapName":
		if v, ok := stack[len(stack)-1].(core.Name); ok {
			cm.Name = string(v)
		}
	case "WMode":
		if v, ok := stack[len(stack)-1].(core.Number); ok {
			cm.WMode = v.Int()
		}
	}
}

func (cm *CMap) addCodespaces(stack []core.Object) {
	for i := 0; i+1 < len(stack); i += 2 {
		lo, ok := core.Bytes(stack[i])
		if !ok || len(lo) == 0 || len(lo) > 4 {
			continue
		}
		hi, _ := core.Bytes(stack[i+1])
		cm.codespaces = append(cm.codespaces, CodespaceRange{
			Low:    codeValue(lo),
			High:   codeValue(hi),
			Length: len(lo),
		})
	}
}

func (cm *CMap) addBfChar(src, dst core.Object) bool {
	code, ok := codeOf(src)
	if !ok {
		return false
	}
	dest, ok := destOf(dst)
	if !ok {
		return false
	}
	cm.singles[code] = dest
	return true
}

func (cm *CMap) addBfRange(lo, hi, dst core.Object) bool {
	low, ok1 := codeOf(lo)
	high, ok2 := codeOf(hi)
	if !ok1 || !ok2 || high < low {
		return false
	}

	if arr, ok := dst.(core.Array); ok {
		for i, item := range arr {
			if low+uint32(i) > high {
				break
			}
			if dest, ok := destOf(item); ok {
				cm.singles[low+uint32(i)] = dest
			}
		}
		return true
	}

	dest, ok := destOf(dst)
	if !ok || len(dest) == 0 {
		return false
	}
	cm.ranges = append(cm.ranges, CMapRange{Low: low, High: high, Dest: dest})
	return true
}

// addCIDChar records "<code> cid" inverted: cid decodes to code.
func (cm *CMap) addCIDChar(src, cid core.Object) bool {
	c, ok := codeOf(cid)
	if !ok {
		return false
	}
	dest, ok := destOf(src)
	if !ok {
		return false
	}
	cm.singles[c] = dest
	return true
}

// addCIDRange records "<lo> <hi> cid" inverted: cid..cid+(hi-lo) decode to
// lo..hi.
func (cm *CMap) addCIDRange(lo, hi, cid core.Object) bool {
	low, ok1 := codeOf(lo)
	high, ok2 := codeOf(hi)
	start, ok3 := codeOf(cid)
	if !ok1 || !ok2 || !ok3 || high < low {
		return false
	}
	dest, ok := destOf(lo)
	if !ok || len(dest) == 0 {
		return false
	}
	cm.ranges = append(cm.ranges, CMapRange{Low: start, High: start + (high - low), Dest: dest})
	return true
}

// Codespaces returns the registered code-space ranges.
func (cm *CMap) Codespaces() []CodespaceRange {
	return cm.codespaces
}

// Len returns the number of mapping entries.
func (cm *CMap) Len() int {
	return len(cm.singles) + len(cm.ranges)
}

// Lookup maps one code. Single-code entries are consulted before ranges;
// among ranges the later definition wins.
func (cm *CMap) Lookup(code uint32) ([]rune, bool) {
	if dest, ok := cm.singles[code]; ok {
		return dest, true
	}
	for i := len(cm.ranges) - 1; i >= 0; i-- {
		r := cm.ranges[i]
		if code < r.Low || code > r.High {
			continue
		}
		out := make([]rune, len(r.Dest))
		copy(out, r.Dest)
		out[len(out)-1] += rune(code - r.Low)
		return out, true
	}
	return nil, false
}

// Decode converts bytes to text. At each position the candidate code
// lengths are tried longest first against the code-space ranges. Without
// any code-space ranges the input is read in 2-byte units.
func (cm *CMap) Decode(data []byte) string {
	if len(cm.codespaces) == 0 {
		return cm.DecodeUnits(data, 2)
	}

	var sb strings.Builder
	for pos := 0; pos < len(data); {
		n := cm.codeLength(data[pos:])
		if n == 0 {
			sb.WriteRune(ReplacementChar)
			pos++
			continue
		}
		cm.writeCode(&sb, codeValue(data[pos:pos+n]))
		pos += n
	}
	return sb.String()
}

// DecodeUnits converts bytes to text reading fixed-width codes. A short
// final unit is decoded on its own.
func (cm *CMap) DecodeUnits(data []byte, width int) string {
	var sb strings.Builder
	for pos := 0; pos < len(data); pos += width {
		end := pos + width
		if end > len(data) {
			end = len(data)
		}
		cm.writeCode(&sb, codeValue(data[pos:end]))
	}
	return sb.String()
}

func (cm *CMap) writeCode(sb *strings.Builder, code uint32) {
	dest, ok := cm.Lookup(code)
	if !ok {
		sb.WriteRune(ReplacementChar)
		return
	}
	for _, r := range dest {
		sb.WriteRune(r)
	}
}

// codeLength returns the byte length of the code at the start of data, or 0
// if no code-space range matches.
func (cm *CMap) codeLength(data []byte) int {
	for n := 4; n >= 1; n-- {
		if n > len(data) {
			continue
		}
		code := codeValue(data[:n])
		for _, cs := range cm.codespaces {
			if cs.Length == n && code >= cs.Low && code <= cs.High {
				return n
			}
		}
	}
	return 0
}

func codeValue(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

func codeOf(obj core.Object) (uint32, bool) {
	switch v := obj.(type) {
	case core.HexString, core.String:
		b, _ := core.Bytes(v)
		if len(b) == 0 || len(b) > 4 {
			return 0, false
		}
		return codeValue(b), true
	case core.Number:
		if v < 0 {
			return 0, false
		}
		return uint32(v.Int()), true
	}
	return 0, false
}

// destOf decodes a destination: UTF-16BE bytes, a CID number or a glyph
// name.
func destOf(obj core.Object) ([]rune, bool) {
	switch v := obj.(type) {
	case core.HexString, core.String:
		b, _ := core.Bytes(v)
		if len(b) == 0 {
			return nil, false
		}
		return utf16BE(b), true
	case core.Number:
		if v < 0 {
			return nil, false
		}
		return []rune{rune(v.Int())}, true
	case core.Name:
		s, ok := GlyphToUnicode(string(v))
		if !ok {
			return nil, false
		}
		return []rune(s), true
	}
	return nil, false
}

// utf16BE decodes big-endian UTF-16. A single byte is taken as its value.
func utf16BE(b []byte) []rune {
	if len(b) == 1 {
		return []rune{rune(b[0])}
	}
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		units = append(units, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return utf16.Decode(units)
}

// CMapStore loads predefined CMaps by name from a file system and keeps
// them once parsed. A nil store, or one without a file system, has none.
type CMapStore struct {
	fsys fs.FS

	mu    sync.Mutex
	cmaps map[string]*CMap
}

// NewCMapStore returns a store reading CMap files from fsys.
func NewCMapStore(fsys fs.FS) *CMapStore {
	return &CMapStore{fsys: fsys, cmaps: make(map[string]*CMap)}
}

// Load returns the parsed CMap called name.
func (s *CMapStore) Load(name string) (*CMap, error) {
	return s.load(name, 0)
}

func (s *CMapStore) load(name string, depth int) (*CMap, error) {
	if s == nil || s.fsys == nil {
		return nil, fmt.Errorf("%w: %s", ErrCMapNotFound, name)
	}
	if depth > maxUseCMapDepth {
		return nil, fmt.Errorf("usecmap chain through %s is too deep", name)
	}

	s.mu.Lock()
	cm, ok := s.cmaps[name]
	s.mu.Unlock()
	if ok {
		return cm, nil
	}

	data, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrCMapNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cmap %s: %w", name, err)
	}

	cm, err = ParseCMap(data, func(parent string) (*CMap, error) {
		return s.load(parent, depth+1)
	})
	if err != nil {
		return nil, fmt.Errorf("cmap %s: %w", name, err)
	}

	s.mu.Lock()
	s.cmaps[name] = cm
	s.mu.Unlock()
	return cm, nil
}
