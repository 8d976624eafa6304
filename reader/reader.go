package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
	"github.com/tsawler/pdfstruct/logging"
	"github.com/tsawler/pdfstruct/pages"
)

var (
	ErrBadHeader = core.NewStructuralError("missing %PDF- header")
	ErrEncrypted = core.NewStructuralError("document is encrypted")
	ErrNoRoot    = core.NewStructuralError("trailer /Root is not a dictionary")
)

// ErrNotOpen is returned by every accessor of a Reader that is nil, failed
// to open or has been closed.
var ErrNotOpen = errors.New("pdf: document is not open")

// headerWindow bounds where %PDF- may appear
const headerWindow = 1024

// Version represents a PDF version
type Version struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Reader is an open document. The cross-reference index and trailer are
// built once by Open or NewReader and never change afterwards; resolved
// objects and unpacked object streams are cached. Resolve and Decode may be
// called from several goroutines. Close must not race with other calls.
type Reader struct {
	src    io.ReaderAt
	size   int64
	closer io.Closer
	cfg    config
	log    *slog.Logger

	decoder core.Decoder
	cmaps   *font.CMapStore
	version Version
	xref    *core.XRefTable
	trailer *core.Dict
	root    *core.Dict

	mu         sync.Mutex
	open       bool
	cache      map[int]core.Object
	objStreams map[int]*core.ObjectStream

	pageTree *pages.PageTree
}

var _ pages.ObjectResolver = (*Reader)(nil)

// Open maps the named file read-only and opens it as a document.
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}
	if info.Size() == 0 {
		file.Close()
		return nil, fmt.Errorf("%s: %w", filename, ErrBadHeader)
	}

	m, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to map file: %w", err)
	}

	r, err := newReader(bytes.NewReader(m), int64(len(m)), &mappedFile{m: m, f: file}, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return r, nil
}

type mappedFile struct {
	m mmap.MMap
	f *os.File
}

func (mf *mappedFile) Close() error {
	err := mf.m.Unmap()
	if cerr := mf.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// NewReader opens a document from rs. Sources that also implement
// io.ReaderAt are read without locking; others are serialized behind a
// mutex. The caller keeps ownership of rs.
func NewReader(rs io.ReadSeeker, opts ...Option) (*Reader, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine size: %w", err)
	}

	var src io.ReaderAt
	if ra, ok := rs.(io.ReaderAt); ok {
		src = ra
	} else {
		src = &lockedReaderAt{rs: rs}
	}
	return newReader(src, size, nil, opts)
}

// lockedReaderAt adapts an io.ReadSeeker to io.ReaderAt.
type lockedReaderAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func (l *lockedReaderAt) ReadAt(p []byte, off int64) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	n, err := io.ReadFull(l.rs, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

func newReader(src io.ReaderAt, size int64, closer io.Closer, opts []Option) (*Reader, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Reader{
		src:        src,
		size:       size,
		closer:     closer,
		cfg:        cfg,
		log:        cfg.logger,
		cache:      make(map[int]core.Object),
		objStreams: make(map[int]*core.ObjectStream),
	}
	if r.log == nil {
		r.log = logging.Logger()
	}
	r.decoder = core.Decoder{Extended: cfg.extended, Resolver: r}
	r.cmaps = font.NewCMapStore(cfg.cmaps)

	if err := r.load(); err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return r, nil
}

// load reads the header, the cross-reference chain and the catalog.
func (r *Reader) load() error {
	version, err := r.parseHeader()
	if err != nil {
		return err
	}
	r.version = version

	xp := core.NewXRefParser(r.src, r.size)
	xp.SetLogger(r.log)
	table, err := xp.Parse()
	if err != nil {
		return fmt.Errorf("failed to load xref: %w", err)
	}
	if table.Trailer.Has("Encrypt") {
		if r.cfg.password != "" {
			return fmt.Errorf("%w: decryption is not supported", ErrEncrypted)
		}
		return ErrEncrypted
	}
	r.xref = table
	r.trailer = table.Trailer
	r.open = true

	r.loadObjectStreams()

	root, err := r.Resolve(r.trailer.Get("Root"))
	if err != nil {
		r.open = false
		return fmt.Errorf("failed to resolve catalog: %w", err)
	}
	catalog, ok := root.(*core.Dict)
	if !ok {
		r.open = false
		return ErrNoRoot
	}
	r.root = catalog

	r.log.Debug("opened document", "version", r.version.String(), "objects", table.Len(), "size", r.size)
	return nil
}

// parseHeader finds %PDF-x.y in the first kilobyte.
func (r *Reader) parseHeader() (Version, error) {
	n := int64(headerWindow)
	if r.size < n {
		n = r.size
	}
	buf := make([]byte, n)
	read, err := r.src.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return Version{}, fmt.Errorf("failed to read header: %w", err)
	}
	buf = buf[:read]

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 {
		return Version{}, ErrBadHeader
	}

	var v Version
	if _, err := fmt.Sscanf(string(buf[idx+5:]), "%d.%d", &v.Major, &v.Minor); err != nil {
		return Version{}, fmt.Errorf("%w: unreadable version", ErrBadHeader)
	}
	return v, nil
}

// loadObjectStreams unpacks every object stream the index refers to.
// Failures are left for resolution to report.
func (r *Reader) loadObjectStreams() {
	seen := make(map[int]bool)
	for _, num := range r.xref.Numbers() {
		e, _ := r.xref.Get(num)
		if e.Type != core.XRefCompressed || seen[e.StreamNumber] {
			continue
		}
		seen[e.StreamNumber] = true
		if _, err := r.newResolution().objectStream(e.StreamNumber); err != nil {
			r.log.Debug("object stream not loaded", "object", e.StreamNumber, "error", err)
		}
	}
}

func (r *Reader) checkOpen() error {
	if r == nil {
		return ErrNotOpen
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open {
		return ErrNotOpen
	}
	return nil
}

// Close releases the source and discards the index, trailer and caches.
func (r *Reader) Close() error {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.open && r.closer == nil {
		return nil
	}

	r.open = false
	r.xref = nil
	r.trailer = nil
	r.root = nil
	r.cache = nil
	r.objStreams = nil
	r.pageTree = nil

	var err error
	if r.closer != nil {
		err = r.closer.Close()
		r.closer = nil
	}
	return err
}

// Version returns the header version; the zero Version if not open.
func (r *Reader) Version() Version {
	if r.checkOpen() != nil {
		return Version{}
	}
	return r.version
}

// Size returns the length of the source in bytes.
func (r *Reader) Size() int64 {
	if r.checkOpen() != nil {
		return 0
	}
	return r.size
}

// Trailer returns the document trailer
func (r *Reader) Trailer() (*core.Dict, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.trailer, nil
}

// Root returns the document catalog
func (r *Reader) Root() (*core.Dict, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.root, nil
}

// Info returns the document information dictionary, or nil if absent.
func (r *Reader) Info() (*core.Dict, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	obj, err := r.Resolve(r.trailer.Get("Info"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve info: %w", err)
	}
	info, _ := obj.(*core.Dict)
	return info, nil
}

// XRefTable returns the merged cross-reference index.
func (r *Reader) XRefTable() (*core.XRefTable, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.xref, nil
}

// CMaps returns the store of predefined CMaps configured with WithCMapFS.
func (r *Reader) CMaps() *font.CMapStore {
	if r == nil {
		return nil
	}
	return r.cmaps
}

// Decode returns the decoded payload of s. Unsupported filters yield an
// error matching core.ErrUnsupportedFilter.
func (r *Reader) Decode(s *core.Stream) ([]byte, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	return r.decoder.Decode(s)
}

// DecodeOrRaw decodes s, falling back to the raw bytes when a filter is
// unsupported. decoded reports which one was returned.
func (r *Reader) DecodeOrRaw(s *core.Stream) (data []byte, decoded bool, err error) {
	data, err = r.Decode(s)
	if errors.Is(err, core.ErrUnsupportedFilter) {
		r.log.Debug("returning raw stream bytes", "error", err)
		return s.Data, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// NewContentParser returns a parser over data, such as a decoded content
// stream, that resolves indirect stream lengths through this document.
func (r *Reader) NewContentParser(data []byte) (*core.Parser, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	p := core.NewParser(bytes.NewReader(data))
	p.SetReferenceResolver(r)
	return p, nil
}

// PageTree returns the page tree rooted at the catalog's /Pages.
func (r *Reader) PageTree() (*pages.PageTree, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	tree := r.pageTree
	r.mu.Unlock()
	if tree != nil {
		return tree, nil
	}

	tree, err := pages.NewCatalog(r.root, r).Pages()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pageTree = tree
	r.mu.Unlock()
	return tree, nil
}

// PageCount returns the number of pages in the PDF
func (r *Reader) PageCount() (int, error) {
	tree, err := r.PageTree()
	if err != nil {
		return 0, err
	}
	return tree.Count()
}

// Page returns the page at the given index (0-based)
func (r *Reader) Page(index int) (*pages.Page, error) {
	tree, err := r.PageTree()
	if err != nil {
		return nil, err
	}
	return tree.Page(index)
}

func describe(obj core.Object) string {
	if obj == nil {
		return "absent"
	}
	return obj.Type().String()
}
