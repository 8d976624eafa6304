// Command pdfinspect prints the structure of a PDF file.
//
// Usage:
//
//	pdfinspect [flags] <file> trailer
//	pdfinspect [flags] <file> objects
//	pdfinspect [flags] <file> object N
//	pdfinspect [flags] <file> stream N
//	pdfinspect [flags] <file> image N
//	pdfinspect [flags] <file> text [P]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/tsawler/pdfstruct/core"
	"github.com/tsawler/pdfstruct/font"
	"github.com/tsawler/pdfstruct/logging"
	"github.com/tsawler/pdfstruct/reader"
	"github.com/tsawler/pdfstruct/resolver"
	"github.com/tsawler/pdfstruct/text"
)

var errUsage = errors.New("usage: pdfinspect [flags] <file> trailer|objects|object N|stream N|image N|text [P]")

type options struct {
	raw      bool
	out      string
	deep     bool
	extended bool
	cmaps    string
	verbose  bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("pdfinspect", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.raw, "raw", false, "write stream bytes without decoding")
	fs.StringVar(&opts.out, "o", "", "output file for stream and image (default stdout, or N.bmp for image)")
	fs.BoolVar(&opts.deep, "deep", false, "expand nested references when printing an object")
	fs.BoolVar(&opts.extended, "extended", false, "enable ASCIIHex, ASCII85, LZW and CCITTFax decoding")
	fs.StringVar(&opts.cmaps, "cmaps", "", "directory of predefined CMap files")
	fs.BoolVar(&opts.verbose, "v", false, "log debug output to stderr")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 2 {
		fmt.Fprintln(stderr, errUsage)
		return 2
	}

	if err := inspect(fs.Arg(0), fs.Arg(1), fs.Args()[2:], opts, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, "pdfinspect:", err)
		if errors.Is(err, errUsage) {
			return 2
		}
		return 1
	}
	return 0
}

func inspect(path, command string, rest []string, opts options, stdout, stderr io.Writer) error {
	var ropts []reader.Option
	if opts.verbose {
		logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		logging.SetLogger(logger)
		ropts = append(ropts, reader.WithLogger(logger))
	}
	if opts.extended {
		ropts = append(ropts, reader.WithExtendedFilters())
	}
	if opts.cmaps != "" {
		ropts = append(ropts, reader.WithCMapFS(os.DirFS(opts.cmaps)))
	}

	r, err := reader.Open(path, ropts...)
	if err != nil {
		return err
	}
	defer r.Close()

	switch command {
	case "trailer":
		return printTrailer(r, stdout)
	case "objects":
		return listObjects(r, stdout)
	case "object":
		num, err := objectNumber(rest)
		if err != nil {
			return err
		}
		return printObject(r, num, opts.deep, stdout)
	case "stream":
		num, err := objectNumber(rest)
		if err != nil {
			return err
		}
		return writeStream(r, num, opts, stdout)
	case "image":
		num, err := objectNumber(rest)
		if err != nil {
			return err
		}
		return writeImage(r, num, opts.out, stdout)
	case "text":
		page := 0
		if len(rest) > 0 {
			n, err := strconv.Atoi(rest[0])
			if err != nil || n < 1 {
				return fmt.Errorf("%w: page must be a positive number", errUsage)
			}
			page = n
		}
		return printText(r, page, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func objectNumber(rest []string) (int, error) {
	if len(rest) == 0 {
		return 0, fmt.Errorf("%w: missing object number", errUsage)
	}
	n, err := strconv.Atoi(rest[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid object number %q", errUsage, rest[0])
	}
	return n, nil
}

func printTrailer(r *reader.Reader, w io.Writer) error {
	trailer, err := r.Trailer()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "PDF-%s, %d bytes\n", r.Version(), r.Size())
	fmt.Fprintln(w, "trailer")
	for _, key := range trailer.Keys() {
		fmt.Fprintf(w, "  /%s %s\n", key, trailer.Get(key))
	}

	info, err := r.Info()
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}
	fmt.Fprintln(w, "info")
	for _, key := range info.Keys() {
		value, err := r.Resolve(info.Get(key))
		if err != nil {
			fmt.Fprintf(w, "  /%s <error: %v>\n", key, err)
			continue
		}
		if b, ok := core.Bytes(value); ok {
			fmt.Fprintf(w, "  /%s %q\n", key, font.DecodeTextString(b))
			continue
		}
		fmt.Fprintf(w, "  /%s %s\n", key, describe(value))
	}
	return nil
}

func listObjects(r *reader.Reader, w io.Writer) error {
	objs, err := r.XRefObjects()
	if err != nil {
		return err
	}
	for _, o := range objs {
		switch {
		case o.Err != nil:
			fmt.Fprintf(w, "%d %d error: %v\n", o.Number, o.Generation, o.Err)
		case o.Object == nil:
			fmt.Fprintf(w, "%d %d absent\n", o.Number, o.Generation)
		default:
			fmt.Fprintf(w, "%d %d %s%s\n", o.Number, o.Generation, o.Object.Type(), subtype(o.Object))
		}
	}
	return nil
}

// subtype returns " /Type" or " /Type /Subtype" for dictionaries and streams.
func subtype(obj core.Object) string {
	var d *core.Dict
	switch v := obj.(type) {
	case *core.Dict:
		d = v
	case *core.Stream:
		d = v.Dict
	}
	s := ""
	if name, ok := d.GetName("Type"); ok {
		s += " /" + string(name)
	}
	if name, ok := d.GetName("Subtype"); ok {
		s += " /" + string(name)
	}
	return s
}

func printObject(r *reader.Reader, num int, deep bool, w io.Writer) error {
	var obj core.Object
	var err error
	if deep {
		obj, err = resolver.NewResolver(r).ObjectDeep(num)
	} else {
		obj, err = r.Object(num)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(w, describe(obj))
	return nil
}

func writeStream(r *reader.Reader, num int, opts options, stdout io.Writer) error {
	obj, err := r.Object(num)
	if err != nil {
		return err
	}
	s, ok := obj.(*core.Stream)
	if !ok {
		return fmt.Errorf("object %d is %s, not a stream", num, kind(obj))
	}

	data := s.Data
	if !opts.raw {
		var decoded bool
		data, decoded, err = r.DecodeOrRaw(s)
		if err != nil {
			return err
		}
		if !decoded {
			logging.Logger().Info("filter unsupported, writing raw bytes", "object", num)
		}
	}
	return output(opts.out, stdout, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeImage(r *reader.Reader, num int, out string, stdout io.Writer) error {
	img, err := r.Image(core.Reference{Number: num})
	if err != nil {
		return err
	}
	if out == "" {
		out = fmt.Sprintf("%d.bmp", num)
	}
	if err := output(out, stdout, img.WriteBMP); err != nil {
		return err
	}
	if out != "-" {
		fmt.Fprintf(stdout, "wrote %s (%dx%d %s)\n", out, img.Width, img.Height, img.ColorSpace)
	}
	return nil
}

func printText(r *reader.Reader, page int, w io.Writer) error {
	count, err := r.PageCount()
	if err != nil {
		return err
	}
	first, last := 1, count
	if page > 0 {
		if page > count {
			return fmt.Errorf("page %d out of range, document has %d", page, count)
		}
		first, last = page, page
	}

	for i := first; i <= last; i++ {
		p, err := r.Page(i - 1)
		if err != nil {
			return err
		}
		s, err := text.ExtractPage(p)
		if err != nil {
			return fmt.Errorf("page %d: %w", i, err)
		}
		if page == 0 {
			fmt.Fprintf(w, "--- page %d ---\n", i)
		}
		fmt.Fprintln(w, s)
	}
	return nil
}

// output runs write against the named file, or stdout when name is empty
// or "-".
func output(name string, stdout io.Writer, write func(io.Writer) error) error {
	if name == "" || name == "-" {
		return write(stdout)
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func describe(obj core.Object) string {
	if obj == nil {
		return "null"
	}
	return obj.String()
}

func kind(obj core.Object) string {
	if obj == nil {
		return "absent"
	}
	return obj.Type().String()
}
