package align

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
)

// Reader yields the records of a gzip-compressed SAM file written by Align,
// in file order.
type Reader struct {
	path string
	in   file.File
	gz   *gzip.Reader
	sam  *sam.Reader
}

// Open opens the aligner output at path. Malformed content is reported with
// kind errors.Invalid.
func Open(ctx context.Context, path string) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(in.Reader(ctx))
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(errors.Invalid, "opening", path, err)
	}
	sr, err := sam.NewReader(gz)
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(errors.Invalid, "reading SAM header of", path, err)
	}
	return &Reader{path: path, in: in, gz: gz, sam: sr}, nil
}

// Header returns the SAM header of the file.
func (r *Reader) Header() *sam.Header { return r.sam.Header() }

// Read returns the next record, or io.EOF at the end of the file.
func (r *Reader) Read() (*sam.Record, error) {
	rec, err := r.sam.Read()
	if err == io.EOF {
		return nil, err
	}
	if err != nil {
		return nil, errors.E(errors.Invalid, "reading", r.path, err)
	}
	return rec, nil
}

// Close releases the file.
func (r *Reader) Close(ctx context.Context) error {
	err := r.gz.Close()
	if err2 := r.in.Close(ctx); err == nil {
		err = err2
	}
	return err
}
