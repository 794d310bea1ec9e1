package ioformats

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"

	"provenance-enricher/internal/models"
)

// WriteNDJSON writes any JSON-marshalable items as NDJSON to w.
func WriteNDJSON(w io.Writer, items []any) error {
	enc := json.NewEncoder(w)
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

func closeWriter(w io.Writer) error {
	if c, ok := w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NDJSONSink writes one JSON object per line.
type NDJSONSink struct {
	w   io.Writer
	enc *json.Encoder
}

// NewNDJSONSink writes to w; w is closed by Close when it is an io.Closer.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &NDJSONSink{w: w, enc: enc}
}

func (s *NDJSONSink) Write(_ context.Context, rec models.Record) error { return s.enc.Encode(rec) }

func (s *NDJSONSink) Close() error { return closeWriter(s.w) }

// JSONArraySink writes every record into a single JSON array.
type JSONArraySink struct {
	w     io.Writer
	count int
}

func NewJSONArraySink(w io.Writer) *JSONArraySink { return &JSONArraySink{w: w} }

func (s *JSONArraySink) Write(_ context.Context, rec models.Record) error {
	b, err := json.MarshalIndent(rec, "  ", "  ")
	if err != nil {
		return err
	}
	sep := ",\n  "
	if s.count == 0 {
		sep = "[\n  "
	}
	if _, err := io.WriteString(s.w, sep); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	s.count++
	return nil
}

func (s *JSONArraySink) Close() error {
	tail := "\n]\n"
	if s.count == 0 {
		tail = "[]\n"
	}
	_, err := io.WriteString(s.w, tail)
	return errors.Join(err, closeWriter(s.w))
}

// CSVSink writes flat record rows under a header.
type CSVSink struct {
	w      io.Writer
	cw     *csv.Writer
	flat   *Flattener
	header bool
}

func NewCSVSink(w io.Writer, flat *Flattener) *CSVSink {
	return &CSVSink{w: w, cw: csv.NewWriter(w), flat: flat}
}

func (s *CSVSink) writeHeader() error {
	if s.header {
		return nil
	}
	s.header = true
	return s.cw.Write(s.flat.Header())
}

func (s *CSVSink) Write(_ context.Context, rec models.Record) error {
	if err := s.writeHeader(); err != nil {
		return err
	}
	row, err := s.flat.Row(rec)
	if err != nil {
		return err
	}
	return s.cw.Write(row)
}

func (s *CSVSink) Close() error {
	err := s.writeHeader()
	s.cw.Flush()
	return errors.Join(err, s.cw.Error(), closeWriter(s.w))
}

// RecordSink is implemented by every sink in this package.
type RecordSink interface {
	Write(ctx context.Context, rec models.Record) error
	Close() error
}

// MultiSink fans every record out to several sinks.
type MultiSink []RecordSink

func (m MultiSink) Write(ctx context.Context, rec models.Record) error {
	for _, s := range m {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and reports all failures.
func (m MultiSink) Close() error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}
