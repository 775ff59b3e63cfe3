// Package seed loads town records into a document store. Input is a JSON
// array or a single JSON object, optionally zstd-compressed.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"
	"github.com/xeipuuv/gojsonschema"

	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/metrics"
	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/docjson"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Decode parses seed data into normalized records.
func Decode(data []byte) ([]map[string]any, error) {
	if bytes.HasPrefix(data, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.ErrSeed, "init zstd decoder", err)
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.ErrSeed, "decompress seed data", err)
		}
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrSeed, "invalid JSON", err)
	}

	var items []*fastjson.Value
	if v.Type() == fastjson.TypeArray {
		items, _ = v.Array()
	} else {
		items = []*fastjson.Value{v}
	}

	records := make([]map[string]any, 0, len(items))
	for i, item := range items {
		raw, err := docjson.Object(item)
		if err != nil {
			return nil, qerrors.Wrap(qerrors.ErrSeed, fmt.Sprintf("record %d", i), err)
		}
		records = append(records, Normalize(raw))
	}
	return records, nil
}

// Read decodes seed data from r.
func Read(r io.Reader) ([]map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrSeed, "read seed data", err)
	}
	return Decode(data)
}

func ReadFile(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrSeed, "read seed file", err)
	}
	return Decode(data)
}

type Options struct {
	Collection string
	// Replace empties the collection first when the store supports it.
	Replace bool
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

type Loader struct {
	writer storage.Writer
	opts   Options
	schema *gojsonschema.Schema
}

func NewLoader(w storage.Writer, opts Options) (*Loader, error) {
	if opts.Collection == "" {
		return nil, qerrors.New(qerrors.ErrSeed, "collection is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(townSchema))
	if err != nil {
		return nil, qerrors.Wrap(qerrors.ErrSeed, "compile town schema", err)
	}
	return &Loader{writer: w, opts: opts, schema: schema}, nil
}

// Validate checks one normalized record against the town schema.
func (l *Loader) Validate(rec map[string]any) error {
	result, err := l.schema.Validate(gojsonschema.NewGoLoader(rec))
	if err != nil {
		return qerrors.Wrap(qerrors.ErrSeed, "schema validation error", err)
	}
	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return qerrors.Newf(qerrors.ErrSeed, "record %q invalid: %s", rec["town_name"], strings.Join(errs, "; "))
	}
	return nil
}

// Load validates every record, then writes them. Nothing is written if any
// record is invalid.
func (l *Loader) Load(ctx context.Context, records []map[string]any) (int, error) {
	var invalid qerrors.ValidationErrors
	for i, rec := range records {
		if err := l.Validate(rec); err != nil {
			var qe *qerrors.Error
			if !errors.As(err, &qe) {
				qe = qerrors.Wrap(qerrors.ErrSeed, "validate", err)
			}
			invalid = append(invalid, qe.At(i))
		}
	}
	if err := invalid.Err(); err != nil {
		return 0, err
	}

	if l.opts.Replace {
		if t, ok := l.writer.(storage.Truncater); ok {
			if err := t.Truncate(ctx, l.opts.Collection); err != nil {
				return 0, qerrors.Wrap(qerrors.ErrStore, "truncate "+l.opts.Collection, err)
			}
			l.opts.Logger.Info("collection emptied", "collection", l.opts.Collection)
		}
	}

	n := 0
	for _, rec := range records {
		doc := storage.Document{ID: recordID(rec), Fields: rec}
		if err := l.writer.Put(ctx, l.opts.Collection, doc); err != nil {
			l.opts.Metrics.ObserveSeeded(n)
			return n, qerrors.Wrap(qerrors.ErrStore, "write "+doc.ID, err)
		}
		n++
	}
	l.opts.Metrics.ObserveSeeded(n)
	l.opts.Logger.Info("seed loaded", "collection", l.opts.Collection, "documents", n)
	return n, nil
}

// recordID prefers town_id and falls back to a random UUID.
func recordID(rec map[string]any) string {
	switch id := rec["town_id"].(type) {
	case int64:
		return strconv.FormatInt(id, 10)
	case string:
		if id != "" {
			return id
		}
	}
	return uuid.New().String()
}
