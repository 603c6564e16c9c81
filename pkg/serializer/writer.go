package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format identifies an output encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// IsUnknown reports whether f is not one of the supported formats.
func (f Format) IsUnknown() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTable:
		return false
	default:
		return true
	}
}

// SupportedFormats returns the supported format names.
func SupportedFormats() []string {
	return []string{string(FormatJSON), string(FormatYAML), string(FormatTable)}
}

// Serializer writes a value somewhere.
type Serializer interface {
	Serialize(ctx context.Context, data any) error
}

// Closer is implemented by serializers that own an underlying file.
type Closer interface {
	Close() error
}

// Writer serializes values to an io.Writer in the configured format.
type Writer struct {
	format Format
	output io.Writer
	closer io.Closer
}

// NewWriter returns a Writer for format writing to output. Unknown
// formats fall back to JSON; a nil output means stdout.
func NewWriter(format Format, output io.Writer) *Writer {
	if format.IsUnknown() {
		format = FormatJSON
	}
	if output == nil {
		output = os.Stdout
	}
	return &Writer{format: format, output: output}
}

// NewStdoutWriter returns a Writer to stdout.
func NewStdoutWriter(format Format) *Writer {
	return NewWriter(format, os.Stdout)
}

// NewFileWriterOrStdout returns a Writer to path, or to stdout when path
// is empty or StdoutURI.
func NewFileWriterOrStdout(format Format, path string) (Serializer, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == StdoutURI {
		return NewStdoutWriter(format), nil
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	w := NewWriter(format, f)
	w.closer = f
	return w, nil
}

// Close closes the underlying file, if any. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.closer == nil {
		return nil
	}
	err := w.closer.Close()
	w.closer = nil
	return err
}

// Serialize writes data in the configured format.
func (w *Writer) Serialize(ctx context.Context, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch w.format {
	case FormatYAML:
		enc := yaml.NewEncoder(w.output)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to serialize to yaml: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return w.writeTable(data)
	default:
		enc := json.NewEncoder(w.output)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to serialize to json: %w", err)
		}
		return nil
	}
}

func (w *Writer) writeTable(data any) error {
	rows := make(map[string]string)
	flatten("", reflect.ValueOf(data), rows)

	tw := tabwriter.NewWriter(w.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FIELD\tVALUE")
	if len(rows) == 0 {
		fmt.Fprintln(tw, "<empty>\t")
		return tw.Flush()
	}

	keys := make([]string, 0, len(rows))
	for k := range rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, rows[k])
	}
	return tw.Flush()
}

// flatten walks v and records leaf values under dotted keys.
func flatten(prefix string, v reflect.Value, out map[string]string) {
	if !v.IsValid() {
		if prefix != "" {
			out[prefix] = "<nil>"
		}
		return
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			if prefix != "" {
				out[prefix] = "<nil>"
			}
			return
		}
		flatten(prefix, v.Elem(), out)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			key := field.Name
			if field.Anonymous {
				flatten(prefix, v.Field(i), out)
				continue
			}
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, v.Field(i), out)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			flatten(fmt.Sprintf("%s[%d]", prefix, i), v.Index(i), out)
		}
	case reflect.Map:
		for _, k := range v.MapKeys() {
			key := fmt.Sprint(k.Interface())
			if prefix != "" {
				key = prefix + "." + key
			}
			flatten(key, v.MapIndex(k), out)
		}
	default:
		out[prefix] = fmt.Sprint(v.Interface())
	}
}
