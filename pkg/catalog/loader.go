package catalog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Load reads and validates a catalog file. The format is picked from the
// file extension. Every failure is returned as a *LoadError.
func Load(path string) (*Catalog, error) {
	start := time.Now()

	format := DetectFormat(path)
	if format == FormatUnknown {
		return nil, &LoadError{Source: path, Index: -1, Err: ErrUnknownFormat}
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Source: path, Index: -1, Err: err}
	}
	defer file.Close()

	c, err := Decode(bufio.NewReader(file), format)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.Source = path
		}
		return nil, err
	}

	log.Debugf("Loaded %d records from %s (%s) in %v", c.Len(), path, format, time.Since(start))
	return c, nil
}

// Decode reads a record array in the given format and builds a Catalog.
func Decode(r io.Reader, format Format) (*Catalog, error) {
	var records []Record

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(r)
		if err := dec.Decode(&records); err != nil {
			return nil, malformed(err)
		}
		// the array must be the whole document
		if tok, err := dec.Token(); err != io.EOF {
			return nil, malformed(fmt.Errorf("unexpected data after record array: %v %v", tok, err))
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&records); err != nil {
			return nil, malformed(err)
		}
	default:
		return nil, &LoadError{Index: -1, Err: ErrUnknownFormat}
	}

	if records == nil {
		// a literal null decodes without error but is not a catalog
		return nil, malformed(fmt.Errorf("expected a record array"))
	}
	return New(records)
}

// Encode writes records in the given format; used to convert JSON sources
// into the msgpack form.
func Encode(w io.Writer, c *Catalog, format Format) error {
	records := make([]Record, 0, c.Len())
	for _, r := range c.All() {
		records = append(records, *r)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatMsgpack:
		return msgpack.NewEncoder(w).Encode(records)
	}
	return ErrUnknownFormat
}

func malformed(err error) *LoadError {
	return &LoadError{Index: -1, Err: fmt.Errorf("%w: %v", ErrMalformed, err)}
}
