package benchmark

import (
	"encoding/json"
	"math"
	"os"
	"strconv"

	"github.com/nvr-ai/filterbench/frames"
	"github.com/pkg/errors"
)

// document is the persisted form of a Store:
// case id -> "(W, H)" -> format -> thread count -> metric -> value.
type document map[string]map[string]map[string]map[string]map[string]metricValue

// metricValue is a metric as JSON: NaN is null and infinities are the
// strings "+Inf" and "-Inf".
type metricValue float64

func (v metricValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte("null"), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(f)
}

func (v *metricValue) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
		*v = metricValue(math.NaN())
		return nil
	case `"+Inf"`:
		*v = metricValue(math.Inf(1))
		return nil
	case `"-Inf"`:
		*v = metricValue(math.Inf(-1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = metricValue(f)
	return nil
}

// Save writes the store as indented JSON. NaN is written as null and
// infinities as "+Inf"/"-Inf", so Load restores every value. Without
// overwrite an existing file is left untouched and ErrAlreadyExists is
// returned.
//
// Arguments:
// - filename: The destination path.
// - overwrite: Whether an existing file may be replaced.
//
// Returns:
// - An error matching ErrPersistence on failure.
func (s *Store) Save(filename string, overwrite bool) error {
	data, err := json.MarshalIndent(s.document(), "", "  ")
	if err != nil {
		return errors.Wrapf(ErrPersistence, "marshal results: %v", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(filename, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return errors.Wrap(ErrAlreadyExists, filename)
		}
		return errors.Wrapf(ErrPersistence, "open %s: %v", filename, err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return errors.Wrapf(ErrPersistence, "write %s: %v", filename, err)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(ErrPersistence, "close %s: %v", filename, err)
	}
	return nil
}

func (s *Store) document() document {
	doc := document{}
	for _, c := range s.Cells() {
		agg, _ := s.Get(c.ID, c.Resolution, c.Format, c.Threads)
		values := make(map[string]metricValue, len(agg))
		for m, v := range agg {
			values[m.String()] = metricValue(v)
		}

		id, res, format := c.ID.String(), c.Resolution.Key(), c.Format.String()
		if doc[id] == nil {
			doc[id] = map[string]map[string]map[string]map[string]metricValue{}
		}
		if doc[id][res] == nil {
			doc[id][res] = map[string]map[string]map[string]metricValue{}
		}
		if doc[id][res][format] == nil {
			doc[id][res][format] = map[string]map[string]metricValue{}
		}
		doc[id][res][format][strconv.Itoa(c.Threads)] = values
	}
	return doc
}

// Load reads a store written by Save. null values are read back as NaN.
//
// Arguments:
// - filename: The file to read.
//
// Returns:
// - The store, or an error matching ErrNotFound or ErrDecode.
func Load(filename string) (*Store, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrap(ErrNotFound, filename)
		}
		return nil, errors.Wrapf(ErrPersistence, "read %s: %v", filename, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(ErrDecode, "%s: %v", filename, err)
	}

	store := NewStore()
	for rawID, byRes := range doc {
		id, err := ParseCaseID(rawID)
		if err != nil {
			return nil, err
		}
		for rawRes, byFormat := range byRes {
			res, err := frames.ParseResolutionKey(rawRes)
			if err != nil {
				return nil, errors.Wrapf(ErrDecode, "case %s: %v", rawID, err)
			}
			for rawFormat, byThreads := range byFormat {
				format, err := frames.ParseFormat(rawFormat)
				if err != nil {
					return nil, errors.Wrapf(ErrDecode, "case %s at %s: %v", rawID, rawRes, err)
				}
				for rawThreads, values := range byThreads {
					threads, err := strconv.Atoi(rawThreads)
					if err != nil || threads < 0 {
						return nil, errors.Wrapf(ErrDecode, "case %s at %s: bad thread count %q", rawID, rawRes, rawThreads)
					}
					agg, err := decodeMetrics(values)
					if err != nil {
						return nil, errors.Wrapf(ErrDecode, "case %s at %s, %s, threads %d: %v", rawID, rawRes, rawFormat, threads, err)
					}
					store.Put(id, res, format, threads, agg)
				}
			}
		}
	}
	return store, nil
}

func decodeMetrics(values map[string]metricValue) (Aggregated, error) {
	agg := make(Aggregated, len(values))
	for name, v := range values {
		m, err := ParseMetric(name)
		if err != nil {
			return nil, err
		}
		agg[m] = float64(v)
	}
	return agg, nil
}
