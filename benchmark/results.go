package benchmark

import (
	"math"
	"sort"

	"github.com/nvr-ai/filterbench/frames"
)

// Cell addresses one entry of the Store.
type Cell struct {
	ID         CaseID
	Resolution frames.Resolution
	Format     frames.Format
	Threads    int
}

// Row is one cell of a (resolution, format) bucket with its metrics.
type Row struct {
	ID      CaseID
	Threads int
	Metrics Aggregated
}

// Record is one measured pass. Failed passes carry NaN timings.
type Record struct {
	ID         CaseID
	Resolution frames.Resolution
	Format     frames.Format
	Threads    int
	Pass       int
	Time       float64
	FPS        float64
}

// Store holds aggregated metrics keyed by case, resolution, format and thread
// count. It owns its values: Put copies in and Get copies out.
type Store struct {
	cells   map[CaseID]map[frames.Resolution]map[frames.Format]map[int]Aggregated
	size    int
	records []Record
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{cells: make(map[CaseID]map[frames.Resolution]map[frames.Format]map[int]Aggregated)}
}

// Put stores a copy of agg at the given cell, replacing any previous value.
func (s *Store) Put(id CaseID, res frames.Resolution, format frames.Format, threads int, agg Aggregated) {
	byRes, ok := s.cells[id]
	if !ok {
		byRes = make(map[frames.Resolution]map[frames.Format]map[int]Aggregated)
		s.cells[id] = byRes
	}
	byFormat, ok := byRes[res]
	if !ok {
		byFormat = make(map[frames.Format]map[int]Aggregated)
		byRes[res] = byFormat
	}
	byThreads, ok := byFormat[format]
	if !ok {
		byThreads = make(map[int]Aggregated)
		byFormat[format] = byThreads
	}
	if _, exists := byThreads[threads]; !exists {
		s.size++
	}
	byThreads[threads] = agg.Clone()
}

// Get returns a copy of the metrics of a cell.
func (s *Store) Get(id CaseID, res frames.Resolution, format frames.Format, threads int) (Aggregated, bool) {
	agg, ok := s.cells[id][res][format][threads]
	if !ok {
		return nil, false
	}
	return agg.Clone(), true
}

// AddRecord appends a per-pass record.
func (s *Store) AddRecord(r Record) {
	s.records = append(s.records, r)
}

// Records returns the per-pass records in measurement order. Stores read back
// with Load have none.
func (s *Store) Records() []Record {
	return append([]Record(nil), s.records...)
}

// Len returns the number of populated cells.
func (s *Store) Len() int {
	return s.size
}

// Cells returns every populated cell in a stable order.
func (s *Store) Cells() []Cell {
	out := make([]Cell, 0, s.size)
	for id, byRes := range s.cells {
		for res, byFormat := range byRes {
			for format, byThreads := range byFormat {
				for threads := range byThreads {
					out = append(out, Cell{ID: id, Resolution: res, Format: format, Threads: threads})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Resolution != b.Resolution {
			return resolutionLess(a.Resolution, b.Resolution)
		}
		if a.Format != b.Format {
			return a.Format.String() < b.Format.String()
		}
		if a.ID != b.ID {
			return caseLess(a.ID, b.ID)
		}
		return a.Threads < b.Threads
	})
	return out
}

// Resolutions returns the resolutions present, by pixel count ascending.
func (s *Store) Resolutions() []frames.Resolution {
	seen := map[frames.Resolution]bool{}
	var out []frames.Resolution
	for _, byRes := range s.cells {
		for res := range byRes {
			if !seen[res] {
				seen[res] = true
				out = append(out, res)
			}
		}
	}
	frames.SortByPixels(out)
	return out
}

// Formats returns the formats present at res, by name.
func (s *Store) Formats(res frames.Resolution) []frames.Format {
	seen := map[frames.Format]bool{}
	var out []frames.Format
	for _, byRes := range s.cells {
		for format := range byRes[res] {
			if !seen[format] {
				seen[format] = true
				out = append(out, format)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Rows returns the cells of one (resolution, format) bucket ordered by label,
// parameters and thread count.
func (s *Store) Rows(res frames.Resolution, format frames.Format) []Row {
	var out []Row
	for id, byRes := range s.cells {
		for threads, agg := range byRes[res][format] {
			out = append(out, Row{ID: id, Threads: threads, Metrics: agg.Clone()})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID != out[j].ID {
			return caseLess(out[i].ID, out[j].ID)
		}
		return out[i].Threads < out[j].Threads
	})
	return out
}

// Equal reports whether both stores hold the same cells and values. NaN
// equals NaN.
func (s *Store) Equal(o *Store) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, c := range s.Cells() {
		a, _ := s.Get(c.ID, c.Resolution, c.Format, c.Threads)
		b, ok := o.Get(c.ID, c.Resolution, c.Format, c.Threads)
		if !ok || len(a) != len(b) {
			return false
		}
		for m, va := range a {
			vb, ok := b[m]
			if !ok {
				return false
			}
			if va != vb && !(math.IsNaN(va) && math.IsNaN(vb)) {
				return false
			}
		}
	}
	return true
}

func resolutionLess(a, b frames.Resolution) bool {
	if a.Pixels() != b.Pixels() {
		return a.Pixels() < b.Pixels()
	}
	return a.Width < b.Width
}

func caseLess(a, b CaseID) bool {
	if a.Label != b.Label {
		return a.Label < b.Label
	}
	return a.Params < b.Params
}
