package benchmark

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var csvHeader = []string{"Function", "Resolution", "Format", "Params", "Threads", "Pass", "Time", "FPS"}

// ExportCSV writes one row per measured pass. Failed passes have NaN timings.
func (s *Store) ExportCSV(filename string, overwrite bool) error {
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
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return errors.Wrapf(ErrPersistence, "write %s: %v", filename, err)
	}
	for _, r := range s.records {
		row := []string{
			r.ID.Label,
			r.Resolution.String(),
			r.Format.String(),
			r.ID.Params,
			strconv.Itoa(r.Threads),
			strconv.Itoa(r.Pass),
			strconv.FormatFloat(r.Time, 'g', -1, 64),
			strconv.FormatFloat(r.FPS, 'g', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(ErrPersistence, "write %s: %v", filename, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrapf(ErrPersistence, "flush %s: %v", filename, err)
	}
	return nil
}
