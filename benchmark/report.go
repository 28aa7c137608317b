package benchmark

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Display renders one table per (resolution, format) bucket with a column per
// selected metric and a Relative column comparing each row TIME to the best
// TIME of the table.
func (s *Store) Display(w io.Writer, metrics MetricSet) {
	selected := metrics.Metrics()
	for _, res := range s.Resolutions() {
		for _, format := range s.Formats(res) {
			rows := s.Rows(res, format)
			best := bestValue(rows, Time)

			fmt.Fprintf(w, "\nResolution: %s (%.2f MP), Format: %s\n", res, res.MegaPixels(), format)
			header := []string{"Function", "Params", "Threads"}
			for _, m := range selected {
				header = append(header, m.String())
			}
			header = append(header, "Relative")

			table := newTable(w, header)
			for _, row := range rows {
				line := []string{row.ID.Label, displayParams(row.ID), threadsLabel(row.Threads)}
				for _, m := range selected {
					line = append(line, formatMetric(m, row.Metrics[m]))
				}
				line = append(line, formatRelative(best, row.Metrics[Time]))
				table.Append(line)
			}
			table.Render()
		}
	}
}

// Compare prints, for every (resolution, format) bucket, the case and thread
// count with the best value of a single metric. NaN values never win.
//
// Arguments:
// - w: The destination.
// - metrics: A set holding exactly one concrete metric.
//
// Returns:
// - An error matching ErrConfiguration for ALL, empty or multi-metric sets.
func (s *Store) Compare(w io.Writer, metrics MetricSet) error {
	m, err := metrics.Single()
	if err != nil {
		return err
	}

	order := "lower is better"
	if m.HigherIsBetter() {
		order = "higher is better"
	}
	fmt.Fprintf(w, "\nBest by %s (%s)\n", m, order)

	table := newTable(w, []string{"Resolution", "Format", "Function", "Params", "Threads", m.String()})
	for _, res := range s.Resolutions() {
		for _, format := range s.Formats(res) {
			row, ok := bestRow(s.Rows(res, format), m)
			if !ok {
				table.Append([]string{res.String(), format.String(), "-", "-", "-", "NaN"})
				continue
			}
			table.Append([]string{
				res.String(),
				format.String(),
				row.ID.Label,
				displayParams(row.ID),
				threadsLabel(row.Threads),
				formatMetric(m, row.Metrics[m]),
			})
		}
	}
	table.Render()
	return nil
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeader(header)
	return table
}

// bestRow returns the row with the best finite value of m.
func bestRow(rows []Row, m Metric) (Row, bool) {
	var (
		best  Row
		found bool
	)
	for _, row := range rows {
		v, ok := row.Metrics[m]
		if !ok || math.IsNaN(v) {
			continue
		}
		if !found || better(m, v, best.Metrics[m]) {
			best, found = row, true
		}
	}
	return best, found
}

func bestValue(rows []Row, m Metric) float64 {
	row, ok := bestRow(rows, m)
	if !ok {
		return math.NaN()
	}
	return row.Metrics[m]
}

func better(m Metric, a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}

func displayParams(id CaseID) string {
	if id.Params == "" {
		return "-"
	}
	return id.Params
}

func threadsLabel(threads int) string {
	if threads == 0 {
		return "auto"
	}
	return strconv.Itoa(threads)
}

func formatMetric(m Metric, v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	switch m {
	case Time, TimeMin, TimeMax, CPUTime:
		return strconv.FormatFloat(v, 'f', 6, 64)
	case Efficiency, CPUEfficiency:
		return strconv.FormatFloat(v, 'f', 3, 64)
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

func formatRelative(best, v float64) string {
	if math.IsNaN(best) || math.IsNaN(v) || v == 0 {
		return "NaN"
	}
	return strconv.FormatFloat(best/v, 'f', 3, 64)
}
