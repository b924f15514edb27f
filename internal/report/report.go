package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"BreakoutScreener/internal/model"
)

// DefaultCSVPath is the export file name used when none is configured.
const DefaultCSVPath = "nse_breakout_stocks.csv"

// Header is the column order of the exported table.
var Header = []string{
	"Symbol", "Close", "20D_High", "52W_High", "Volume_Today", "Avg_Volume", "RSI", "Profit_Potential (%)",
}

func row(c *model.BreakoutCandidate) []string {
	return []string{
		c.Symbol,
		c.Close.StringFixed(2),
		c.High20.StringFixed(2),
		c.High52w.StringFixed(2),
		strconv.FormatInt(c.VolumeToday, 10),
		strconv.FormatInt(c.AvgVolume, 10),
		c.RSI.StringFixed(2),
		c.ProfitPotentialPct.StringFixed(2),
	}
}

// WriteCSV writes the header and one row per candidate, in the given order.
func WriteCSV(w io.Writer, candidates []*model.BreakoutCandidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range candidates {
		if err := cw.Write(row(c)); err != nil {
			return fmt.Errorf("write csv row %s: %w", c.Symbol, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// TimestampedPath inserts the run time before the extension of path, so
// nse_breakout_stocks.csv becomes nse_breakout_stocks_20250602_161500.csv.
func TimestampedPath(path string, at time.Time) string {
	if path == "" {
		path = DefaultCSVPath
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + at.Format("_20060102_150405") + ext
}

// SaveCSV writes the table to path, creating parent directories.
func SaveCSV(path string, candidates []*model.BreakoutCandidate) error {
	if path == "" {
		path = DefaultCSVPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	if err := WriteCSV(f, candidates); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTable prints an aligned plain-text table, or the empty-result notice.
func WriteTable(w io.Writer, candidates []*model.BreakoutCandidate) error {
	if len(candidates) == 0 {
		_, err := fmt.Fprintln(w, NoCandidatesMessage)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, h := range Header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, c := range candidates {
		for i, v := range row(c) {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, v)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// NoCandidatesMessage is reported when a run finds nothing.
const NoCandidatesMessage = "No breakout candidates found."

// Summary returns the one-line outcome of a run.
func Summary(result *model.ScreenResult) string {
	if result.Empty() {
		return NoCandidatesMessage
	}
	if len(result.Candidates) == 1 {
		return "Found 1 breakout candidate"
	}
	return fmt.Sprintf("Found %d breakout candidates", len(result.Candidates))
}
