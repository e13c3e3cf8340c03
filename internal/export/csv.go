package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"PairWatch/internal/domain/models"
)

// WriteSeriesCSV dumps a bar series as CSV, one row per bar. Timestamps
// are written both as epoch milliseconds and RFC3339 for spreadsheet use.
func WriteSeriesCSV(w io.Writer, bars []models.Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"timestamp_ms", "time", "open", "high", "low", "close", "volume", "synthetic", "is_open",
	}); err != nil {
		return err
	}
	for _, b := range bars {
		row := []string{
			strconv.FormatInt(b.Start, 10),
			b.StartTime().Format(time.RFC3339),
			formatFloat(b.Open),
			formatFloat(b.High),
			formatFloat(b.Low),
			formatFloat(b.Close),
			formatFloat(b.Volume),
			strconv.FormatBool(b.Synthetic),
			strconv.FormatBool(b.IsOpen),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairCSV dumps a pair analytics trail as CSV. Missing values
// become empty cells, never zeros.
func WritePairCSV(w io.Writer, snap *models.PairSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"timestamp_ms", "time", "spread", "zscore", "correlation",
	}); err != nil {
		return err
	}
	for _, p := range snap.Points {
		row := []string{
			strconv.FormatInt(p.Timestamp, 10),
			time.UnixMilli(p.Timestamp).UTC().Format(time.RFC3339),
			formatOptional(p.Spread),
			formatOptional(p.ZScore),
			formatOptional(p.Correlation),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
