// Package report renders a finished run: an HTML gallery, a CSV export,
// and the colored terminal summary.
package report

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"sightline/pkg/models"
)

var csvColumns = []string{
	"index", "url", "final_url", "status", "title", "load_ms",
	"server", "techs", "category", "sec_grade", "tls_issuer",
	"screenshot", "notes",
}

// WriteCSV exports one row per result, ordered as given.
func WriteCSV(filename string, results []models.CaptureResult) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvColumns); err != nil {
		return err
	}
	for i := range results {
		r := &results[i]
		issuer := ""
		if r.TLS != nil {
			issuer = r.TLS.Issuer
		}
		row := []string{
			strconv.Itoa(r.Index),
			r.URL,
			r.FinalURL,
			r.StatusLabel(),
			r.Title,
			strconv.FormatInt(r.LoadMillis, 10),
			r.Headers["server"],
			strings.Join(r.Technologies, "; "),
			r.Category,
			r.SecGrade,
			issuer,
			r.Screenshot,
			r.Notes,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
