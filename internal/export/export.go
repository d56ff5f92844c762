// Package export renders the task list as JSON, CSV or PDF.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"tasklist/internal/locale"
	"tasklist/internal/output"
	"tasklist/internal/persist"
	"tasklist/internal/task"
)

// Supported formats.
const (
	JSON = "json"
	CSV  = "csv"
	PDF  = "pdf"
)

// Formats lists the supported format names.
var Formats = []string{JSON, CSV, PDF}

// Binary reports whether the format should not be written to a terminal.
func Binary(format string) bool {
	return strings.EqualFold(format, PDF)
}

// Export renders the snapshot's tasks in the given format.
func Export(snap task.Snapshot, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case JSON:
		return persist.Encode(snap.Tasks)
	case CSV:
		return exportCSV(snap.Tasks)
	case PDF:
		return exportPDF(snap)
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

func exportCSV(tasks []task.Task) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"position", "id", "text", "completed"})
	for i, t := range tasks {
		_ = w.Write([]string{strconv.Itoa(i + 1), t.ID, t.Text, strconv.FormatBool(t.Completed)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// exportPDF uses the core Arial font, so text outside cp1252 does not render.
func exportPDF(snap task.Snapshot) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(snap.Locale.T(locale.Title), true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.Cell(40, 10, tr(snap.Locale.T(locale.Title)))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	if len(snap.Tasks) == 0 {
		pdf.MultiCell(0, 6, tr(snap.Locale.T(locale.NoTasks)), "0", "L", false)
	}
	for i, t := range snap.Tasks {
		line := fmt.Sprintf("%d. %s %s", i+1, output.Mark(t.Completed), t.Text)
		pdf.MultiCell(0, 6, tr(line), "0", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
