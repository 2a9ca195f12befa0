package export

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"respcare-monitor/internal/vitals/application"
	vitals "respcare-monitor/internal/vitals/domain"
)

const (
	summarySheet      = "summary"
	observationsSheet = "observations"
	timeLayout        = "2006-01-02 15:04:05"
)

// Report is the data rendered into an export document.
type Report struct {
	Dashboard    application.Dashboard
	Observations []vitals.Observation
}

// Options tune PDF rendering.
type Options struct {
	// FontPath points at a UTF-8 TTF font. Without it the core Arial font is
	// used and characters outside cp1252 are replaced.
	FontPath string
	Location *time.Location
}

// BuildObservationsXLSX renders the summary and the full observation log.
func BuildObservationsXLSX(report Report, opts Options) ([]byte, error) {
	loc := location(opts)
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(observationsSheet); err != nil {
		return nil, err
	}

	_ = f.SetCellValue(summarySheet, "A1", "Vital Signs Summary")
	_ = f.SetCellValue(summarySheet, "A2", "Patient")
	_ = f.SetCellValue(summarySheet, "B2", report.Dashboard.PatientID)
	_ = f.SetCellValue(summarySheet, "A3", "Generated")
	_ = f.SetCellValue(summarySheet, "B3", formatTime(report.Dashboard.GeneratedAt, loc))

	_ = f.SetCellValue(summarySheet, "A5", "Signal")
	_ = f.SetCellValue(summarySheet, "B5", "Value")
	_ = f.SetCellValue(summarySheet, "C5", "Unit")
	_ = f.SetCellValue(summarySheet, "D5", "Zone")
	_ = f.SetCellValue(summarySheet, "E5", "Observed")
	row := 6
	for _, card := range report.Dashboard.Cards {
		_ = f.SetCellValue(summarySheet, cell("A", row), string(card.Type))
		if card.Available && card.Value != nil {
			_ = f.SetCellValue(summarySheet, cell("B", row), *card.Value)
		}
		_ = f.SetCellValue(summarySheet, cell("C", row), card.Unit)
		_ = f.SetCellValue(summarySheet, cell("D", row), string(card.Zone))
		if card.Available {
			_ = f.SetCellValue(summarySheet, cell("E", row), formatTime(card.At, loc))
		}
		row++
	}
	bp := report.Dashboard.BloodPressure
	_ = f.SetCellValue(summarySheet, cell("A", row), "BP")
	if bp.Available {
		_ = f.SetCellValue(summarySheet, cell("B", row), formatValue(bp.Systolic)+"/"+formatValue(bp.Diastolic))
		_ = f.SetCellValue(summarySheet, cell("E", row), formatTime(bp.At, loc))
	}
	_ = f.SetCellValue(summarySheet, cell("C", row), bp.Unit)
	_ = f.SetCellValue(summarySheet, cell("D", row), string(bp.Zone))
	row += 2

	_ = f.SetCellValue(summarySheet, cell("A", row), "Alerts")
	row++
	if len(report.Dashboard.Alerts) == 0 {
		_ = f.SetCellValue(summarySheet, cell("A", row), "none")
	}
	for _, alert := range report.Dashboard.Alerts {
		_ = f.SetCellValue(summarySheet, cell("A", row), alert.Code)
		_ = f.SetCellValue(summarySheet, cell("B", row), alert.Message)
		row++
	}

	headers := []string{"Timestamp", "Type", "Value", "Unit", "Zone", "ID"}
	for i, header := range headers {
		_ = f.SetCellValue(observationsSheet, cell(string(rune('A'+i)), 1), header)
	}
	for i, o := range report.Observations {
		r := i + 2
		_ = f.SetCellValue(observationsSheet, cell("A", r), formatTime(o.Timestamp, loc))
		_ = f.SetCellValue(observationsSheet, cell("B", r), string(o.Type))
		if o.Value != nil {
			_ = f.SetCellValue(observationsSheet, cell("C", r), *o.Value)
		}
		_ = f.SetCellValue(observationsSheet, cell("D", r), o.Unit)
		_ = f.SetCellValue(observationsSheet, cell("E", r), string(o.Zone))
		_ = f.SetCellValue(observationsSheet, cell("F", r), o.ID)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildObservationsPDF renders a printable report.
func BuildObservationsPDF(report Report, opts Options) ([]byte, error) {
	loc := location(opts)
	pdf := gofpdf.New("P", "mm", "A4", "")
	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if opts.FontPath != "" {
		family = "report"
		pdf.AddUTF8Font(family, "", opts.FontPath)
		pdf.AddUTF8Font(family, "B", opts.FontPath)
		tr = func(s string) string { return s }
	}
	pdf.SetFont(family, "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Vital Signs Report")
	pdf.Ln(10)
	pdf.SetFont(family, "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Patient: %s", report.Dashboard.PatientID)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", formatTime(report.Dashboard.GeneratedAt, loc)))
	pdf.Ln(8)

	pdf.SetFont(family, "B", 10)
	pdf.Cell(0, 6, "Alerts")
	pdf.Ln(6)
	pdf.SetFont(family, "", 10)
	if len(report.Dashboard.Alerts) == 0 {
		pdf.Cell(0, 6, "No active alerts")
		pdf.Ln(5)
	}
	for _, alert := range report.Dashboard.Alerts {
		pdf.Cell(0, 6, tr(fmt.Sprintf("[%s] %s", alert.Code, alert.Message)))
		pdf.Ln(5)
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 10)
	pdf.CellFormat(50, 6, "Timestamp", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Type", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Value", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Zone", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont(family, "", 10)
	for _, o := range report.Observations {
		pdf.CellFormat(50, 6, formatTime(o.Timestamp, loc), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, tr(string(o.Type)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, formatValue(o.Value), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, tr(o.Unit), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, string(o.Zone), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return nil, errors.Join(errors.New("vitals export: pdf"), pdf.Error())
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func location(opts Options) *time.Location {
	if opts.Location != nil {
		return opts.Location
	}
	return time.UTC
}

func cell(col string, row int) string {
	return col + strconv.Itoa(row)
}

func formatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	return t.In(loc).Format(timeLayout)
}

func formatValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
