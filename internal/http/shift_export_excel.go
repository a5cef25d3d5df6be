package httpapi

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"hospital-ops/internal/domain"
)

// ShiftRosterHeader export column order for the roster workbook.
var ShiftRosterHeader = []string{
	"Shift ID",
	"Staff ID",
	"Shift Date",
	"Scheduled Start",
	"Scheduled End",
	"Actual Start",
	"Actual End",
	"Status",
	"Missed",
	"Missed Minutes",
	"On-Call Minutes",
	"Breaks",
}

// GenerateShiftRosterExport renders the shift listing as an xlsx workbook.
func GenerateShiftRosterExport(shifts []*domain.Shift) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteTo needs the file to be open

	sheetName := "Shift Roster"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range ShiftRosterHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	columnWidths := []float64{38, 38, 14, 20, 20, 20, 20, 12, 8, 14, 14, 28}
	for i := range ShiftRosterHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for rowIdx, shift := range shifts {
		row := rowIdx + 2
		values := []any{
			shift.ShiftID,
			shift.UserID,
			shift.ShiftDate.Format("2006-01-02"),
			formatRosterTime(&shift.ScheduledStart),
			formatRosterTime(&shift.ScheduledEnd),
			formatRosterTime(shift.ActualStart),
			formatRosterTime(shift.ActualEnd),
			shift.Status,
			formatRosterBool(shift.IsMissed),
			shift.MissedMinutes,
			derefInt(shift.OnCallMinutes),
			formatRosterBreaks(shift.Breaks),
		}
		for colIdx, value := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, colIdx+1, err)
			}
		}
	}

	// Freeze the header row
	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	// Note: File must remain open during Write operation
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}

func formatRosterTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatRosterBool(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

func formatRosterBreaks(breaks []domain.BreakInterval) string {
	if len(breaks) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for i, b := range breaks {
		if i > 0 {
			buf.WriteString("; ")
		}
		buf.WriteString(b.Type)
		buf.WriteString(" ")
		buf.WriteString(b.StartTime.Format("15:04"))
		if b.EndTime != nil {
			buf.WriteString("-")
			buf.WriteString(b.EndTime.Format("15:04"))
		}
	}
	return buf.String()
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
