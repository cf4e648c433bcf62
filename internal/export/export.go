// Package export renders calendar weeks and monthly recipes as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"sessionsnap/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	weekSheet   = "Week"
	recipeSheet = "Recipe"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Names resolves display names for booked cells. *models.Snapshot satisfies it.
type Names interface {
	ClientName(id string) string
	ProjectName(id string) string
}

var statusFill = map[models.SlotStatus]string{
	models.SlotAvailable: "#C6EFCE",
	models.SlotBuffer:    "#FFEB9C",
	models.SlotBooked:    "#FFC7CE",
}

// WeekWorkbook writes one column per day and one row per slot hour.
func WeekWorkbook(grid []models.DaySlots, names Names) ([]byte, error) {
	if len(grid) == 0 {
		return nil, fmt.Errorf("empty week grid")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", weekSheet); err != nil {
		return nil, fmt.Errorf("error renaming sheet: %w", err)
	}

	first := grid[0].Date
	last := grid[len(grid)-1].Date
	_ = f.SetCellValue(weekSheet, "A1", fmt.Sprintf("Week: %s - %s", first.Format("02/01/2006"), last.Format("02/01/2006")))

	header, err := headerStyle(f)
	if err != nil {
		return nil, err
	}
	styles := make(map[models.SlotStatus]int, len(statusFill))
	for status, color := range statusFill {
		id, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "top", WrapText: true},
		})
		if err != nil {
			return nil, fmt.Errorf("error creating style: %w", err)
		}
		styles[status] = id
	}

	// hour labels come from the first day; every day has the same slots
	for row, slot := range grid[0].Slots {
		cell, _ := excelize.CoordinatesToCellName(1, row+3)
		_ = f.SetCellValue(weekSheet, cell, slot.Time.Format("15:04"))
		_ = f.SetCellStyle(weekSheet, cell, cell, header)
	}

	for i, day := range grid {
		col := i + 2
		cell, _ := excelize.CoordinatesToCellName(col, 2)
		_ = f.SetCellValue(weekSheet, cell, day.Date.Format("Mon 02/01"))
		_ = f.SetCellStyle(weekSheet, cell, cell, header)

		for row, slot := range day.Slots {
			cell, _ := excelize.CoordinatesToCellName(col, row+3)
			_ = f.SetCellValue(weekSheet, cell, slotText(slot, names))
			_ = f.SetCellStyle(weekSheet, cell, cell, styles[slot.Status])
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(grid) + 1)
	_ = f.MergeCell(weekSheet, "A1", lastCol+"1")
	_ = f.SetColWidth(weekSheet, "A", "A", 10)
	_ = f.SetColWidth(weekSheet, "B", lastCol, 24)

	return write(f)
}

func slotText(slot models.TimeSlot, names Names) string {
	if slot.Status != models.SlotBooked || slot.Booking == nil {
		return string(slot.Status)
	}
	if names == nil {
		return string(slot.Status)
	}
	return fmt.Sprintf("%s\n%s", names.ClientName(slot.Booking.ClientID), names.ProjectName(slot.Booking.ProjectID))
}

// RecipeWorkbook writes one row per client, sorted by name, followed by a total row.
func RecipeWorkbook(month time.Time, recipe models.MonthlyRecipe, currency string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recipeSheet); err != nil {
		return nil, fmt.Errorf("error renaming sheet: %w", err)
	}

	header, err := headerStyle(f)
	if err != nil {
		return nil, err
	}

	_ = f.SetCellValue(recipeSheet, "A1", "Month: "+month.Format("01/2006"))
	headers := []string{"Client", "Hours", "Price per hour (" + currency + ")", "Total (" + currency + ")"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(recipeSheet, cell, h)
		_ = f.SetCellStyle(recipeSheet, cell, cell, header)
	}

	names := make([]string, 0, len(recipe))
	for name := range recipe {
		names = append(names, name)
	}
	sort.Strings(names)

	var hours, amount float64
	row := 3
	for _, name := range names {
		m := recipe[name]
		_ = f.SetSheetRow(recipeSheet, fmt.Sprintf("A%d", row), &[]any{name, m.TotalHours, m.PricePerHour, m.TotalAmount})
		hours += m.TotalHours
		amount += m.TotalAmount
		row++
	}
	_ = f.SetSheetRow(recipeSheet, fmt.Sprintf("A%d", row), &[]any{"Total", hours, nil, amount})
	_ = f.SetCellStyle(recipeSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("D%d", row), header)

	_ = f.SetColWidth(recipeSheet, "A", "A", 30)
	_ = f.SetColWidth(recipeSheet, "B", "D", 18)

	return write(f)
}

func headerStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return 0, fmt.Errorf("error creating header style: %w", err)
	}
	return style, nil
}

func write(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Save stores data under dir, creating it when needed, and returns the file path.
func Save(dir, fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

func WeekFileName(start time.Time) string {
	return fmt.Sprintf("week_%s.xlsx", start.Format("2006-01-02"))
}

func RecipeFileName(month time.Time) string {
	return fmt.Sprintf("recipe_%s.xlsx", month.Format("2006-01"))
}
