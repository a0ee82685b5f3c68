// Package report renders a comparison result to an XLSX workbook for
// adjusters and estimators to review outside the API.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ciridae/scopematch/internal/models"
)

const (
	summarySheet = "Summary"
	itemsSheet   = "Line Items"
)

var itemsHeader = []string{
	"Room Group", "Status",
	"Contractor Description", "Qty", "Unit", "Unit Price", "Total",
	"Insurance Description", "Qty", "Unit", "Unit Price", "Total",
	"Differences", "Page",
}

// XLSXWriter writes comparison workbooks.
type XLSXWriter struct{}

// Write renders the result to an XLSX file at path: a summary sheet with
// headline counts and a line item sheet with one row per matched pair or
// unmatched item, grouped the way the comparison grouped rooms.
func (w *XLSXWriter) Write(path string, result *models.ComparisonResult) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", summarySheet)
	if err := writeSummary(f, result); err != nil {
		return err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("create items sheet: %w", err)
	}
	if err := writeItems(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeSummary(f *excelize.File, result *models.ComparisonResult) error {
	s := result.Summarize()
	rows := [][]any{
		{"Contractor items", s.TotalSourceItems},
		{"Insurance items", s.TotalTargetItems},
		{"Matched (agree)", s.MatchedGreen},
		{"Matched (differences)", s.MatchedOrange},
		{"Contractor only", s.UnmatchedSource},
		{"Insurance only", s.UnmatchedTarget},
	}
	for i, row := range rows {
		for j, v := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeItems(f *excelize.File, result *models.ComparisonResult) error {
	greenStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"C6EFCE"}},
	})
	if err != nil {
		return err
	}
	orangeStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFEB9C"}},
	})
	if err != nil {
		return err
	}

	if err := setRow(f, 1, toAny(itemsHeader)); err != nil {
		return err
	}

	rowNum := 2
	for _, room := range result.Rooms {
		group := groupLabel(room)
		for _, pair := range room.Matched {
			row := append(itemCells(group, string(pair.Color), pair.Source),
				itemValues(pair.Target)...)
			row = append(row, diffText(pair.DiffNotes), pair.Source.PageNumber)
			if err := setRow(f, rowNum, row); err != nil {
				return err
			}
			style := greenStyle
			if pair.Color == models.ColorOrange {
				style = orangeStyle
			}
			if err := styleRow(f, rowNum, len(itemsHeader), style); err != nil {
				return err
			}
			rowNum++
		}
		for _, item := range room.UnmatchedSource {
			row := append(itemCells(group, "contractor only", item),
				"", "", "", "", "")
			row = append(row, "", item.PageNumber)
			if err := setRow(f, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
		for _, item := range room.UnmatchedTarget {
			row := []any{group, "insurance only", "", "", "", "", ""}
			row = append(row, itemValues(item)...)
			row = append(row, "", item.PageNumber)
			if err := setRow(f, rowNum, row); err != nil {
				return err
			}
			rowNum++
		}
	}
	return nil
}

func groupLabel(room *models.RoomComparison) string {
	src := join(room.SourceRooms)
	tgt := join(room.TargetRooms)
	if src == tgt {
		return src
	}
	if tgt == "" {
		return src
	}
	if src == "" {
		return tgt
	}
	return src + " / " + tgt
}

func itemCells(group, status string, item *models.LineItem) []any {
	return append([]any{group, status}, itemValues(item)...)
}

func itemValues(item *models.LineItem) []any {
	return []any{
		item.Description,
		models.FormatValue(item.Quantity),
		item.Unit,
		models.FormatValue(item.UnitPrice),
		models.FormatValue(item.Total),
	}
}

func diffText(notes []models.DiffNote) string {
	out := ""
	for i, n := range notes {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s: %s vs %s", n.Field, n.SourceValue, n.TargetValue)
	}
	return out
}

func setRow(f *excelize.File, row int, values []any) error {
	for j, v := range values {
		cell, err := excelize.CoordinatesToCellName(j+1, row)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(itemsSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func styleRow(f *excelize.File, row, width, style int) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(width, row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(itemsSheet, start, end, style)
}

func join(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
