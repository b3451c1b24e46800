// Package importer converts an uploaded spreadsheet into a replacement schema.
//
// The sheet layout is fixed: row 0 (from column 1) holds the dynamic field
// labels, column 0 (from row 1) holds the small item names, and cell (0,0)
// is a corner label that is ignored.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/inputsheet/internal/core"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Grid is the cell content of the first sheet of a workbook.
type Grid struct {
	SheetName string
	Rows      [][]string
}

// cell returns the trimmed cell at (row, col), or "" outside the grid.
func (g *Grid) cell(row, col int) string {
	if row < 0 || row >= len(g.Rows) {
		return ""
	}
	r := g.Rows[row]
	if col < 0 || col >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[col])
}

// BuildSchema projects a grid onto a fresh schema. Nothing from any previous
// schema is carried over.
func BuildSchema(g *Grid) core.Schema {
	schema := core.Schema{
		SheetName: g.SheetName,
		ItemsA:    []core.ItemA{},
		ItemsB:    []core.ItemB{{ID: core.DefaultGroupID, Name: core.DefaultGroupName}},
		ItemC:     core.ItemC{ID: core.DefaultLargeID, Name: core.DefaultLargeName},
		ItemsD:    []core.FieldDef{},
	}

	if len(g.Rows) > 0 {
		for col := 1; col < len(g.Rows[0]); col++ {
			label := g.cell(0, col)
			if label == "" {
				continue
			}
			schema.ItemsD = append(schema.ItemsD, core.FieldDef{
				ID:       "D" + strconv.Itoa(col),
				Label:    label,
				Type:     core.FieldText,
				Required: false,
			})
		}
	}

	for row := 1; row < len(g.Rows); row++ {
		name := g.cell(row, 0)
		if name == "" {
			continue
		}
		schema.ItemsA = append(schema.ItemsA, core.ItemA{
			ID:    "A" + strconv.Itoa(row),
			Name:  name,
			Group: core.DefaultGroupID,
		})
	}
	return schema
}

// ReadGrid parses spreadsheet bytes. The format is chosen from filename's
// extension: .xls uses the legacy BIFF reader, .csv the CSV reader, and
// anything else is opened as an OOXML workbook.
func ReadGrid(data []byte, filename string) (*Grid, error) {
	if len(data) == 0 {
		return nil, errors.New("empty file")
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return readXLS(data)
	case ".csv":
		return readCSV(data, filename)
	default:
		return readXLSX(data)
	}
}

func readXLSX(data []byte) (*Grid, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	sheetName := file.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("no worksheet found")
	}

	rows, err := file.GetRows(sheetName)
	if err != nil {
		return nil, err
	}
	return &Grid{SheetName: sheetName, Rows: rows}, nil
}

func readXLS(data []byte) (grid *Grid, err error) {
	// The BIFF reader panics on some truncated files.
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, fmt.Errorf("corrupt xls file: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("no worksheet found")
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no worksheet found")
	}

	grid = &Grid{SheetName: sheet.Name}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			grid.Rows = append(grid.Rows, nil)
			continue
		}
		cells := make([]string, row.LastCol())
		for j := range cells {
			cells[j] = row.Col(j)
		}
		grid.Rows = append(grid.Rows, cells)
	}
	return grid, nil
}

func readCSV(data []byte, filename string) (*Grid, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid csv: %w", err)
		}
		rows = append(rows, rec)
	}

	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return &Grid{SheetName: name, Rows: rows}, nil
}

// Adapter reads uploaded files from disk. It satisfies core.SchemaImporter.
type Adapter struct{}

// Import parses the file at path, using filename (the client's original
// name) to pick the format. Any parse failure is returned as a
// *core.ImportError.
func (Adapter) Import(path, filename string) (core.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return core.Schema{}, &core.ImportError{Err: err}
	}
	grid, err := ReadGrid(data, filename)
	if err != nil {
		return core.Schema{}, &core.ImportError{Err: err}
	}
	return BuildSchema(grid), nil
}
