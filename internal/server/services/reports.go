package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/logging"
	"github.com/dmitrijs2005/gims/internal/server/depreciation"
	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/dmitrijs2005/gims/internal/server/repositories/repomanager"
	"github.com/xuri/excelize/v2"
)

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypeCSV  = "text/csv"

	reportSheet = "Assets"
)

type reportColumn struct {
	Header string
	Width  float64
}

var exportColumns = []reportColumn{
	{"Serial Number", 15},
	{"Asset Name", 25},
	{"Description", 30},
	{"Category", 15},
	{"Sub Category", 15},
	{"Quantity", 10},
	{"Unit", 10},
	{"Location", 15},
	{"Department", 15},
	{"Status", 12},
	{"Purchase Date", 12},
	{"Purchase Price", 15},
	{"Date of Use", 12},
	{"Expected Life (Years)", 18},
	{"Depreciation (Annual)", 18},
	{"Depreciation (Monthly)", 18},
	{"Current Value", 15},
	{"Last Calibrated Date", 18},
	{"Next Calibration Date", 18},
	{"Warranty Expiry Date", 18},
}

// importFields maps normalized header names to the input field they fill.
// Serial Number and Current Value are computed and ignored on import.
var importFields = map[string]func(*AssetInput) *string{
	"assetname":           func(in *AssetInput) *string { return &in.Name },
	"name":                func(in *AssetInput) *string { return &in.Name },
	"description":         func(in *AssetInput) *string { return &in.Description },
	"category":            func(in *AssetInput) *string { return &in.Category },
	"subcategory":         func(in *AssetInput) *string { return &in.SubCategory },
	"quantity":            func(in *AssetInput) *string { return &in.Quantity },
	"qty":                 func(in *AssetInput) *string { return &in.Quantity },
	"unit":                func(in *AssetInput) *string { return &in.Unit },
	"location":            func(in *AssetInput) *string { return &in.Location },
	"department":          func(in *AssetInput) *string { return &in.Department },
	"status":              func(in *AssetInput) *string { return &in.Status },
	"purchasedate":        func(in *AssetInput) *string { return &in.PurchaseDate },
	"purchaseprice":       func(in *AssetInput) *string { return &in.PurchasePrice },
	"price":               func(in *AssetInput) *string { return &in.PurchasePrice },
	"dateofuse":           func(in *AssetInput) *string { return &in.DateOfUse },
	"expectedlifeyears":   func(in *AssetInput) *string { return &in.ExpectedLifeYears },
	"expectedlife":        func(in *AssetInput) *string { return &in.ExpectedLifeYears },
	"depreciationannual":  func(in *AssetInput) *string { return &in.DepreciationAnnual },
	"depreciationmonthly": func(in *AssetInput) *string { return &in.DepreciationMonthly },
	"lastcalibrateddate":  func(in *AssetInput) *string { return &in.LastCalibratedDate },
	"nextcalibrationdate": func(in *AssetInput) *string { return &in.NextCalibrationDate },
	"warrantyexpirydate":  func(in *AssetInput) *string { return &in.WarrantyExpiryDate },
}

var dateFields = map[string]bool{
	"purchasedate": true, "dateofuse": true, "lastcalibrateddate": true,
	"nextcalibrationdate": true, "warrantyexpirydate": true,
}

// Layouts accepted for dates in imported files besides Excel serial numbers.
var importDateLayouts = []string{
	dateLayout, "2006/01/02", "01/02/2006", "1/2/2006", "01-02-06", "1/2/06",
	"02-Jan-2006", "2 Jan 2006", "Jan 2, 2006", time.RFC3339,
}

// File is a generated download.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ImportResult reports a partially successful import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Total    int      `json:"total"`
	Errors   []string `json:"errors"`
}

// ReportService exports, imports and summarizes the inventory.
type ReportService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	clock       clock.Clock
	logger      logging.Logger
}

func NewReportService(db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock, l logging.Logger) *ReportService {
	return &ReportService{
		db:          db,
		repomanager: m,
		clock:       clk,
		logger:      l.With("module", "reports"),
	}
}

func (s *ReportService) internal(ctx context.Context, msg string, err error) error {
	s.logger.Error(ctx, msg, "error", err)
	return common.ErrorInternal
}

func exportRow(a *models.Asset, now time.Time) []string {
	return []string{
		strconv.FormatInt(a.ID, 10),
		a.Name,
		a.Description,
		a.Category,
		a.SubCategory,
		strconv.Itoa(a.Quantity),
		a.Unit,
		a.Location,
		a.Department,
		string(a.Status),
		formatDate(a.PurchaseDate),
		formatFloat(a.PurchasePrice),
		formatDate(a.DateOfUse),
		formatFloat(a.ExpectedLifeYears),
		formatFloat(a.DepreciationAnnual),
		formatFloat(a.DepreciationMonthly),
		strconv.FormatFloat(depreciation.CurrentValue(a, now), 'f', 2, 64),
		formatDate(a.LastCalibratedDate),
		formatDate(a.NextCalibrationDate),
		formatDate(a.WarrantyExpiryDate),
	}
}

// Export renders all assets as xlsx (default) or csv. It returns
// common.ErrorNotFound when there is nothing to export.
func (s *ReportService) Export(ctx context.Context, format string) (*File, error) {
	if format == "" {
		format = FormatXLSX
	}
	if format != FormatXLSX && format != FormatCSV {
		return nil, common.NewValidationError("format", "must be one of: xlsx csv")
	}

	list, err := s.repomanager.Assets(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "asset list failed", err)
	}
	if len(list) == 0 {
		return nil, common.ErrorNotFound
	}

	// List is newest first; reports read oldest first.
	now := s.clock.Now()
	rows := make([][]string, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		rows = append(rows, exportRow(list[i], now))
	}

	headers := make([]string, len(exportColumns))
	for i, c := range exportColumns {
		headers[i] = c.Header
	}

	name := "Asset_Report_" + now.UTC().Format("2006-01-02T15-04-05")

	var file *File
	if format == FormatCSV {
		file, err = writeCSV(name, headers, rows)
	} else {
		file, err = writeXLSX(name, exportColumns, rows)
	}
	if err != nil {
		return nil, s.internal(ctx, "export render failed", err)
	}

	s.logger.Info(ctx, "assets exported", "format", format, "count", len(rows))
	return file, nil
}

func writeCSV(name string, headers []string, rows [][]string) (*File, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return &File{Name: name + ".csv", ContentType: ContentTypeCSV, Data: buf.Bytes()}, nil
}

func writeXLSX(name string, columns []reportColumn, rows [][]string) (*File, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c.Header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(reportSheet, col, col, c.Width); err != nil {
			return nil, err
		}
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(reportSheet, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(r))
		for j, v := range r {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(reportSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return &File{Name: name + ".xlsx", ContentType: ContentTypeXLSX, Data: buf.Bytes()}, nil
}

// cellValue stores numbers as numeric cells so spreadsheets can sum them.
func cellValue(v string) any {
	if f, err := strconv.ParseFloat(v, 64); err == nil && v != "" {
		return f
	}
	return v
}

// ImportTemplate is an xlsx with the importable columns and one example row.
func (s *ReportService) ImportTemplate(ctx context.Context) (*File, error) {
	var columns []reportColumn
	for _, c := range exportColumns {
		if c.Header == "Serial Number" || c.Header == "Current Value" {
			continue
		}
		columns = append(columns, c)
	}

	example := []string{
		"Digital Multimeter", "Bench multimeter", "Equipment", "Test & Measurement",
		"1", "pcs", "Lab 1", "Engineering", string(models.StatusInUse),
		"2024-01-15", "1200", "2024-02-01", "5", "", "",
		"2024-06-01", "2025-06-01", "2026-01-15",
	}

	file, err := writeXLSX("Asset_Import_Template", columns, [][]string{example})
	if err != nil {
		return nil, s.internal(ctx, "template render failed", err)
	}
	return file, nil
}

// Import reads an .xlsx or .csv file and inserts every valid row. Invalid
// rows are reported as "Row N: ..." where N is the spreadsheet row number.
func (s *ReportService) Import(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	var (
		records [][]string
		err     error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		records, err = readXLSX(r)
	case ".csv":
		cr := csv.NewReader(r)
		cr.FieldsPerRecord = -1
		records, err = cr.ReadAll()
	default:
		return nil, common.NewValidationError("file", "must be an .xlsx or .csv file")
	}
	if err != nil {
		return nil, common.NewValidationError("file", "could not be read: "+err.Error())
	}
	if len(records) < 2 {
		return nil, common.NewValidationError("file", "contains no data rows")
	}

	keys := make([]string, len(records[0]))
	known := 0
	for i, h := range records[0] {
		keys[i] = normalizeHeader(h)
		if _, ok := importFields[keys[i]]; ok {
			known++
		}
	}
	if known == 0 {
		return nil, common.NewValidationError("file", "has no recognized column headers")
	}

	result := &ImportResult{Errors: []string{}}
	repo := s.repomanager.Assets(s.db)

	for i, rec := range records[1:] {
		if blankRecord(rec) {
			continue
		}
		rowNum := i + 2
		result.Total++

		asset, err := rowInput(keys, rec).ToAsset()
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", rowNum, rowMessage(err)))
			continue
		}

		if _, err := repo.Create(ctx, asset); err != nil {
			s.logger.Error(ctx, "import insert failed", "row", rowNum, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: could not be saved", rowNum))
			continue
		}
		result.Imported++
	}

	s.logger.Info(ctx, "assets imported", "file", filename, "imported", result.Imported, "total", result.Total)
	return result, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func rowInput(keys []string, rec []string) AssetInput {
	var in AssetInput
	for i, key := range keys {
		if i >= len(rec) {
			break
		}
		field, ok := importFields[key]
		if !ok {
			continue
		}
		v := strings.TrimSpace(rec[i])
		switch {
		case dateFields[key]:
			v = normalizeDate(v)
		case key == "status":
			v = normalizeStatus(v)
		}
		*field(&in) = v
	}
	return in
}

// normalizeDate converts the date notations found in spreadsheets to
// YYYY-MM-DD. Unrecognized values are returned unchanged for validation to
// reject.
func normalizeDate(v string) string {
	if v == "" {
		return v
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format(dateLayout)
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format(dateLayout)
		}
	}
	return v
}

func normalizeStatus(v string) string {
	for _, st := range models.AssetStatuses {
		if strings.EqualFold(v, string(st)) {
			return string(st)
		}
	}
	return v
}

func rowMessage(err error) string {
	ve, ok := err.(*common.ValidationError)
	if !ok {
		return err.Error()
	}
	parts := make([]string, len(ve.Fields))
	for i, f := range ve.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Summary aggregates counts per status and the purchase and current value
// of the inventory.
func (s *ReportService) Summary(ctx context.Context) (*models.AssetSummary, error) {
	list, err := s.repomanager.Assets(s.db).List(ctx)
	if err != nil {
		return nil, s.internal(ctx, "asset list failed", err)
	}

	now := s.clock.Now()
	sum := &models.AssetSummary{ByStatus: make(map[models.AssetStatus]int, len(models.AssetStatuses))}
	for _, st := range models.AssetStatuses {
		sum.ByStatus[st] = 0
	}

	for _, a := range list {
		sum.Total++
		sum.ByStatus[a.Status]++
		if a.PurchasePrice != nil {
			sum.TotalPurchaseCost += *a.PurchasePrice
		}
		sum.TotalCurrentValue += depreciation.CurrentValue(a, now)
	}
	sum.TotalPurchaseCost = depreciation.Round2(sum.TotalPurchaseCost)
	sum.TotalCurrentValue = depreciation.Round2(sum.TotalCurrentValue)

	return sum, nil
}
