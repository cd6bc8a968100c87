package services

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/server/depreciation"
	"github.com/dmitrijs2005/gims/internal/server/models"
)

const dateLayout = "2006-01-02"

// Exclusive upper bounds of the NUMERIC(14,2) money columns and the
// NUMERIC(6,2) life column.
const (
	maxMoney     = 1e12
	maxLifeYears = 1e4
)

// AssetInput carries an asset as submitted by a form, a JSON body or an
// import row. Every value is text; empty means unset.
type AssetInput struct {
	Name                string `form:"name" json:"name" validate:"required,max=255"`
	Description         string `form:"description" json:"description"`
	Quantity            string `form:"quantity" json:"quantity"`
	Unit                string `form:"unit" json:"unit" validate:"max=50"`
	Location            string `form:"location" json:"location" validate:"max=255"`
	Department          string `form:"department" json:"department" validate:"max=255"`
	Category            string `form:"category" json:"category" validate:"max=255"`
	SubCategory         string `form:"sub_category" json:"sub_category" validate:"max=255"`
	PurchaseDate        string `form:"purchase_date" json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	DateOfUse           string `form:"date_of_use" json:"date_of_use" validate:"omitempty,datetime=2006-01-02"`
	Status              string `form:"status" json:"status" validate:"omitempty,oneof='In Storage' 'In Use' Maintenance Retired"`
	PurchasePrice       string `form:"purchase_price" json:"purchase_price"`
	ExpectedLifeYears   string `form:"expected_life_years" json:"expected_life_years"`
	DepreciationAnnual  string `form:"depreciation_annual" json:"depreciation_annual"`
	DepreciationMonthly string `form:"depreciation_monthly" json:"depreciation_monthly"`
	LastCalibratedDate  string `form:"last_calibrated_date" json:"last_calibrated_date" validate:"omitempty,datetime=2006-01-02"`
	NextCalibrationDate string `form:"next_calibration_date" json:"next_calibration_date" validate:"omitempty,datetime=2006-01-02"`
	WarrantyExpiryDate  string `form:"warranty_expiry_date" json:"warranty_expiry_date" validate:"omitempty,datetime=2006-01-02"`
}

func (in *AssetInput) trim() {
	for _, p := range []*string{&in.Name, &in.Description, &in.Quantity, &in.Unit, &in.Location,
		&in.Department, &in.Category, &in.SubCategory, &in.PurchaseDate, &in.DateOfUse, &in.Status,
		&in.PurchasePrice, &in.ExpectedLifeYears, &in.DepreciationAnnual, &in.DepreciationMonthly,
		&in.LastCalibratedDate, &in.NextCalibrationDate, &in.WarrantyExpiryDate} {
		*p = strings.TrimSpace(*p)
	}
}

// ToAsset validates the input, applies defaults (quantity 1, status In
// Storage) and fills depreciation from price and expected life.
func (in AssetInput) ToAsset() (*models.Asset, error) {
	in.trim()

	verr := &common.ValidationError{}
	if err := validateStruct(&in); err != nil {
		ve, ok := err.(*common.ValidationError)
		if !ok {
			return nil, err
		}
		verr = ve
	}

	a := &models.Asset{
		Name:        in.Name,
		Description: in.Description,
		Unit:        in.Unit,
		Location:    in.Location,
		Department:  in.Department,
		Category:    in.Category,
		SubCategory: in.SubCategory,
		Status:      models.AssetStatus(in.Status),
		Quantity:    1,
	}
	if a.Status == "" {
		a.Status = models.StatusInStorage
	}

	if in.Quantity != "" {
		q, err := strconv.Atoi(in.Quantity)
		switch {
		case err != nil:
			verr.Add("quantity", "must be a whole number")
		case q < 0:
			verr.Add("quantity", "must not be negative")
		default:
			a.Quantity = q
		}
	}

	a.PurchasePrice = parseMoney(verr, "purchase_price", in.PurchasePrice, maxMoney)
	a.ExpectedLifeYears = parseMoney(verr, "expected_life_years", in.ExpectedLifeYears, maxLifeYears)
	a.DepreciationAnnual = parseMoney(verr, "depreciation_annual", in.DepreciationAnnual, maxMoney)
	a.DepreciationMonthly = parseMoney(verr, "depreciation_monthly", in.DepreciationMonthly, maxMoney)

	// Format errors were reported by the validator already.
	a.PurchaseDate = parseDate(in.PurchaseDate)
	a.DateOfUse = parseDate(in.DateOfUse)
	a.LastCalibratedDate = parseDate(in.LastCalibratedDate)
	a.NextCalibrationDate = parseDate(in.NextCalibrationDate)
	a.WarrantyExpiryDate = parseDate(in.WarrantyExpiryDate)

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	depreciation.Fill(a)

	// A very short life can push the derived schedule past the column.
	if a.DepreciationAnnual != nil && *a.DepreciationAnnual >= maxMoney {
		verr.Add("depreciation_annual", tooLarge(maxMoney))
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return a, nil
}

func tooLarge(limit float64) string {
	return "must be less than " + strconv.FormatFloat(limit, 'f', -1, 64)
}

// parseMoney accepts a finite, non-negative number below limit. Thousands
// separators are ignored.
func parseMoney(verr *common.ValidationError, field, v string, limit float64) *float64 {
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", ""), 64)
	switch {
	case errors.Is(err, strconv.ErrRange):
		// Out of float64 range; the sign decides the message below.
	case err != nil, math.IsNaN(f), math.IsInf(f, 0):
		verr.Add(field, "must be a number")
		return nil
	}
	if f < 0 {
		verr.Add(field, "must not be negative")
		return nil
	}
	if f >= limit {
		verr.Add(field, tooLarge(limit))
		return nil
	}
	return &f
}

func parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
