// Package depreciation computes straight-line depreciation of assets.
package depreciation

import (
	"math"
	"time"

	"github.com/dmitrijs2005/gims/internal/server/models"
)

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Schedule returns the annual and monthly depreciation of an asset bought
// for price and expected to last lifeYears, rounded to cents. ok is false
// when lifeYears is not positive or price is negative.
func Schedule(price, lifeYears float64) (annual, monthly float64, ok bool) {
	if lifeYears <= 0 || price < 0 {
		return 0, 0, false
	}
	annual = price / lifeYears
	return Round2(annual), Round2(annual / 12), true
}

// MonthsInUse counts whole calendar months from start to now. A month only
// counts once its day-of-month is reached. Never negative.
func MonthsInUse(start, now time.Time) int {
	months := (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	if now.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// CurrentValue is the book value of a at now: zero without a purchase price,
// the full price until monthly depreciation and a date of use are known,
// otherwise price minus accumulated depreciation, floored at zero.
func CurrentValue(a *models.Asset, now time.Time) float64 {
	if a.PurchasePrice == nil {
		return 0
	}
	price := *a.PurchasePrice
	if a.DateOfUse == nil || a.DepreciationMonthly == nil {
		return Round2(price)
	}

	value := price - *a.DepreciationMonthly*float64(MonthsInUse(*a.DateOfUse, now))
	if value < 0 {
		return 0
	}
	return Round2(value)
}

// Fill sets DepreciationAnnual and DepreciationMonthly from price and
// expected life when both are present and depreciation was not supplied.
func Fill(a *models.Asset) {
	if a.PurchasePrice == nil || a.ExpectedLifeYears == nil {
		return
	}
	if a.DepreciationAnnual != nil && a.DepreciationMonthly != nil {
		return
	}
	annual, monthly, ok := Schedule(*a.PurchasePrice, *a.ExpectedLifeYears)
	if !ok {
		return
	}
	if a.DepreciationAnnual == nil {
		a.DepreciationAnnual = &annual
	}
	if a.DepreciationMonthly == nil {
		a.DepreciationMonthly = &monthly
	}
}
