package models

import "time"

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

const (
	StatusInStorage   AssetStatus = "In Storage"
	StatusInUse       AssetStatus = "In Use"
	StatusMaintenance AssetStatus = "Maintenance"
	StatusRetired     AssetStatus = "Retired"
)

// AssetStatuses lists the valid statuses in display order.
var AssetStatuses = []AssetStatus{StatusInStorage, StatusInUse, StatusMaintenance, StatusRetired}

// Valid reports whether s is a known status.
func (s AssetStatus) Valid() bool {
	for _, v := range AssetStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Asset is an inventory record. Optional values are pointers so "unset" and
// zero stay distinguishable in storage and JSON.
type Asset struct {
	ID                  int64       `json:"asset_id"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Quantity            int         `json:"quantity"`
	Unit                string      `json:"unit"`
	Location            string      `json:"location"`
	Department          string      `json:"department"`
	Category            string      `json:"category"`
	SubCategory         string      `json:"sub_category"`
	PurchaseDate        *time.Time  `json:"purchase_date"`
	DateOfUse           *time.Time  `json:"date_of_use"`
	Status              AssetStatus `json:"status"`
	PurchasePrice       *float64    `json:"purchase_price"`
	ExpectedLifeYears   *float64    `json:"expected_life_years"`
	DepreciationAnnual  *float64    `json:"depreciation_annual"`
	DepreciationMonthly *float64    `json:"depreciation_monthly"`
	LastCalibratedDate  *time.Time  `json:"last_calibrated_date"`
	NextCalibrationDate *time.Time  `json:"next_calibration_date"`
	WarrantyExpiryDate  *time.Time  `json:"warranty_expiry_date"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`

	AttachmentCount int           `json:"attachment_count"`
	CurrentValue    float64       `json:"current_value"`
	Attachments     []*Attachment `json:"attachments,omitempty"`
}

// Attachment is a file stored in object storage and linked to an asset.
type Attachment struct {
	ID         int64     `json:"id"`
	AssetID    int64     `json:"asset_id"`
	StorageKey string    `json:"-"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	Size       int64     `json:"size"`
	URL        string    `json:"file_url,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AssetSummary aggregates the inventory for the dashboard.
type AssetSummary struct {
	Total             int                 `json:"total"`
	ByStatus          map[AssetStatus]int `json:"by_status"`
	TotalPurchaseCost float64             `json:"total_purchase_cost"`
	TotalCurrentValue float64             `json:"total_current_value"`
}
