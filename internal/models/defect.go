package models

import "github.com/shopspring/decimal"

// Defect is a disagreement between the stored price of a product and the
// price the catalog currently reports for it.
type Defect struct {
	ID          int             `json:"id"`
	Description string          `json:"desc"`
	Expected    decimal.Decimal `json:"expected"` // live catalog value
	Actual      decimal.Decimal `json:"actual"`   // locally stored value
}
