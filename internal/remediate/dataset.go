// Package remediate cleans raw customer and order tables: schema checks,
// deduplication with conflict resolution, per-column standardization, a
// cascading missing-value strategy and outlier flagging. Every stage returns
// an immutable StageDelta that the pipeline folds into a Report.
package remediate

import (
	"errors"
	"fmt"
	"strings"
)

// DatasetType selects the stage sequence and policy table.
type DatasetType string

const (
	Customer DatasetType = "customer"
	Order    DatasetType = "order"
)

var (
	// ErrEmptyDataset is returned when the input has no data rows.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrUnsupportedDatasetType is returned for types other than customer and order.
	ErrUnsupportedDatasetType = errors.New("unsupported dataset type")
)

// ParseDatasetType accepts "customer" or "order" in any case.
func ParseDatasetType(s string) (DatasetType, error) {
	switch DatasetType(strings.ToLower(strings.TrimSpace(s))) {
	case Customer:
		return Customer, nil
	case Order:
		return Order, nil
	}
	return "", fmt.Errorf("%w: %q (use customer or order)", ErrUnsupportedDatasetType, s)
}

// FatalError aborts a run before any output is written.
type FatalError struct {
	Stage string
	Err   error
}

func (e *FatalError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("remediation failed: %v", e.Err)
	}
	return fmt.Sprintf("remediation failed at %s: %v", e.Stage, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Column names after header normalization.
const (
	ColCustomerID  = "customerid"
	ColDOB         = "date of birth"
	ColAge         = "age"
	ColAgeGroup    = "age_group"
	ColGender      = "gender"
	ColCity        = "city"
	ColState       = "state"
	ColOrderID     = "orderid"
	ColItem        = "purchase item"
	ColPurchasedAt = "purchase date"
	ColPurchaseTm  = "purchase time"
	ColPrice       = "item price"
	ColQuantity    = "purchase quantity"
	ColTotal       = "total spend"
	ColPayment     = "transaction method"

	// Unknown is the sentinel for unrecognized categorical values.
	Unknown = "Unknown"
)

// EntityKey returns the identifier column used for entity-level grouping.
func (d DatasetType) EntityKey() string {
	if d == Customer {
		return ColCustomerID
	}
	return ColOrderID
}
