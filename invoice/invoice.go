// Package invoice is the invoice input: the document header and its line items.
package invoice

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

var (
	ErrMissingNumber  = errors.New("invoice: number is required")
	ErrNegativeAmount = errors.New("invoice: negative amount")
	ErrNotFound       = errors.New("invoice: not found")
)

type Item struct {
	Name     string  `json:"name"`
	UnitCost float64 `json:"unitCost"`
	Quantity float64 `json:"quantity"`
}

func (i Item) LineTotal() float64 {
	return i.UnitCost * i.Quantity
}

func (i Item) Validate() error {
	if i.UnitCost < 0 || math.IsNaN(i.UnitCost) {
		return fmt.Errorf("%w: unit cost %g of %q", ErrNegativeAmount, i.UnitCost, i.Name)
	}
	if i.Quantity < 0 || math.IsNaN(i.Quantity) {
		return fmt.Errorf("%w: quantity %g of %q", ErrNegativeAmount, i.Quantity, i.Name)
	}
	return nil
}

// Invoice - Number doubles as the name of the invoice's layer
type Invoice struct {
	Number   string `json:"number"`
	Customer string `json:"customer"`
	Items    []Item `json:"items"`
}

func (inv *Invoice) Validate() error {
	if inv.Number == "" {
		return ErrMissingNumber
	}
	return ValidateItems(inv.Items)
}

func ValidateItems(items []Item) error {
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", idx, err)
		}
	}
	return nil
}

type Totals struct {
	Subtotal float64
	VAT      float64
	Total    float64
}

// ComputeTotals sums the line totals and applies vatRate to the subtotal.
func ComputeTotals(items []Item, vatRate float64) (Totals, error) {
	if vatRate < 0 {
		return Totals{}, fmt.Errorf("%w: vat rate %g", ErrNegativeAmount, vatRate)
	}
	if err := ValidateItems(items); err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, item := range items {
		t.Subtotal += item.LineTotal()
	}
	t.VAT = t.Subtotal * vatRate
	t.Total = t.Subtotal + t.VAT
	return t, nil
}

// LoadFile reads an invoice JSON file and validates it.
func LoadFile(path string) (*Invoice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var inv Invoice
	if err = json.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err = inv.Validate(); err != nil {
		return nil, err
	}
	return &inv, nil
}
