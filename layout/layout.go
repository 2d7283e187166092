// Package layout holds the page and table geometry for one document build.
//
// A Layout is a value. Setting page dimensions and deriving column geometry
// return new values and never touch the receiver, so one declared Layout can
// back any number of builds.
package layout

import (
	"errors"
	"fmt"
)

var (
	ErrPageDimensionsNotSet   = errors.New("layout: page dimensions not set")
	ErrPageDimensionsConflict = errors.New("layout: page dimensions already set to different values")
	ErrInvalidPageDimensions  = errors.New("layout: page dimensions must be positive")
	ErrNotDerived             = errors.New("layout: column geometry not derived")
)

// Style is a set of annotation content overrides, e.g. {"horizontalAlign": "right"}
type Style map[string]any

type ColumnSpec struct {
	Space float64 `json:"space"`           // fraction of the table width, 0 < Space <= 1
	Style Style   `json:"style,omitempty"` // per-column overrides
	Width float64 `json:"-"`               // derived
	Left  float64 `json:"-"`               // derived
}

type TableSpec struct {
	ColumnMargin float64      `json:"column_margin"`
	RowHeight    float64      `json:"row_height"`
	Columns      []ColumnSpec `json:"columns"`
	Width        float64      `json:"-"` // derived: PageWidth - 2*Margin
}

type Layout struct {
	Margin     float64   `json:"margin"`
	PageWidth  float64   `json:"-"`
	PageHeight float64   `json:"-"`
	Table      TableSpec `json:"table"`

	derived bool
}

// MinDefaultPageWidth is 2*30 margin + 400, where 0.1 of the table equals two column margins
const MinDefaultPageWidth = 460

// Default returns the invoice layout: 30pt page margin and a four column
// item table (item, quantity, unit cost, line total).
// Its 0.1 quantity column needs pages wider than MinDefaultPageWidth;
// narrower pages such as A6 (298pt) fail Derive with ErrColumnTooNarrow.
func Default() Layout {
	return Layout{
		Margin: 30,
		Table: TableSpec{
			ColumnMargin: 20,
			RowHeight:    35,
			Columns: []ColumnSpec{
				{Space: 0.4},
				{Space: 0.1},
				{Space: 0.2, Style: Style{"horizontalAlign": "right"}},
				{Space: 0.3},
			},
		},
	}
}

func (l Layout) HasPageDimensions() bool {
	return l.PageWidth > 0 && l.PageHeight > 0
}

// WithPageDimensions returns a copy of l carrying the page size.
// Page dimensions are set once per build: repeating the same values is a no-op,
// different values are rejected.
func (l Layout) WithPageDimensions(width, height float64) (Layout, error) {
	if width <= 0 || height <= 0 {
		return l, fmt.Errorf("%w: %gx%g", ErrInvalidPageDimensions, width, height)
	}
	if l.HasPageDimensions() {
		if l.PageWidth == width && l.PageHeight == height {
			return l, nil
		}
		return l, fmt.Errorf("%w: have %gx%g, got %gx%g",
			ErrPageDimensionsConflict, l.PageWidth, l.PageHeight, width, height)
	}
	l.PageWidth = width
	l.PageHeight = height
	l.Table.Columns = cloneColumns(l.Table.Columns)
	return l, nil
}

// Derive returns a copy of l with the table width and the absolute column
// geometry computed from the page width.
func (l Layout) Derive() (Layout, error) {
	if !l.HasPageDimensions() {
		return l, ErrPageDimensionsNotSet
	}
	tableWidth := l.PageWidth - 2*l.Margin
	columns, err := DeriveColumnGeometry(l.Table.Columns, tableWidth, l.Margin, l.Table.ColumnMargin)
	if err != nil {
		return l, err
	}
	l.Table.Width = tableWidth
	l.Table.Columns = columns
	l.derived = true
	return l, nil
}

// Derived reports whether the column geometry has been computed.
func (l Layout) Derived() bool {
	return l.derived
}

// Ready is the precondition for rendering rows.
func (l Layout) Ready() error {
	if !l.HasPageDimensions() {
		return ErrPageDimensionsNotSet
	}
	if !l.derived {
		return ErrNotDerived
	}
	return nil
}

// Column returns the derived geometry of column i.
func (l Layout) Column(i int) (ColumnSpec, bool) {
	if i < 0 || i >= len(l.Table.Columns) {
		return ColumnSpec{}, false
	}
	return l.Table.Columns[i], true
}

func cloneColumns(columns []ColumnSpec) []ColumnSpec {
	out := make([]ColumnSpec, len(columns))
	for i, c := range columns {
		out[i] = c
		if c.Style != nil {
			out[i].Style = make(Style, len(c.Style))
			for k, v := range c.Style {
				out[i].Style[k] = v
			}
		}
	}
	return out
}
