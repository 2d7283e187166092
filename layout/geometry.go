package layout

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrNoColumns       = errors.New("layout: table has no columns")
	ErrInvalidSpace    = errors.New("layout: column space must be in (0, 1]")
	ErrSpaceSum        = errors.New("layout: column spaces must sum to 1")
	ErrColumnTooNarrow = errors.New("layout: column width after margins is not positive")
)

// SpaceTolerance is the accepted deviation of the sum of column spaces from 1.
const SpaceTolerance = 1e-6

// DeriveColumnGeometry computes the absolute Width and Left of every column.
//
// Columns are folded left to right from the page margin. Each column consumes
// space*tableWidth of the row. The first and last columns lose one column
// margin, interior columns lose one on each side, and every column but the
// first is shifted right by one column margin. The cursor always advances by
// the full span, not by the narrowed width.
//
// A single column takes the first-column branch only.
//
// The input slice is left untouched.
func DeriveColumnGeometry(columns []ColumnSpec, tableWidth, margin, columnMargin float64) ([]ColumnSpec, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}
	sum := 0.0
	for i, c := range columns {
		if !(c.Space > 0 && c.Space <= 1) {
			return nil, fmt.Errorf("%w: column %d has space %g", ErrInvalidSpace, i, c.Space)
		}
		sum += c.Space
	}
	if math.Abs(sum-1) > SpaceTolerance {
		return nil, fmt.Errorf("%w: got %g", ErrSpaceSum, sum)
	}

	out := cloneColumns(columns)
	last := len(out) - 1
	left := margin
	for i := range out {
		span := out[i].Space * tableWidth
		switch i {
		case 0:
			out[i].Width = span - columnMargin
			out[i].Left = left
		case last:
			out[i].Width = span - columnMargin
			out[i].Left = left + columnMargin
		default:
			out[i].Width = span - 2*columnMargin
			out[i].Left = left + columnMargin
		}
		if out[i].Width <= 0 {
			return nil, fmt.Errorf("%w: column %d is %g wide", ErrColumnTooNarrow, i, out[i].Width)
		}
		left += span
	}
	return out, nil
}
