package render

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/layout"
)

// Block is a rendered group of rows. Cursor is the y coordinate right below the last row.
type Block struct {
	Rows   [][]annotation.Annotation // per row, cells then rule
	Cursor float64
}

// Annotations flattens the block in row order.
func (b Block) Annotations() []annotation.Annotation {
	var out []annotation.Annotation
	for _, r := range b.Rows {
		out = append(out, r...)
	}
	return out
}

// Table stacks rows from start without gaps, one rowHeight apart.
// The returned cursor is start + rowHeight*len(rows).
func Table(l layout.Layout, rows [][]any, start float64, opts ...RowOption) (Block, error) {
	if err := l.Ready(); err != nil {
		return Block{}, err
	}
	b := Block{Rows: make([][]annotation.Annotation, 0, len(rows)), Cursor: start}
	for i, contents := range rows {
		top := start + l.Table.RowHeight*float64(i)
		row, err := Row(l, contents, top, opts...)
		if err != nil {
			return Block{}, err
		}
		b.Rows = append(b.Rows, row)
	}
	b.Cursor = start + l.Table.RowHeight*float64(len(rows))
	return b, nil
}

// Items renders the invoice item rows: name, quantity, unit cost, line total.
func Items(l layout.Layout, items []invoice.Item, start float64) (Block, error) {
	if err := invoice.ValidateItems(items); err != nil {
		return Block{}, err
	}
	rows := make([][]any, len(items))
	for i, item := range items {
		rows[i] = []any{item.Name, Quantity(item.Quantity), Money(item.UnitCost), Money(item.LineTotal())}
	}
	return Table(l, rows, start)
}

// moneyPrec holds any float64 times 100 plus one half exactly
const moneyPrec = 2200

// Money formats an amount with two decimals, e.g. "246.00".
// Exact ties on the binary value round away from zero: 0.125 is "0.13",
// while 1.005 (stored as 1.00499...) is "1.00".
func Money(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	x := new(big.Float).SetPrec(moneyPrec).SetFloat64(math.Abs(v))
	x.Mul(x, big.NewFloat(100))
	x.Add(x, big.NewFloat(0.5))
	cents, _ := x.Int(nil)
	digits := cents.String()
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	out := digits[:len(digits)-2] + "." + digits[len(digits)-2:]
	if v < 0 {
		out = "-" + out
	}
	return out
}

// Quantity formats a quantity with as few digits as needed, e.g. "2" or "1.5"
func Quantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
