// Package render lays out table rows as annotation payloads.
//
// Rendering only computes positions. Every position of a block is known
// before any request is sent, and the vertical cursor is returned to the
// caller instead of being kept anywhere.
package render

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/layout"
)

var ErrTooManyCells = errors.New("render: more cells than table columns")

// RuleInset is how far above a row's bottom edge its rule is drawn
const RuleInset = 5

type rowOptions struct {
	ruler bool
	style layout.Style
}

type RowOption func(*rowOptions)

// WithStyle overrides the column styles of every cell in the row.
func WithStyle(style layout.Style) RowOption {
	return func(o *rowOptions) { o.style = style }
}

// WithoutRuler drops the rule under the row.
func WithoutRuler() RowOption {
	return func(o *rowOptions) { o.ruler = false }
}

// CellID names the annotation of cell i of the row at top, e.g. "row-455-column-2"
func CellID(top float64, i int) string {
	return "row-" + formatCoord(top) + "-column-" + strconv.Itoa(i)
}

func cellBase() layout.Style {
	return layout.Style{
		"fontSize":        12,
		"horizontalAlign": "left",
		"verticalAlign":   "center",
	}
}

// Row returns one text annotation per cell, aligned on the derived columns,
// followed by a rule at top+rowHeight-RuleInset unless WithoutRuler is given.
// Cell style precedence, lowest first: cell defaults, column style, row style.
func Row(l layout.Layout, contents []any, top float64, opts ...RowOption) ([]annotation.Annotation, error) {
	if err := l.Ready(); err != nil {
		return nil, err
	}
	if len(contents) > len(l.Table.Columns) {
		return nil, fmt.Errorf("%w: %d cells, %d columns", ErrTooManyCells, len(contents), len(l.Table.Columns))
	}
	o := rowOptions{ruler: true}
	for _, opt := range opts {
		opt(&o)
	}

	out := make([]annotation.Annotation, 0, len(contents)+1)
	for i, content := range contents {
		column := l.Table.Columns[i]
		cell := map[string]any{
			"text": fmt.Sprint(content),
			"bbox": annotation.BBox{column.Left, top, column.Width, l.Table.RowHeight},
		}
		out = append(out, annotation.Text(CellID(top, i), cell, cellBase(), column.Style, o.style))
	}
	if o.ruler {
		ruleTop := top + l.Table.RowHeight - RuleInset
		out = append(out, annotation.Rule(annotation.RuleID(ruleTop), l, ruleTop))
	}
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
