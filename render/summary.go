package render

import (
	"github.com/zeptools/gw-invoicer/annotation"
	"github.com/zeptools/gw-invoicer/invoice"
	"github.com/zeptools/gw-invoicer/layout"
)

// SummaryConf positions and labels the subtotal, VAT and total rows.
type SummaryConf struct {
	VATRate       float64      `json:"vat_rate"`
	Offset        float64      `json:"offset"` // gap between the item table and the subtotal row
	Step          float64      `json:"step"`   // distance between summary rows
	SubtotalLabel string       `json:"subtotal_label"`
	VATLabel      string       `json:"vat_label"`
	TotalLabel    string       `json:"total_label"`
	TotalStyle    layout.Style `json:"total_style"`
}

func DefaultSummaryConf() SummaryConf {
	return SummaryConf{
		VATRate:       0.23,
		Offset:        10,
		Step:          20,
		SubtotalLabel: "Subtotal",
		VATLabel:      "VAT",
		TotalLabel:    "Total",
		TotalStyle:    layout.Style{"fontSize": 13, "fontStyle": []string{"bold"}},
	}
}

// Summary renders three unruled rows starting conf.Offset below cursor.
// Labels sit in the third column and amounts in the fourth.
// The returned cursor is below the total row.
func Summary(l layout.Layout, items []invoice.Item, cursor float64, conf SummaryConf) (Block, error) {
	if err := l.Ready(); err != nil {
		return Block{}, err
	}
	totals, err := invoice.ComputeTotals(items, conf.VATRate)
	if err != nil {
		return Block{}, err
	}

	start := cursor + conf.Offset
	lines := []struct {
		top    float64
		label  string
		amount float64
		opts   []RowOption
	}{
		{start, conf.SubtotalLabel, totals.Subtotal, []RowOption{WithoutRuler()}},
		{start + conf.Step, conf.VATLabel, totals.VAT, []RowOption{WithoutRuler()}},
		{start + 2*conf.Step, conf.TotalLabel, totals.Total, []RowOption{WithoutRuler(), WithStyle(conf.TotalStyle)}},
	}

	b := Block{Rows: make([][]annotation.Annotation, 0, len(lines))}
	for _, line := range lines {
		row, err := Row(l, []any{"", "", line.label, Money(line.amount)}, line.top, line.opts...)
		if err != nil {
			return Block{}, err
		}
		b.Rows = append(b.Rows, row)
	}
	b.Cursor = start + 2*conf.Step + l.Table.RowHeight
	return b, nil
}
