package invoice

import (
	"context"
	"errors"
	"fmt"

	"github.com/zeptools/gw-invoicer/db/sqldb"
	"github.com/zeptools/gw-invoicer/nullable"
)

// Source loads the invoice to build
type Source interface {
	Load(ctx context.Context, number string) (*Invoice, error)
}

// FileSource reads a single invoice JSON file. The number argument, if not empty,
// must match the number in the file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(_ context.Context, number string) (*Invoice, error) {
	inv, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}
	if number != "" && inv.Number != number {
		return nil, fmt.Errorf("%w: %s holds invoice %q, not %q", ErrNotFound, s.Path, inv.Number, number)
	}
	return inv, nil
}

// Statement keys looked up in sqldb.Conf.Stmts
const (
	StmtInvoice = "invoice"
	StmtItems   = "invoice_items"
)

// SQLSource reads an invoice header row and its item rows.
type SQLSource struct {
	Handle sqldb.Handle
	Conf   *sqldb.Conf
}

type invoiceRow struct {
	Number   string
	Customer nullable.String
}

func (r *invoiceRow) TargetFields() []any {
	return []any{&r.Number, &r.Customer}
}

// itemRow.Quantity is NULL for items billed once
type itemRow struct {
	Name     string
	UnitCost float64
	Quantity nullable.Float
}

func (r *itemRow) TargetFields() []any {
	return []any{&r.Name, &r.UnitCost, &r.Quantity}
}

func (s *SQLSource) stmts() (string, string) {
	ph := sqldb.Placeholder(s.Conf.Type, 1)
	invoiceStmt := s.Conf.Stmt(StmtInvoice,
		"SELECT number, customer FROM invoices WHERE number = "+ph)
	itemsStmt := s.Conf.Stmt(StmtItems,
		"SELECT name, unit_cost, quantity FROM invoice_items WHERE invoice_number = "+ph+" ORDER BY position")
	return invoiceStmt, itemsStmt
}

func (s *SQLSource) Load(ctx context.Context, number string) (*Invoice, error) {
	if number == "" {
		return nil, ErrMissingNumber
	}
	invoiceStmt, itemsStmt := s.stmts()
	ctx, cancel := s.Conf.QueryContext(ctx)
	defer cancel()

	head, err := sqldb.QueryItem[invoiceRow, *invoiceRow](ctx, s.Handle, invoiceStmt, number)
	if errors.Is(err, sqldb.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, number)
	}
	if err != nil {
		return nil, fmt.Errorf("query invoice %q: %w", number, err)
	}
	rows, err := sqldb.QueryItems[itemRow, *itemRow](ctx, s.Handle, itemsStmt, number)
	if err != nil {
		return nil, fmt.Errorf("query items of %q: %w", number, err)
	}

	inv := &Invoice{
		Number:   head.Number,
		Customer: head.Customer.Or(""),
		Items:    make([]Item, 0, len(rows)),
	}
	for _, r := range rows {
		inv.Items = append(inv.Items, Item{Name: r.Name, UnitCost: r.UnitCost, Quantity: r.Quantity.Or(1)})
	}
	if err = inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}
