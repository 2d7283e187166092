package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/zeptools/gw-invoicer/conf"
	"github.com/zeptools/gw-invoicer/invoice"
)

const defaultInvoiceDB = "invoices"

type app struct {
	core   *conf.Core
	stdout io.Writer
}

func newApp(appRoot string, rootCtx context.Context, rootCancel context.CancelFunc, stdout io.Writer) (*app, error) {
	core := &conf.Core{}
	if err := core.BaseInit(appRoot, rootCtx, rootCancel); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	if err := core.PrepareJournal(); err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	return &app{core: core, stdout: stdout}, nil
}

func runTemplate(a *app, args []string) error {
	fs := flag.NewFlagSet("template", flag.ContinueOnError)
	noVerify := fs.Bool("no-verify", a.core.SkipPDFCheck, "skip validating blank.pdf and logo.pdf")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := a.core.PrepareDocServerClient(); err != nil {
		return err
	}
	a.core.SkipPDFCheck = *noVerify
	asm, err := a.core.Assembler()
	if err != nil {
		return err
	}
	if _, err = asm.BuildTemplate(a.core.RootCtx); err != nil {
		return fmt.Errorf("failed to create invoice template: %w", err)
	}
	log.Println("[INFO] Template created")
	return nil
}

func runInvoice(a *app, args []string) error {
	fs := flag.NewFlagSet("invoice", flag.ContinueOnError)
	input := fs.String("input", "invoice.json", "invoice JSON file")
	source := fs.String("source", "file", "invoice source: file | sql")
	dbName := fs.String("db", defaultInvoiceDB, "SQL database name in .sql-databases.json")
	number := fs.String("number", "", "invoice number to load from the SQL source")
	output := fs.String("output", a.core.Output, "exported PDF path")
	qr := fs.Bool("qr", a.core.PaymentQR, "add a payment QR code")
	noVerify := fs.Bool("no-verify", a.core.SkipPDFCheck, "skip validating the exported PDF")
	if err := fs.Parse(args); err != nil {
		return err
	}

	inv, err := loadInvoice(a, *source, *input, *dbName, *number)
	if err != nil {
		return err
	}
	if err = a.core.PrepareDocServerClient(); err != nil {
		return err
	}
	a.core.PaymentQR = *qr
	a.core.SkipPDFCheck = *noVerify
	asm, err := a.core.Assembler()
	if err != nil {
		return err
	}
	if _, err = asm.BuildInvoice(a.core.RootCtx, inv, *output); err != nil {
		return fmt.Errorf("failed to create invoice %q: %w", inv.Number, err)
	}
	return nil
}

func loadInvoice(a *app, source string, input string, dbName string, number string) (*invoice.Invoice, error) {
	var src invoice.Source
	switch source {
	case "file":
		src = invoice.FileSource{Path: input}
	case "sql":
		if number == "" {
			return nil, errors.New("-number is required with -source sql")
		}
		if err := a.core.PrepareSQLDatabases(); err != nil {
			return nil, fmt.Errorf("sql databases: %w", err)
		}
		sqlSource, err := a.core.InvoiceSource(dbName)
		if err != nil {
			return nil, err
		}
		src = sqlSource
	default:
		return nil, fmt.Errorf("unknown invoice source %q", source)
	}
	return src.Load(a.core.RootCtx, number)
}

func runViewerToken(a *app, args []string) error {
	fs := flag.NewFlagSet("viewer-token", flag.ContinueOnError)
	layer := fs.String("layer", "", "layer the token opens, e.g. an invoice number")
	publicKey := fs.Bool("public-key", false, "print the PEM public key to configure on the document server instead")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *layer == "" && !*publicKey {
		return errors.New("-layer is required")
	}
	if err := a.core.PrepareDocServerClient(); err != nil {
		return err
	}
	if err := a.core.PrepareViewerTokens(); err != nil {
		return fmt.Errorf("viewer tokens: %w", err)
	}
	if *publicKey {
		pub, err := a.core.ViewerTokens.PublicPEM()
		if err != nil {
			return err
		}
		_, err = a.stdout.Write(pub)
		return err
	}
	token, err := a.core.ViewerTokens.Issue(*layer)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.stdout, token)
	return err
}

func runStatus(a *app, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	entries, err := a.core.Journal.List(a.core.RootCtx)
	if err != nil {
		return err
	}
	return printStatus(a.stdout, entries)
}
