// Command invoicer builds the invoice template layer and renders invoices on a document server.
//
//	invoicer [-root dir] template
//	invoicer [-root dir] invoice [-input invoice.json | -source sql -db name -number n] [-output invoice.pdf] [-qr] [-no-verify]
//	invoicer [-root dir] viewer-token -layer name | -public-key
//	invoicer [-root dir] status
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

var errUsage = errors.New("usage: invoicer [-root dir] template|invoice|viewer-token|status [flags]")

func main() {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()
	if err := run(rootCtx, rootCancel, os.Args[1:], os.Stdout); err != nil {
		log.Printf("[ERROR] %v", err)
		rootCancel()
		os.Exit(1)
	}
}

func run(rootCtx context.Context, rootCancel context.CancelFunc, args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("invoicer", flag.ContinueOnError)
	appRoot := global.String("root", ".", "app root directory holding config/")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() < 1 {
		return errUsage
	}
	cmd, cmdArgs := global.Arg(0), global.Args()[1:]

	var handler func(a *app, args []string) error
	switch cmd {
	case "template":
		handler = runTemplate
	case "invoice":
		handler = runInvoice
	case "viewer-token":
		handler = runViewerToken
	case "status":
		handler = runStatus
	default:
		return fmt.Errorf("unknown command %q. %w", cmd, errUsage)
	}

	a, err := newApp(*appRoot, rootCtx, rootCancel, stdout)
	if err != nil {
		return err
	}
	defer a.core.ResourceCleanUp()
	return handler(a, cmdArgs)
}
