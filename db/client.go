// Package db groups the database clients the app opens: the journal store and the invoice databases.
package db

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
)

// Closers closes registered clients in reverse order of registration.
// The zero value is ready to use.
type Closers struct {
	mu      sync.Mutex
	names   []string
	clients []io.Closer
}

func (c *Closers) Add(name string, client io.Closer) {
	if client == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	c.clients = append(c.clients, client)
}

// CloseAll closes every client once, logging each outcome, and joins the failures
func (c *Closers) CloseAll() error {
	c.mu.Lock()
	names, clients := c.names, c.clients
	c.names, c.clients = nil, nil
	c.mu.Unlock()

	var errs []error
	for i := len(clients) - 1; i >= 0; i-- {
		if err := clients[i].Close(); err != nil {
			log.Printf("[WARN] Failed to Close `%s`: %v", names[i], err)
			errs = append(errs, fmt.Errorf("%s: %w", names[i], err))
			continue
		}
		log.Printf("[INFO] `%s` Closed", names[i])
	}
	return errors.Join(errs...)
}
