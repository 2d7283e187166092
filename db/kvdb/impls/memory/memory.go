// Package memory is an in-process kvdb.Client. Data is lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zeptools/gw-invoicer/db/kvdb"
)

type entry struct {
	list     []string
	hash     map[string]string
	expireAt time.Time // zero = no expiration
}

type Client struct {
	Conf *kvdb.Conf

	mu   sync.Mutex
	data map[string]*entry
	now  func() time.Time
}

var _ kvdb.Client = (*Client)(nil)

func New() *Client {
	c := &Client{Conf: &kvdb.Conf{Type: "memory"}}
	_ = c.Init()
	return c
}

func (c *Client) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = make(map[string]*entry)
	}
	if c.now == nil {
		c.now = time.Now
	}
	return nil
}

func (c *Client) Close() error {
	return nil
}

func (c *Client) GetConf() *kvdb.Conf {
	return c.Conf
}

// lookup returns the live entry for key. Caller holds c.mu
func (c *Client) lookup(key string) (*entry, bool) {
	e, ok := c.data[key]
	if !ok {
		return nil, false
	}
	if !e.expireAt.IsZero() && !c.now().Before(e.expireAt) {
		delete(c.data, key)
		return nil, false
	}
	return e, true
}

func (c *Client) listEntry(key string, create bool) (*entry, error) {
	e, ok := c.lookup(key)
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{}
		c.data[key] = e
		return e, nil
	}
	if e.hash != nil {
		return nil, kvdb.ErrWrongType
	}
	return e, nil
}

func (c *Client) hashEntry(key string, create bool) (*entry, error) {
	e, ok := c.lookup(key)
	if !ok {
		if !create {
			return nil, nil
		}
		e = &entry{hash: make(map[string]string)}
		c.data[key] = e
		return e, nil
	}
	if e.hash == nil {
		return nil, kvdb.ErrWrongType
	}
	return e, nil
}

//--- Key Ops ----

func (c *Client) Exists(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lookup(key)
	return ok, nil
}

func (c *Client) Delete(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := c.lookup(key); ok {
			delete(c.data, key)
			n++
		}
	}
	return n, nil
}

func (c *Client) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.lookup(key)
	if !ok {
		return false, nil
	}
	if expiration <= 0 {
		delete(c.data, key)
		return true, nil
	}
	e.expireAt = c.now().Add(expiration)
	return true, nil
}

//---- List Ops ----

// bounds converts redis style inclusive indexes (negative = from the tail) into a slice range
func bounds(length int, start int64, stop int64) (int, int, bool) {
	n := int64(length)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}

func (c *Client) Push(_ context.Context, key string, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.listEntry(key, true)
	if err != nil {
		return err
	}
	e.list = append(e.list, value)
	return nil
}

func (c *Client) Len(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.listEntry(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.list)), nil
}

func (c *Client) Range(_ context.Context, key string, start int64, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.listEntry(key, false)
	if err != nil || e == nil {
		return []string{}, err
	}
	from, to, ok := bounds(len(e.list), start, stop)
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), e.list[from:to]...), nil
}

func (c *Client) Remove(_ context.Context, key string, cnt int64, value any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.listEntry(key, false)
	if err != nil || e == nil {
		return 0, err
	}
	target := fmt.Sprint(value)
	limit := cnt
	if limit < 0 {
		limit = -limit
	}
	matches := func(i int) bool { return e.list[i] == target }
	drop := make(map[int]struct{})
	if cnt >= 0 {
		for i := 0; i < len(e.list) && (limit == 0 || int64(len(drop)) < limit); i++ {
			if matches(i) {
				drop[i] = struct{}{}
			}
		}
	} else {
		for i := len(e.list) - 1; i >= 0 && int64(len(drop)) < limit; i-- {
			if matches(i) {
				drop[i] = struct{}{}
			}
		}
	}
	kept := e.list[:0:0]
	for i, v := range e.list {
		if _, ok := drop[i]; !ok {
			kept = append(kept, v)
		}
	}
	e.list = kept
	if len(e.list) == 0 {
		delete(c.data, key)
	}
	return int64(len(drop)), nil
}

func (c *Client) Trim(_ context.Context, key string, start int64, stop int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trim(key, start, stop)
}

// trim is Trim with c.mu held
func (c *Client) trim(key string, start int64, stop int64) error {
	e, err := c.listEntry(key, false)
	if err != nil || e == nil {
		return err
	}
	from, to, ok := bounds(len(e.list), start, stop)
	if !ok {
		delete(c.data, key)
		return nil
	}
	e.list = append([]string(nil), e.list[from:to]...)
	return nil
}

func (c *Client) MoveToTail(_ context.Context, key string, value string, maxLen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.listEntry(key, true)
	if err != nil {
		return err
	}
	kept := make([]string, 0, len(e.list)+1)
	for _, v := range e.list {
		if v != value {
			kept = append(kept, v)
		}
	}
	e.list = append(kept, value)
	if maxLen <= 0 {
		return nil
	}
	return c.trim(key, -maxLen, -1)
}

//---- Hash Ops ----

func (c *Client) SetFields(_ context.Context, key string, fields map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.hashEntry(key, true)
	if err != nil {
		return err
	}
	for f, v := range fields {
		e.hash[f] = fmt.Sprint(v)
	}
	return nil
}

func (c *Client) SetFieldsExpire(ctx context.Context, key string, fields map[string]any, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.hashEntry(key, true)
	if err != nil {
		return err
	}
	for f, v := range fields {
		e.hash[f] = fmt.Sprint(v)
	}
	if expiration > 0 {
		e.expireAt = c.now().Add(expiration)
	}
	return nil
}

func (c *Client) GetField(_ context.Context, key string, field string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.hashEntry(key, false)
	if err != nil || e == nil {
		return "", false, err
	}
	v, ok := e.hash[field]
	return v, ok, nil
}

func (c *Client) GetAllFields(_ context.Context, key string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, err := c.hashEntry(key, false)
	if err != nil || e == nil {
		return map[string]string{}, err
	}
	out := make(map[string]string, len(e.hash))
	for f, v := range e.hash {
		out[f] = v
	}
	return out, nil
}
