// Package redis stores the run journal in Redis.
package redis

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/zeptools/gw-invoicer/db/kvdb"

	lowimpl "github.com/redis/go-redis/v9"
)

const (
	dialTimeout = 5 * time.Second
	ioTimeout   = 3 * time.Second
)

type Client struct {
	Conf *kvdb.Conf

	// implementation details, not exported
	internal *lowimpl.Client
}

// Ensure redis.Client implements kvdb.Client interface
var _ kvdb.Client = (*Client)(nil)

// Init builds the connection pool. No connection is made until the first command.
func (c *Client) Init() error {
	if c.Conf == nil {
		return kvdb.ErrInvalidConf
	}
	if err := c.Conf.Validate(); err != nil {
		return err
	}
	c.internal = lowimpl.NewClient(&lowimpl.Options{
		Addr:         c.Conf.Addr(),
		Password:     c.Conf.PW,
		DB:           c.Conf.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	})
	log.Printf("[INFO][REDIS] client for %s db %d initialized", c.Conf.Addr(), c.Conf.DB)
	return nil
}

// Ping checks that the server answers
func (c *Client) Ping(ctx context.Context) error {
	return mapErr(c.internal.Ping(ctx).Err())
}

func (c *Client) Close() error {
	if c.internal == nil {
		return nil
	}
	return c.internal.Close()
}

func (c *Client) GetConf() *kvdb.Conf {
	return c.Conf
}

// mapErr turns WRONGTYPE replies into kvdb.ErrWrongType
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var redisErr lowimpl.Error
	if errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "WRONGTYPE") {
		return errors.Join(kvdb.ErrWrongType, err)
	}
	return err
}

//--- Key Ops ----

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.internal.Exists(ctx, key).Result()
	return n > 0, mapErr(err)
}

func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.internal.Del(ctx, keys...).Result()
	return n, mapErr(err)
}

// Expire reports false if the key does not exist
func (c *Client) Expire(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	ok, err := c.internal.Expire(ctx, key, expiration).Result()
	return ok, mapErr(err)
}

//---- List Ops ----

// Push appends to the tail
func (c *Client) Push(ctx context.Context, key, value string) error {
	return mapErr(c.internal.RPush(ctx, key, value).Err())
}

func (c *Client) Len(ctx context.Context, key string) (int64, error) {
	n, err := c.internal.LLen(ctx, key).Result()
	return n, mapErr(err)
}

func (c *Client) Range(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := c.internal.LRange(ctx, key, start, stop).Result()
	return vals, mapErr(err)
}

func (c *Client) Remove(ctx context.Context, key string, cnt int64, value any) (int64, error) {
	n, err := c.internal.LRem(ctx, key, cnt, value).Result()
	return n, mapErr(err)
}

func (c *Client) Trim(ctx context.Context, key string, start, stop int64) error {
	return mapErr(c.internal.LTrim(ctx, key, start, stop).Err())
}

// MoveToTail runs LREM, RPUSH and LTRIM in one MULTI/EXEC
func (c *Client) MoveToTail(ctx context.Context, key string, value string, maxLen int64) error {
	_, err := c.internal.TxPipelined(ctx, func(pipe lowimpl.Pipeliner) error {
		pipe.LRem(ctx, key, 0, value)
		pipe.RPush(ctx, key, value)
		if maxLen > 0 {
			pipe.LTrim(ctx, key, -maxLen, -1)
		}
		return nil
	})
	return mapErr(err)
}

//---- Hash Ops ----

func (c *Client) SetFields(ctx context.Context, key string, fields map[string]any) error {
	return mapErr(c.internal.HSet(ctx, key, fields).Err())
}

// SetFieldsExpire runs HSET and EXPIRE in one MULTI/EXEC
func (c *Client) SetFieldsExpire(ctx context.Context, key string, fields map[string]any, expiration time.Duration) error {
	if expiration <= 0 {
		return c.SetFields(ctx, key, fields)
	}
	_, err := c.internal.TxPipelined(ctx, func(pipe lowimpl.Pipeliner) error {
		pipe.HSet(ctx, key, fields)
		pipe.Expire(ctx, key, expiration)
		return nil
	})
	return mapErr(err)
}

func (c *Client) GetField(ctx context.Context, key string, field string) (string, bool, error) { // val, found, err
	val, err := c.internal.HGet(ctx, key, field).Result()
	if errors.Is(err, lowimpl.Nil) {
		return "", false, nil // key or field missing
	}
	if err != nil {
		return "", false, mapErr(err)
	}
	return val, true, nil
}

// GetAllFields returns an empty map if the key is not found
func (c *Client) GetAllFields(ctx context.Context, key string) (map[string]string, error) {
	fields, err := c.internal.HGetAll(ctx, key).Result()
	return fields, mapErr(err)
}
