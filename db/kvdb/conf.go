package kvdb

import "fmt"

const DefaultRedisPort = 6379

type Conf struct {
	Type string `json:"type"` // "redis" | "memory"
	Host string `json:"host"`
	Port int    `json:"port"` // DefaultRedisPort if 0
	PW   string `json:"pw"`
	DB   int    `json:"db"` // optional db number e.g. redis
}

// Addr is host:port, with the default port filled in
func (c *Conf) Addr() string {
	port := c.Port
	if port == 0 {
		port = DefaultRedisPort
	}
	return fmt.Sprintf("%s:%d", c.Host, port)
}

func (c *Conf) Validate() error {
	switch c.Type {
	case "memory":
		return nil
	case "redis":
		if c.Host == "" {
			return fmt.Errorf("%w: redis host is empty", ErrInvalidConf)
		}
		if c.Port < 0 || c.DB < 0 {
			return fmt.Errorf("%w: negative port or db", ErrInvalidConf)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidConf, c.Type)
	}
}
