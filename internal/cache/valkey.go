package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyCache shares upstream responses between replicas through Valkey.
type ValkeyCache struct {
	client valkey.Client
	prefix string
}

// NewValkeyCache constructs a cache on top of an existing client.
func NewValkeyCache(client valkey.Client, prefix string) *ValkeyCache {
	if prefix == "" {
		prefix = "meteo"
	}
	return &ValkeyCache{client: client, prefix: prefix}
}

func (c *ValkeyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := c.client.Do(ctx, c.client.B().Get().Key(c.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(payload), true, nil
}

func (c *ValkeyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if ttl < time.Second {
		ttl = time.Second
	}
	cmd := c.client.B().Set().Key(c.key(key)).Value(string(value)).Ex(ttl).Build()
	return c.client.Do(ctx, cmd).Error()
}

// Close releases the underlying client.
func (c *ValkeyCache) Close() {
	c.client.Close()
}

// key hashes the request URL so keys stay short and free of query syntax.
func (c *ValkeyCache) key(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:upstream:%s", c.prefix, hex.EncodeToString(sum[:]))
}

// DialValkey connects and pings. addr may be host:port or a valkey:// URL.
func DialValkey(ctx context.Context, addr string) (valkey.Client, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(addr, "://") {
		opt, err = valkey.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse valkey url: %w", err)
		}
	} else {
		opt = valkey.ClientOption{InitAddress: []string{addr}}
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("create valkey client: %w", err)
	}
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping: %w", err)
	}
	return client, nil
}

var _ Cache = (*ValkeyCache)(nil)
