// Package redis stores records in Redis: a list of JSON records in insertion
// order, a parallel list of their ids and a hash of review flags.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/supergoodsystems/wiretap/pkg/record"
	"github.com/supergoodsystems/wiretap/pkg/store"
)

const defaultPrefix = "wiretap:"

// KEYS: records, ids, checked. ARGV: payload, id, max records (0 = unbounded).
// Evicted ids lose their review flag in the same step.
var addRecordScript = goredis.NewScript(`
redis.call('RPUSH', KEYS[1], ARGV[1])
local n = redis.call('RPUSH', KEYS[2], ARGV[2])
local max = tonumber(ARGV[3])
if max > 0 and n > max then
  local evicted = redis.call('LRANGE', KEYS[2], 0, n - max - 1)
  redis.call('LTRIM', KEYS[1], -max, -1)
  redis.call('LTRIM', KEYS[2], -max, -1)
  redis.call('HDEL', KEYS[3], unpack(evicted))
end
return n
`)

// KEYS: ids, checked. ARGV: id, flag. Returns 0 when id is not stored.
var setCheckedScript = goredis.NewScript(`
if not redis.call('LPOS', KEYS[1], ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
return 1
`)

// Store is a store.History backed by Redis.
type Store struct {
	client     goredis.UniversalClient
	prefix     string
	maxRecords int64
}

var _ store.History = (*Store)(nil)

// Options configure a Store.
type Options struct {
	// Prefix namespaces every key (defaults to "wiretap:").
	Prefix string
	// MaxRecords trims the record list to the newest MaxRecords when positive.
	MaxRecords int64
}

// New wraps an existing client.
func New(client goredis.UniversalClient, o Options) *Store {
	if o.Prefix == "" {
		o.Prefix = defaultPrefix
	}
	return &Store{client: client, prefix: o.Prefix, maxRecords: o.MaxRecords}
}

// Open connects to the server described by a redis:// URL.
func Open(ctx context.Context, url string, o Options) (*Store, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}
	return New(client, o), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) key(name string) string {
	return s.prefix + name
}

func (s *Store) GetSettings(ctx context.Context) (store.Settings, error) {
	var st store.Settings
	b, err := s.client.Get(ctx, s.key("settings")).Bytes()
	if errors.Is(err, goredis.Nil) {
		return st, nil
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, fmt.Errorf("redis: decode settings: %w", err)
	}
	return st, nil
}

func (s *Store) PutSettings(ctx context.Context, st store.Settings) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key("settings"), b, 0).Err()
}

func (s *Store) AddRecord(ctx context.Context, r *record.Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: encode record %s: %w", r.ID, err)
	}
	keys := []string{s.key("records"), s.key("ids"), s.key("checked")}
	return addRecordScript.Run(ctx, s.client, keys, payload, r.ID, s.maxRecords).Err()
}

func (s *Store) ListRecords(ctx context.Context, f store.Filter) ([]record.Record, error) {
	raw, err := s.client.LRange(ctx, s.key("records"), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	checked, err := s.client.HGetAll(ctx, s.key("checked")).Result()
	if err != nil {
		return nil, err
	}

	out := make([]record.Record, 0, len(raw))
	for _, item := range raw {
		var r record.Record
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("redis: decode record: %w", err)
		}
		if v, ok := checked[r.ID]; ok {
			r.Checked = v == "1"
		}
		if f.Match(&r) {
			out = append(out, r)
		}
	}
	return f.Tail(out), nil
}

func (s *Store) SetChecked(ctx context.Context, id string, checked bool) error {
	v := "0"
	if checked {
		v = "1"
	}
	found, err := setCheckedScript.Run(ctx, s.client, []string{s.key("ids"), s.key("checked")}, id, v).Int()
	if err != nil {
		return err
	}
	if found == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key("records"), s.key("ids"), s.key("checked")).Err()
}
