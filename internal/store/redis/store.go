// Package redis implements the trade-leg record store on Redis.
//
// Each leg lives in a hash at "leg:<key>" with fields mirroring
// model.TradeLegRecord (time, name, strike, instrument_type, sl).
// Fetch-all scans the key space; SL updates rewrite a single hash field,
// so concurrent writers never clobber the rest of the record.
package redis

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"trade-trackerv1/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	keyPrefix     = "leg:"
	scanBatchSize = 200
)

// Config configures the record store connection.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Store is the Redis-backed trade-leg record store.
type Store struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (s *Store) Client() *goredis.Client { return s.client }

// New creates a record store and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[store] connected to redis at %s", cfg.Addr)
	return &Store{client: client}, nil
}

// FetchAll scans every leg hash and returns the parsed records. Redis SCAN
// gives no ordering guarantee, which matches the store contract: callers
// treat the snapshot as unordered and dedupe in first-seen order.
func (s *Store) FetchAll(ctx context.Context) ([]model.TradeLegRecord, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", scanBatchSize).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %s*: %w", keyPrefix, err)
	}
	if len(keys) == 0 {
		return []model.TradeLegRecord{}, nil
	}

	// One pipelined HGETALL per key: a single roundtrip for the snapshot.
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.StringStringMapCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.HGetAll(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis hgetall pipeline: %w", err)
	}

	records := make([]model.TradeLegRecord, 0, len(keys))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			continue // key expired or deleted mid-scan
		}
		rec, err := recordFromHash(strings.TrimPrefix(keys[i], keyPrefix), fields)
		if err != nil {
			log.Printf("[store] skipping malformed record %s: %v", keys[i], err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// UpdateSL rewrites the sl field of one record. The record must exist;
// writing a new field into a missing hash would fabricate a partial record.
func (s *Store) UpdateSL(ctx context.Context, key string, sl float64) error {
	redisKey := keyPrefix + key
	exists, err := s.client.Exists(ctx, redisKey).Result()
	if err != nil {
		return fmt.Errorf("redis exists %s: %w", redisKey, err)
	}
	if exists == 0 {
		return fmt.Errorf("record %s not found", key)
	}
	if err := s.client.HSet(ctx, redisKey, "sl", formatFloat(sl)).Err(); err != nil {
		return fmt.Errorf("redis hset %s sl: %w", redisKey, err)
	}
	return nil
}

// InsertLeg writes a full record hash. Used by the seed tool only; the
// dashboard itself never creates records.
func (s *Store) InsertLeg(ctx context.Context, rec model.TradeLegRecord) error {
	redisKey := keyPrefix + rec.Key
	err := s.client.HSet(ctx, redisKey, map[string]interface{}{
		"time":            rec.Time,
		"name":            rec.Name,
		"strike":          formatFloat(rec.Strike),
		"instrument_type": string(rec.InstrumentType),
		"sl":              formatFloat(rec.SL),
	}).Err()
	if err != nil {
		return fmt.Errorf("redis hset %s: %w", redisKey, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func recordFromHash(key string, fields map[string]string) (model.TradeLegRecord, error) {
	strike, err := strconv.ParseFloat(fields["strike"], 64)
	if err != nil {
		return model.TradeLegRecord{}, fmt.Errorf("strike %q: %w", fields["strike"], err)
	}
	sl := 0.0
	if v := fields["sl"]; v != "" {
		if sl, err = strconv.ParseFloat(v, 64); err != nil {
			return model.TradeLegRecord{}, fmt.Errorf("sl %q: %w", v, err)
		}
	}
	return model.TradeLegRecord{
		Key:            key,
		Time:           fields["time"],
		Name:           fields["name"],
		Strike:         strike,
		InstrumentType: model.OptionType(fields["instrument_type"]),
		SL:             sl,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
