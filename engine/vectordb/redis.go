package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/redis/go-redis/v9"

	"github.com/ragserve/ragserve/engine/core"
)

type redisStore struct {
	client    *redis.Client
	setKey    string
	dimension int
	maxTopK   int
}

const (
	redisTextAttrKey      = "text"
	redisMetadataAttrKey  = "_metadata"
	redisDefaultVectorKey = "document_vectors"
)

func newRedisStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vectordb config is required")
	}
	options, err := parseRedisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(options)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis vectordb %q: ping failed: %w", cfg.ID, err)
	}
	return &redisStore{
		client:    client,
		setKey:    determineRedisKey(cfg),
		dimension: cfg.Dimension,
		maxTopK:   cfg.MaxTopK,
	}, nil
}

func parseRedisOptions(cfg *Config) (*redis.Options, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("redis vectordb %q: invalid dsn: %w", cfg.ID, err)
	}
	opt.Protocol = 3
	opt.UnstableResp3 = true
	if opt.Username == "" {
		if user, ok := cfg.Auth["username"]; ok && strings.TrimSpace(user) != "" {
			opt.Username = strings.TrimSpace(user)
		}
	}
	if opt.Password == "" {
		if pass, ok := cfg.Auth["password"]; ok {
			opt.Password = pass
		}
	}
	return opt, nil
}

func determineRedisKey(cfg *Config) string {
	candidates := []string{
		cfg.Collection,
		cfg.Table,
		cfg.ID,
	}
	for _, candidate := range candidates {
		if key := sanitizeRedisKey(candidate); key != "" {
			return key
		}
	}
	return redisDefaultVectorKey
}

func sanitizeRedisKey(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
		case r == ':', r == '-', r == '_':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	key := strings.Trim(builder.String(), "_:-")
	return key
}

func (r *redisStore) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for _, record := range records {
		if len(record.Embedding) != r.dimension {
			return fmt.Errorf("redis: record %q dimension mismatch", record.ID)
		}
		vector := &redis.VectorValues{Val: float32ToFloat64(record.Embedding)}
		pipe.VAdd(ctx, r.setKey, record.ID, vector)
		pipe.VSetAttr(ctx, r.setKey, record.ID, buildRedisAttributes(record))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: insert pipeline: %w", err)
	}
	return nil
}

func (r *redisStore) Query(ctx context.Context, embedding []float32, topK int) ([]Match, error) {
	if len(embedding) != r.dimension {
		return nil, fmt.Errorf("redis: query dimension mismatch")
	}
	args := &redis.VSimArgs{Count: int64(clampTopK(topK, r.maxTopK))}
	results, err := r.client.VSimWithArgsWithScores(
		ctx,
		r.setKey,
		&redis.VectorValues{Val: float32ToFloat64(embedding)},
		args,
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: similarity query: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	payloads, err := r.loadAttributePayloads(ctx, resultNames(results))
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(results))
	for i, item := range results {
		text, metadata, err := parseAttributeJSON(payloads[i])
		if err != nil {
			return nil, fmt.Errorf("redis: parse attributes for %q: %w", item.Name, err)
		}
		// VSIM scores are similarities in [0, 1].
		matches = append(matches, Match{
			ID:       item.Name,
			Distance: 1 - item.Score,
			Text:     text,
			Metadata: metadata,
		})
	}
	return matches, nil
}

func (r *redisStore) Count(ctx context.Context) (int, error) {
	total, err := r.client.VCard(ctx, r.setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis: vcard: %w", err)
	}
	return int(total), nil
}

func (r *redisStore) Scan(ctx context.Context) ([]Entry, error) {
	total, err := r.client.VCard(ctx, r.setKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: vcard: %w", err)
	}
	if total == 0 {
		return nil, nil
	}
	// VSET has no native scan; a zero-vector similarity query with count set
	// to the cardinality enumerates every member.
	zero := make([]float64, r.dimension)
	names, err := r.client.VSimWithArgs(
		ctx,
		r.setKey,
		&redis.VectorValues{Val: zero},
		&redis.VSimArgs{Count: total},
	).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis: enumerate members: %w", err)
	}
	payloads, err := r.loadAttributePayloads(ctx, names)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(names))
	for i, name := range names {
		_, metadata, err := parseAttributeJSON(payloads[i])
		if err != nil {
			return nil, fmt.Errorf("redis: parse attributes for %q: %w", name, err)
		}
		entries = append(entries, Entry{ID: name, Metadata: metadata})
	}
	return entries, nil
}

func (r *redisStore) Close(context.Context) error {
	return r.client.Close()
}

func (r *redisStore) loadAttributePayloads(ctx context.Context, names []string) ([]string, error) {
	pipe := r.client.Pipeline()
	attrCmds := make([]*redis.StringCmd, len(names))
	for i := range names {
		attrCmds[i] = pipe.VGetAttr(ctx, r.setKey, names[i])
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: fetch attributes: %w", err)
	}
	payloads := make([]string, len(names))
	for i := range attrCmds {
		raw, err := attrCmds[i].Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				payloads[i] = ""
				continue
			}
			return nil, fmt.Errorf("redis: read attributes for %q: %w", names[i], err)
		}
		payloads[i] = raw
	}
	return payloads, nil
}

func resultNames(results []redis.VectorScore) []string {
	names := make([]string, len(results))
	for i := range results {
		names[i] = results[i].Name
	}
	return names
}

func float32ToFloat64(values []float32) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		out[i] = float64(values[i])
	}
	return out
}

func buildRedisAttributes(record Record) map[string]any {
	attrs := make(map[string]any, 2)
	attrs[redisTextAttrKey] = record.Text
	meta := core.CloneMap(record.Metadata)
	if meta == nil {
		meta = make(map[string]any)
	}
	attrs[redisMetadataAttrKey] = meta
	return attrs
}

func parseAttributeJSON(payload string) (string, map[string]any, error) {
	if strings.TrimSpace(payload) == "" {
		return "", make(map[string]any), nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return "", nil, err
	}
	text := ""
	if value, ok := decoded[redisTextAttrKey].(string); ok {
		text = value
	}
	meta := make(map[string]any)
	if raw, ok := decoded[redisMetadataAttrKey].(map[string]any); ok && raw != nil {
		meta = raw
	}
	return text, meta, nil
}
