// Package textindex renders the plain-text search index of products from
// embedded templates, optionally caching results in redis.
package textindex

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/phenrril/myshop/internal/domain"
)

//go:embed templates
var files embed.FS

// Cache stores rendered text by key.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string)
}

type Renderer struct {
	tmpl  *template.Template
	cache Cache
}

// New parses every embedded template. cache may be nil.
func New(cache Cache) (*Renderer, error) {
	funcMap := template.FuncMap{
		"striptags": stripTags,
		"money":     func(d decimal.Decimal) string { return d.StringFixed(2) },
		"isphone": func(v any) bool {
			_, ok := v.(*domain.SmartPhoneModel)
			return ok
		},
	}
	t, err := template.New("").Funcs(funcMap).ParseFS(files, "templates/search/indexes/myshop/*.txt")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: t, cache: cache}, nil
}

// Render executes the template called name, a path relative to the
// templates directory. Results are cached under cacheKey when one is given.
func (r *Renderer) Render(ctx context.Context, name, cacheKey string, data any) (string, error) {
	base := name[strings.LastIndex(name, "/")+1:]
	t := r.tmpl.Lookup(base)
	if t == nil {
		return "", fmt.Errorf("template %q no encontrado", name)
	}
	if cacheKey != "" && r.cache != nil {
		if s, ok := r.cache.Get(ctx, name+":"+cacheKey); ok {
			return s, nil
		}
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	out := strings.TrimSpace(buf.String())
	if cacheKey != "" && r.cache != nil {
		r.cache.Set(ctx, name+":"+cacheKey, out)
	}
	return out, nil
}

func stripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// RedisCache keeps rendered text in redis for TTL.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	s, err := c.rdb.Get(ctx, "textindex:"+key).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Str("key", key).Msg("text index cache read failed")
		}
		return "", false
	}
	return s, true
}

// Set is best effort: a failed write only costs a re-render.
func (c *RedisCache) Set(ctx context.Context, key, value string) {
	if err := c.rdb.Set(ctx, "textindex:"+key, value, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("text index cache write failed")
	}
}
