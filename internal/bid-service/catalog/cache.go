package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/card-bid-platform-poc/internal/bid-service/repo"
)

// CacheKey guarda o catálogo serializado no Redis; o round-service apaga
// a chave quando um admin muda preço ou ativação de uma seleção.
const CacheKey = "selections:catalog"

// Cache lê o catálogo de seleções preferencialmente do Redis,
// caindo para o Postgres em caso de miss.
type Cache struct {
	rdb  *redis.Client
	repo *repo.Postgres
	ttl  time.Duration
}

func NewCache(rdb *redis.Client, r *repo.Postgres, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, repo: r, ttl: ttl}
}

// List retorna o catálogo, populando o cache no miss
func (c *Cache) List(ctx context.Context) ([]repo.Selection, error) {
	if raw, err := c.rdb.Get(ctx, CacheKey).Bytes(); err == nil {
		var out []repo.Selection
		if jerr := json.Unmarshal(raw, &out); jerr == nil {
			return out, nil
		}
		// payload corrompido: ignora e recarrega do banco
	}

	out, err := c.repo.ListSelections(ctx)
	if err != nil {
		return nil, err
	}

	if b, jerr := json.Marshal(out); jerr == nil {
		_ = c.rdb.Set(ctx, CacheKey, b, c.ttl).Err()
	}
	return out, nil
}
