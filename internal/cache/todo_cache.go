package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	dom "github.com/Jeremieon/todo-api-cicd/internal/domain"

	"github.com/redis/go-redis/v9"
)

const (
	keyItem = "todo:item:"
	keyList = "todo:list:"
	keyGen  = "todo:gen"
)

// setIfGen stores ARGV[2] under KEYS[2] only while KEYS[1] still holds the generation in ARGV[1].
var setIfGen = redis.NewScript(`
local cur = redis.call('GET', KEYS[1]) or '0'
if cur ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// TodoCache caches single todos and list pages in Redis.
// A miss is reported as (nil, nil).
//
// Fills are tagged with the generation read before the database fetch. Invalidate bumps
// the generation, so a fill that started before a write is dropped instead of stored.
type TodoCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewTodoCache returns a new TodoCache. A non-positive ttl means one minute.
func NewTodoCache(rdb *redis.Client, ttl time.Duration) *TodoCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TodoCache{rdb: rdb, ttl: ttl}
}

func itemKey(id int64) string { return keyItem + strconv.FormatInt(id, 10) }

func listKey(skip, limit int) string { return fmt.Sprintf("%s%d:%d", keyList, skip, limit) }

func getJSON[T any](ctx context.Context, rdb *redis.Client, key string) (*T, error) {
	b, err := rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// setJSON stores v under key if gen is still current. It reports whether the value was stored.
func (c *TodoCache) setJSON(ctx context.Context, gen int64, key string, v any) (bool, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return false, err
	}
	n, err := setIfGen.Run(ctx, c.rdb, []string{keyGen, key},
		strconv.FormatInt(gen, 10), b, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Generation returns the current invalidation generation. Read it before fetching the
// data that is later passed to SetTodo or SetList.
func (c *TodoCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, keyGen).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// GetTodo returns the cached todo or nil on miss.
func (c *TodoCache) GetTodo(ctx context.Context, id int64) (*dom.Todo, error) {
	return getJSON[dom.Todo](ctx, c.rdb, itemKey(id))
}

// SetTodo stores one todo unless an invalidation happened after gen was read.
func (c *TodoCache) SetTodo(ctx context.Context, gen int64, t dom.Todo) (bool, error) {
	return c.setJSON(ctx, gen, itemKey(t.ID), t)
}

// GetList returns the cached page or nil on miss.
func (c *TodoCache) GetList(ctx context.Context, skip, limit int) ([]dom.Todo, error) {
	list, err := getJSON[[]dom.Todo](ctx, c.rdb, listKey(skip, limit))
	if err != nil || list == nil {
		return nil, err
	}
	return *list, nil
}

// SetList stores one page unless an invalidation happened after gen was read.
func (c *TodoCache) SetList(ctx context.Context, gen int64, skip, limit int, list []dom.Todo) (bool, error) {
	return c.setJSON(ctx, gen, listKey(skip, limit), list)
}

// Invalidate bumps the generation, then removes the todo with id and every cached list page.
func (c *TodoCache) Invalidate(ctx context.Context, id int64) error {
	if err := c.rdb.Incr(ctx, keyGen).Err(); err != nil {
		return err
	}
	if err := c.rdb.Del(ctx, itemKey(id)).Err(); err != nil {
		return err
	}
	iter := c.rdb.Scan(ctx, 0, keyList+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Ping checks the Redis connection.
func (c *TodoCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
