package cache

import (
	"context"
	"strconv"
	"time"

	"bookstore/internal/domain/model"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// 書籍詳細の読み取りキャッシュ（プロセス内）
// 価格・タイトルの変更は Invalidate で即時反映、取りこぼしても ttl で消える
type BookCache struct {
	lru   *expirable.LRU[int64, model.Book]
	group singleflight.Group
}

func NewBookCache(size int, ttl time.Duration) *BookCache {
	if size <= 0 {
		size = 1024
	}
	return &BookCache{lru: expirable.NewLRU[int64, model.Book](size, nil, ttl)}
}

// キャッシュに無ければ load を呼ぶ。同じIDの同時ミスは1回の load にまとめる。
// load のエラーはキャッシュしない。
// load は呼び出し元のキャンセルを引き継がない（相乗りした他のリクエストまで失敗させない）
func (c *BookCache) Get(ctx context.Context, id int64, load func(ctx context.Context) (model.Book, error)) (model.Book, error) {
	if b, ok := c.lru.Get(id); ok {
		return b, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		b, err := load(loadCtx)
		if err != nil {
			return model.Book{}, err
		}
		c.lru.Add(id, b)
		return b, nil
	})
	if err != nil {
		return model.Book{}, err
	}
	return v.(model.Book), nil
}

func (c *BookCache) Invalidate(id int64) {
	c.lru.Remove(id)
}

// カテゴリ削除など複数の書籍に効く変更のとき
func (c *BookCache) Purge() {
	c.lru.Purge()
}

func (c *BookCache) Len() int {
	return c.lru.Len()
}
