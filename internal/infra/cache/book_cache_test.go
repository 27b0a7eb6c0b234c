package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookstore/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookCache_HitAfterFirstLoad(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	var calls int32

	load := func(ctx context.Context) (model.Book, error) {
		atomic.AddInt32(&calls, 1)
		return model.Book{ID: 1, Title: "Go", Price: decimal.RequireFromString("10.00")}, nil
	}

	for i := 0; i < 3; i++ {
		b, err := c.Get(context.Background(), 1, load)
		require.NoError(t, err)
		assert.Equal(t, "Go", b.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}

func TestBookCache_InvalidateReloads(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	title := "before"
	load := func(ctx context.Context) (model.Book, error) {
		return model.Book{ID: 1, Title: title}, nil
	}

	b, err := c.Get(context.Background(), 1, load)
	require.NoError(t, err)
	assert.Equal(t, "before", b.Title)

	title = "after"
	b, _ = c.Get(context.Background(), 1, load)
	assert.Equal(t, "before", b.Title)

	c.Invalidate(1)
	b, err = c.Get(context.Background(), 1, load)
	require.NoError(t, err)
	assert.Equal(t, "after", b.Title)
}

func TestBookCache_ErrorsAreNotCached(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	boom := errors.New("not found")
	var calls int32

	load := func(ctx context.Context) (model.Book, error) {
		atomic.AddInt32(&calls, 1)
		return model.Book{}, boom
	}

	_, err := c.Get(context.Background(), 7, load)
	assert.ErrorIs(t, err, boom)
	_, err = c.Get(context.Background(), 7, load)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len())
}

func TestBookCache_ConcurrentMissesShareOneLoad(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	var calls int32
	release := make(chan struct{})

	load := func(ctx context.Context) (model.Book, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return model.Book{ID: 3, Title: "SQL"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := c.Get(context.Background(), 3, load)
			assert.NoError(t, err)
			assert.Equal(t, "SQL", b.Title)
		}()
	}

	// 全員が待ちに入るまで少し待つ
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(2))
}

func TestBookCache_PurgeDropsEverything(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	load := func(id int64) func(ctx context.Context) (model.Book, error) {
		return func(ctx context.Context) (model.Book, error) { return model.Book{ID: id}, nil }
	}
	_, _ = c.Get(context.Background(), 1, load(1))
	_, _ = c.Get(context.Background(), 2, load(2))
	assert.Equal(t, 2, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

// 最初の呼び出し元がキャンセルされても、相乗りした側は結果を受け取れる
func TestBookCache_FirstCallerCancelDoesNotFailWaiters(t *testing.T) {
	c := NewBookCache(10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	var calls int32

	load := func(ctx context.Context) (model.Book, error) {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return model.Book{}, err
		}
		return model.Book{ID: 9, Title: "Go"}, nil
	}

	firstCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var firstErr, secondErr error
	var second model.Book

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = c.Get(firstCtx, 9, load)
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		second, secondErr = c.Get(context.Background(), 9, load)
	}()

	cancel()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.NoError(t, firstErr)
	require.NoError(t, secondErr)
	assert.Equal(t, "Go", second.Title)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, c.Len())
}
