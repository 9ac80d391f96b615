package collector

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Result 单个数据源一次调用的结果，失败时 Err 非空、Articles 为空
type Result struct {
	Source   string
	Articles []Article
	Err      error
	Elapsed  time.Duration
}

// RunAll 并发调用所有数据源。单个数据源的错误或 panic 只影响它自己；
// ctx 结束时已返回的结果照常保留，未返回的数据源记为 ctx.Err()。
func RunAll(ctx context.Context, fetchers []Fetcher) []Result {
	ch := make(chan indexedResult, len(fetchers))
	for i, f := range fetchers {
		go func(idx int, fetcher Fetcher) {
			ch <- indexedResult{idx: idx, res: runOne(ctx, fetcher)}
		}(i, f)
	}

	results := make([]Result, len(fetchers))
	done := make([]bool, len(fetchers))
	for received := 0; received < len(fetchers); received++ {
		select {
		case ir := <-ch:
			results[ir.idx] = ir.res
			done[ir.idx] = true
		case <-ctx.Done():
			for i, f := range fetchers {
				if !done[i] {
					results[i] = Result{Source: f.Name(), Err: ctx.Err()}
					log.Printf("fetch %s abandoned: %v", f.Name(), ctx.Err())
				}
			}
			return results
		}
	}
	return results
}

type indexedResult struct {
	idx int
	res Result
}

func runOne(ctx context.Context, f Fetcher) (res Result) {
	name := f.Name()
	start := time.Now()
	res.Source = name

	defer func() {
		if r := recover(); r != nil {
			res.Articles = nil
			res.Err = fmt.Errorf("fetch %s panic: %v", name, r)
		}
		res.Elapsed = time.Since(start)
		if res.Err != nil {
			log.Printf("fetch %s error: %v", name, res.Err)
			return
		}
		log.Printf("fetch %s done, got %d items in %s", name, len(res.Articles), res.Elapsed.Round(time.Millisecond))
	}()

	items, err := f.Fetch(ctx)
	if err != nil {
		res.Err = err
		return res
	}
	res.Articles = items
	return res
}

// Merge 拼接所有数据源的结果
func Merge(results []Result) []Article {
	n := 0
	for _, r := range results {
		n += len(r.Articles)
	}
	out := make([]Article, 0, n)
	for _, r := range results {
		out = append(out, r.Articles...)
	}
	return out
}
