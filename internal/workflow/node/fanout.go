package node

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut 并发处理 items，结果按输入位置返回；任一失败即取消其余调用并返回该错误。
// limit <= 0 表示不限并发。
func FanOut[I, O any](ctx context.Context, items []I, limit int, fn func(ctx context.Context, idx int, item I) (O, error)) ([]O, error) {
	results := make([]O, len(items))
	if len(items) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range items {
		g.Go(func() error {
			out, err := fn(gctx, i, items[i])
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
