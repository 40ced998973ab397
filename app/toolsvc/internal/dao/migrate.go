package dao

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// MigrateReport 迁移结果
type MigrateReport struct {
	Owners int `json:"owners"`
	Tools  int `json:"tools"`
	// Skipped 源端列出但读取为空的玩家
	Skipped int `json:"skipped"`
}

// Migrate 将 src 中的全部玩家集合整条写入 dst，workers 控制并发
//
// 任一玩家失败时停止并返回错误，已写入的玩家不回滚；重复执行是幂等的。
func Migrate(ctx context.Context, src, dst Storage, workers int) (*MigrateReport, error) {
	owners, err := src.Owners(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	if workers < 1 {
		workers = 1
	}

	type result struct {
		tools   int
		skipped bool
	}
	results := make([]result, len(owners))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, ownerID := range owners {
		g.Go(func() error {
			c, err := src.Load(gctx, ownerID)
			if err != nil {
				return fmt.Errorf("failed to load owner %s: %w", ownerID, err)
			}
			if c == nil {
				results[i].skipped = true
				return nil
			}
			if err := dst.Save(gctx, ownerID, c); err != nil {
				return fmt.Errorf("failed to save owner %s: %w", ownerID, err)
			}
			results[i].tools = c.Len()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &MigrateReport{}
	for _, r := range results {
		if r.skipped {
			report.Skipped++
			continue
		}
		report.Owners++
		report.Tools += r.tools
	}
	return report, nil
}
