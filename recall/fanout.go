package recall

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/filmrec/core"
	"github.com/rushteam/filmrec/pipeline"
	"github.com/rushteam/filmrec/pkg/utils"
)

// SourceResult 是单个信号源的执行结果，用于观测。
type SourceResult struct {
	Source  string
	Count   int
	Err     error
	Elapsed time.Duration
}

// Fanout 是一个 Recall Node：并发执行多个信号源，并按 ID 合并结果。
//
// 合并规则：按 Sources 顺序、源内按返回顺序遍历，同 ID 的候选合并为一个 Item，
// 各源原始分数保留在 Features 中（key 为源名称），recall_source label 累积所有命中来源。
// 因此结果顺序只取决于输入，与并发完成顺序无关。
//
// 单个源出错或超时视为该信号缺失（结果为空），不会中断其他源，也不会让整个请求失败。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个信号源的超时时间，0 表示不限制
	MaxConcurrent int           // 最大并发数（0 表示无限制）

	// OnSourceDone 在每个源结束后回调（可选），可能被并发调用
	OnSourceDone func(SourceResult)
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}

	results := make([][]*core.Item, len(n.Sources))
	eg := &errgroup.Group{}
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		i, src := i, src
		eg.Go(func() error {
			recallCtx := ctx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(ctx, n.Timeout)
				defer cancel()
			}

			start := time.Now()
			items, err := src.Recall(recallCtx, rctx)
			if err == nil {
				err = recallCtx.Err()
			}
			if err != nil {
				items = nil
			}
			results[i] = items

			if n.OnSourceDone != nil {
				n.OnSourceDone(SourceResult{
					Source:  src.Name(),
					Count:   len(items),
					Err:     err,
					Elapsed: time.Since(start),
				})
			}
			return nil
		})
	}
	_ = eg.Wait()

	return n.merge(results), nil
}

func (n *Fanout) merge(results [][]*core.Item) []*core.Item {
	var (
		out  []*core.Item
		byID = make(map[string]*core.Item)
	)
	for i, items := range results {
		name := n.Sources[i].Name()
		for _, it := range items {
			if it == nil || it.ID == "" {
				continue
			}
			it.PutLabel("recall_source", utils.Label{Value: name, Source: "recall"})
			if old, ok := byID[it.ID]; ok {
				old.Merge(it)
				continue
			}
			byID[it.ID] = it
			out = append(out, it)
		}
	}
	return out
}
