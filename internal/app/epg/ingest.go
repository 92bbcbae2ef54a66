package epg

import (
	"context"
	"epg/internal/pkg/xmltree"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBatchSize 每批处理的programme节点数量
const DefaultBatchSize = 10000

// Counters 单个频道在一次导入中的统计
type Counters struct {
	Total   int `json:"total"`   // 节点总数
	Valid   int `json:"valid"`   // 有效节目数
	Skipped int `json:"skipped"` // 因时间无法解析而跳过的数量
}

// Report 一次导入的统计结果
type Report struct {
	Batches        int                  `json:"batches"`
	Nodes          int                  `json:"nodes"`
	Accepted       int                  `json:"accepted"`
	Skipped        int                  `json:"skipped"`
	MissingChannel int                  `json:"missingChannel"` // 缺少channel属性的节点
	Inverted       int                  `json:"inverted"`       // 开始时间晚于结束时间的节目，仍会保留
	Channels       map[string]*Counters `json:"channels"`
	Duration       time.Duration        `json:"duration"`
}

// Ingester 分批将programme节点导入为频道节目单
type Ingester struct {
	batchSize int
	limiter   *rate.Limiter // 批次之间的节流，为nil时不等待
	logger    *zap.Logger
}

// NewIngester 创建导入器，batchSize<=0时使用DefaultBatchSize，batchDelay<=0时批次之间不等待
func NewIngester(batchSize int, batchDelay time.Duration, logger *zap.Logger) *Ingester {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	in := Ingester{
		batchSize: batchSize,
		logger:    logger,
	}
	if batchDelay > 0 {
		in.limiter = rate.NewLimiter(rate.Every(batchDelay), 1)
	}
	return &in
}

// Ingest 按输入顺序分批处理所有节点，返回排序后的新索引。
// 单个节点的错误不会中断导入，只有ctx被取消时返回错误。
func (in *Ingester) Ingest(ctx context.Context, nodes []*xmltree.Node) (*Index, *Report, error) {
	begin := time.Now()
	idx := newIndex()
	report := &Report{
		Nodes:    len(nodes),
		Channels: make(map[string]*Counters),
	}

	for offset := 0; offset < len(nodes); offset += in.batchSize {
		if err := in.wait(ctx, offset); err != nil {
			return nil, report, err
		}

		end := min(offset+in.batchSize, len(nodes))
		for _, node := range nodes[offset:end] {
			in.ingestNode(idx, report, node)
		}
		report.Batches++

		in.logger.Info("Programme batch processed.",
			zap.Int("batch", report.Batches),
			zap.Int("processed", end),
			zap.Int("total", len(nodes)))
	}

	// 所有批次处理完成后统一排序
	idx.sort()
	report.Duration = time.Since(begin)

	for channelId, counters := range report.Channels {
		in.logger.Debug("Channel programmes ingested.",
			zap.String("channelId", channelId),
			zap.Int("total", counters.Total),
			zap.Int("valid", counters.Valid),
			zap.Int("skipped", counters.Skipped))
	}
	in.logger.Info("Programme ingestion completed.",
		zap.Int("channels", idx.ChannelCount()),
		zap.Int("programs", idx.ProgramCount()),
		zap.Int("skipped", report.Skipped),
		zap.Int("missingChannel", report.MissingChannel),
		zap.Duration("duration", report.Duration))

	return idx, report, nil
}

// wait 在批次之间让出执行并检查取消
func (in *Ingester) wait(ctx context.Context, offset int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset == 0 || in.limiter == nil {
		return nil
	}
	return in.limiter.Wait(ctx)
}

func (in *Ingester) ingestNode(idx *Index, report *Report, node *xmltree.Node) {
	channelId, prog, err := BuildProgram(node)
	if errors.Is(err, ErrMissingChannel) {
		report.MissingChannel++
		return
	}

	idx.ensure(channelId)
	counters, ok := report.Channels[channelId]
	if !ok {
		counters = &Counters{}
		report.Channels[channelId] = counters
	}
	counters.Total++

	if err != nil {
		counters.Skipped++
		report.Skipped++
		in.logger.Debug("Skip programme with invalid time.",
			zap.String("channelId", channelId), zap.Error(err))
		return
	}

	if prog.Start.After(prog.Stop) {
		report.Inverted++
	}
	idx.add(channelId, prog)
	counters.Valid++
	report.Accepted++
}
