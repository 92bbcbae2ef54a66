package epg

import (
	"bytes"
	"context"
	"epg/internal/pkg/xmltree"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// DefaultMaxAge 超过该时间未成功更新则需要更新
const DefaultMaxAge = 24 * time.Hour

const (
	stageFetch  = "fetch"
	stageParse  = "parse"
	stageIngest = "ingest"
	stagePanic  = "panic"
)

var gzipMagic = []byte{0x1f, 0x8b}

// ErrNotXMLTV 文档根元素不是<tv>，例如上游返回的HTML错误页
var ErrNotXMLTV = errors.New("root element is not <tv>")

// Fetcher 下载原始EPG数据
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Decompressor 解压EPG数据，失败时调用方会直接使用原始数据
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Parser 将XML文本解析为通用节点树
type Parser interface {
	Parse(data []byte) (*xmltree.Node, error)
}

// Metrics 更新和查询的指标
type Metrics interface {
	UpdateSucceeded(report *Report, channels, programs int)
	UpdateFailed(stage string)
	LookupServed(kind string, found bool)
}

type nopMetrics struct{}

func (nopMetrics) UpdateSucceeded(*Report, int, int) {}
func (nopMetrics) UpdateFailed(string)               {}
func (nopMetrics) LookupServed(string, bool)         {}

// Options Guide的可选配置
type Options struct {
	BatchSize  int              // 每批处理的节点数，缺省DefaultBatchSize
	BatchDelay time.Duration    // 批次之间的间隔
	MaxAge     time.Duration    // 数据有效期，缺省DefaultMaxAge
	Clock      func() time.Time // 当前时间，缺省time.Now
	Metrics    Metrics
	Logger     *zap.Logger
}

// Status 更新状态
type Status struct {
	IsUpdating    bool       `json:"isUpdating"`
	LastUpdate    *time.Time `json:"lastUpdate"`
	ChannelsCount int        `json:"channelsCount"`
	ProgramsCount int        `json:"programsCount"`
	SkippedCount  int        `json:"skippedCount"`
	NeedsUpdate   bool       `json:"needsUpdate"`
	LastError     string     `json:"lastError,omitempty"`
}

// stageError 记录失败的流水线阶段
type stageError struct {
	stage string
	err   error
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.stage, e.err)
}

func (e *stageError) Unwrap() error {
	return e.err
}

// Guide 维护内存中的节目单索引，负责更新和查询
type Guide struct {
	fetcher      Fetcher
	decompressor Decompressor
	parser       Parser
	ingester     *Ingester

	maxAge  time.Duration
	now     func() time.Time
	metrics Metrics
	logger  *zap.Logger

	updating atomic.Bool
	index    atomic.Pointer[Index] // 已发布的索引，只会整体替换

	mu         sync.RWMutex
	lastUpdate *time.Time
	lastReport *Report
	lastError  error
}

func NewGuide(fetcher Fetcher, decompressor Decompressor, parser Parser, opts Options) *Guide {
	g := Guide{
		fetcher:      fetcher,
		decompressor: decompressor,
		parser:       parser,
		maxAge:       opts.MaxAge,
		now:          opts.Clock,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if g.maxAge <= 0 {
		g.maxAge = DefaultMaxAge
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.metrics == nil {
		g.metrics = nopMetrics{}
	}
	if g.logger == nil {
		g.logger = zap.L()
	}
	g.ingester = NewIngester(opts.BatchSize, opts.BatchDelay, g.logger)
	g.index.Store(newIndex())
	return &g
}

// Initialize 索引为空时执行一次更新，返回是否执行了更新
func (g *Guide) Initialize(ctx context.Context, url string) bool {
	if !g.index.Load().IsEmpty() {
		g.logger.Info("EPG index already populated, skip initial update.")
		return false
	}
	return g.TriggerUpdate(ctx, url)
}

// TriggerUpdate 执行一次完整的更新流程。
// 已有更新在进行时直接返回false；更新失败时保留原有索引，错误仅记录在Status中。
func (g *Guide) TriggerUpdate(ctx context.Context, url string) bool {
	if !g.tryStart() {
		return false
	}
	g.run(ctx, url)
	return true
}

// StartUpdate 占用更新标志后在后台执行更新，已有更新进行时返回false
func (g *Guide) StartUpdate(ctx context.Context, url string) bool {
	if !g.tryStart() {
		return false
	}
	go g.run(ctx, url)
	return true
}

func (g *Guide) tryStart() bool {
	if !g.updating.CompareAndSwap(false, true) {
		g.logger.Info("An EPG update is already in progress, skip it.")
		return false
	}
	return true
}

// run 执行更新，调用前必须已通过tryStart占用更新标志
func (g *Guide) run(ctx context.Context, url string) {
	defer g.updating.Store(false)

	g.logger.Info("Start updating EPG.", zap.String("url", url))

	idx, report, err := g.update(ctx, url)
	if err != nil {
		g.fail(err)
		return
	}

	completedAt := g.now()
	g.index.Store(idx)

	g.mu.Lock()
	g.lastUpdate = &completedAt
	g.lastReport = report
	g.lastError = nil
	g.mu.Unlock()

	g.metrics.UpdateSucceeded(report, idx.ChannelCount(), idx.ProgramCount())
	g.logger.Sugar().Infof("EPG data updated, channels: %d, programs: %d.", idx.ChannelCount(), idx.ProgramCount())
}

// update 顺序执行下载、解压、解析、导入，任一阶段失败立即返回
func (g *Guide) update(ctx context.Context, url string) (idx *Index, report *Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			idx, report = nil, nil
			err = &stageError{stage: stagePanic, err: fmt.Errorf("%v", r)}
		}
	}()

	raw, err := g.fetch(ctx, url)
	if err != nil {
		return nil, nil, err
	}

	text := g.decompress(raw)

	nodes, err := g.parse(text)
	if err != nil {
		return nil, nil, err
	}

	idx, report, err = g.ingester.Ingest(ctx, nodes)
	if err != nil {
		return nil, nil, &stageError{stage: stageIngest, err: err}
	}
	return idx, report, nil
}

func (g *Guide) fetch(ctx context.Context, url string) ([]byte, error) {
	raw, err := g.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &stageError{stage: stageFetch, err: err}
	}
	g.logger.Info("EPG data downloaded.", zap.Int("bytes", len(raw)))
	return raw, nil
}

// decompress 解压失败时直接将原始数据当作文本
func (g *Guide) decompress(raw []byte) []byte {
	text, err := g.decompressor.Decompress(raw)
	if err == nil {
		return text
	}

	if bytes.HasPrefix(raw, gzipMagic) {
		// 带有gzip头却解压失败，数据可能已损坏
		g.logger.Warn("Failed to decompress gzip data, use the raw data instead.", zap.Error(err))
	} else {
		g.logger.Debug("EPG data is not gzip compressed.")
	}
	return raw
}

func (g *Guide) parse(text []byte) ([]*xmltree.Node, error) {
	root, err := g.parser.Parse(text)
	if err != nil {
		return nil, &stageError{stage: stageParse, err: err}
	}

	if root == nil || root.Name != "tv" {
		name := ""
		if root != nil {
			name = root.Name
		}
		return nil, &stageError{stage: stageParse, err: fmt.Errorf("%w: got <%s>", ErrNotXMLTV, name)}
	}
	return root.ChildrenNamed("programme"), nil
}

func (g *Guide) fail(err error) {
	stage := stageIngest
	var se *stageError
	if errors.As(err, &se) {
		stage = se.stage
	}

	g.mu.Lock()
	g.lastError = err
	g.mu.Unlock()

	g.metrics.UpdateFailed(stage)
	g.logger.Error("Failed to update EPG.", zap.String("stage", stage), zap.Error(err))
}

// NeedsUpdate 从未更新或距离上次成功更新超过有效期
func (g *Guide) NeedsUpdate() bool {
	g.mu.RLock()
	lastUpdate := g.lastUpdate
	g.mu.RUnlock()

	if lastUpdate == nil {
		return true
	}
	return g.now().Sub(*lastUpdate) > g.maxAge
}

// IsAvailable 索引不为空且当前没有在更新
func (g *Guide) IsAvailable() bool {
	return !g.index.Load().IsEmpty() && !g.updating.Load()
}

// IsUpdating 是否正在更新
func (g *Guide) IsUpdating() bool {
	return g.updating.Load()
}

// Status 返回当前状态
func (g *Guide) Status() Status {
	idx := g.index.Load()
	status := Status{
		IsUpdating:    g.updating.Load(),
		ChannelsCount: idx.ChannelCount(),
		ProgramsCount: idx.ProgramCount(),
		NeedsUpdate:   g.NeedsUpdate(),
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.lastUpdate != nil {
		lastUpdate := *g.lastUpdate
		status.LastUpdate = &lastUpdate
	}
	if g.lastReport != nil {
		status.SkippedCount = g.lastReport.Skipped
	}
	if g.lastError != nil {
		status.LastError = g.lastError.Error()
	}
	return status
}

// Index 返回当前已发布的索引
func (g *Guide) Index() *Index {
	return g.index.Load()
}
