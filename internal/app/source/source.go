package source

import (
	"bytes"
	"compress/gzip"
	"context"
	"epg/internal/app/epg"
	"epg/internal/pkg/xmltree"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

var ErrEmptyBody = errors.New("empty response body")

const defaultUserAgent = "epg/1.0"

var (
	_ epg.Fetcher      = (*HTTPFetcher)(nil)
	_ epg.Decompressor = GzipDecompressor{}
	_ epg.Parser       = XMLParser{}
)

// HTTPFetcher 通过HTTP下载EPG文件
type HTTPFetcher struct {
	httpClient *http.Client      // HTTP客户端
	headers    map[string]string // 自定义HTTP请求头

	logger *zap.Logger // 日志
}

func NewHTTPFetcher(httpClient *http.Client, headers map[string]string) *HTTPFetcher {
	f := HTTPFetcher{
		httpClient: httpClient,
		headers:    headers,
		logger:     zap.L(),
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{
			Timeout: 5 * time.Minute,
		}
	}
	return &f
}

// Fetch 下载指定URL的内容
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	// 创建请求
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// 设置请求头
	req.Header.Set("User-Agent", defaultUserAgent)
	req.Header.Set("Accept", "application/xml, text/xml, application/gzip, */*")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	// 执行请求
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch epg: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status code: %d", resp.StatusCode)
	}

	// 读取响应内容
	result, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrEmptyBody
	}

	f.logger.Debug("EPG source downloaded.",
		zap.String("url", url),
		zap.String("contentType", resp.Header.Get("Content-Type")),
		zap.Int("bytes", len(result)))
	return result, nil
}

// GzipDecompressor 解压gzip数据
type GzipDecompressor struct{}

// Decompress 非gzip数据或数据损坏时返回错误
func (GzipDecompressor) Decompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	return io.ReadAll(reader)
}

// XMLParser 将XML文本解析为通用节点树
type XMLParser struct{}

func (XMLParser) Parse(data []byte) (*xmltree.Node, error) {
	return xmltree.ParseBytes(data)
}
