package epg

import (
	"epg/internal/pkg/xmltree"
	"errors"
	"strings"
	"time"
)

const defaultTitle = "no title"

var (
	ErrMissingChannel   = errors.New("programme has no channel attribute")
	ErrInvalidStart     = errors.New("unparseable start time")
	ErrInvalidStop      = errors.New("unparseable stop time")
	ErrInvalidStartStop = errors.New("unparseable start and stop time")
)

// textAttrKeys 部分源将文本放在属性中，按顺序查找
var textAttrKeys = []string{"text", "value"}

// Program 节目
type Program struct {
	Start       time.Time `json:"start"`       // 开始时间（UTC）
	Stop        time.Time `json:"stop"`        // 结束时间（UTC）
	Title       string    `json:"title"`       // 节目名称
	Description string    `json:"description"` // 节目描述
	Category    string    `json:"category"`    // 节目分类
}

// IsValid 起止时间是否均有效
func (p *Program) IsValid() bool {
	return !p.Start.IsZero() && !p.Stop.IsZero()
}

// IsAiring 判断节目在指定时间是否正在播出（闭区间）
func (p *Program) IsAiring(now time.Time) bool {
	return !now.Before(p.Start) && !now.After(p.Stop)
}

// BuildProgram 将programme节点转换为节目。
// 返回的error为ErrMissingChannel时频道为空，其余错误表示起止时间无法解析。
func BuildProgram(node *xmltree.Node) (string, Program, error) {
	channel, ok := node.Attr("channel")
	if !ok || channel == "" {
		return "", Program{}, ErrMissingChannel
	}

	startStr, _ := node.Attr("start")
	stopStr, _ := node.Attr("stop")
	start, startOK := ParseXMLTVTime(startStr)
	stop, stopOK := ParseXMLTVTime(stopStr)
	switch {
	case !startOK && !stopOK:
		return channel, Program{}, ErrInvalidStartStop
	case !startOK:
		return channel, Program{}, ErrInvalidStart
	case !stopOK:
		return channel, Program{}, ErrInvalidStop
	}

	return channel, Program{
		Start:       start,
		Stop:        stop,
		Title:       nodeText(node.Child("title"), defaultTitle),
		Description: nodeText(node.Child("desc"), ""),
		Category:    nodeText(node.Child("category"), ""),
	}, nil
}

// nodeText 按优先级提取节点文本：
// 元素自身文本 > 文本属性 > 子孙元素的全部文本 > 缺省值
func nodeText(n *xmltree.Node, fallback string) string {
	if n == nil {
		return fallback
	}

	if text := strings.TrimSpace(n.Text); text != "" {
		return text
	}

	for _, key := range textAttrKeys {
		if v, ok := n.Attr(key); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}

	if text := strings.TrimSpace(n.InnerText()); text != "" {
		return text
	}

	return fallback
}
