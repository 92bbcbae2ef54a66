package epg

import (
	"slices"
	"sort"
	"strings"
)

// Index 频道Id到节目单的映射，发布后只读
type Index struct {
	channels map[string][]Program
	programs int
}

func newIndex() *Index {
	return &Index{channels: make(map[string][]Program)}
}

// ensure 确保频道存在（可能为空列表）
func (idx *Index) ensure(channelId string) {
	if _, ok := idx.channels[channelId]; !ok {
		idx.channels[channelId] = []Program{}
	}
}

func (idx *Index) add(channelId string, prog Program) {
	idx.channels[channelId] = append(idx.channels[channelId], prog)
	idx.programs++
}

// sort 对每个频道的节目单按开始时间升序排序，开始时间相同的保持原顺序
func (idx *Index) sort() {
	for _, progs := range idx.channels {
		slices.SortStableFunc(progs, func(a, b Program) int {
			return a.Start.Compare(b.Start)
		})
	}
}

// Programs 返回频道的节目单，不存在时返回false。返回值不可修改。
func (idx *Index) Programs(channelId string) ([]Program, bool) {
	if idx == nil {
		return nil, false
	}
	progs, ok := idx.channels[channelId]
	return progs, ok
}

// ChannelCount 频道数量
func (idx *Index) ChannelCount() int {
	if idx == nil {
		return 0
	}
	return len(idx.channels)
}

// ProgramCount 节目总数
func (idx *Index) ProgramCount() int {
	if idx == nil {
		return 0
	}
	return idx.programs
}

// IsEmpty 是否没有任何频道
func (idx *Index) IsEmpty() bool {
	return idx.ChannelCount() == 0
}

// ChannelIds 按字母排序的频道Id列表
func (idx *Index) ChannelIds() []string {
	if idx == nil {
		return nil
	}
	ids := make([]string, 0, len(idx.channels))
	for id := range idx.channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FuzzyMatch 忽略大小写的模糊匹配，仅用于诊断未命中的频道Id
func (idx *Index) FuzzyMatch(query string) []string {
	q := strings.ToLower(query)
	if q == "" {
		return nil
	}

	var matches []string
	for _, id := range idx.ChannelIds() {
		lid := strings.ToLower(id)
		if lid == q || strings.Contains(lid, q) || strings.Contains(q, lid) {
			matches = append(matches, id)
		}
	}
	return matches
}
