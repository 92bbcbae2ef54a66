package epg

import (
	"sort"

	"go.uber.org/zap"
)

// DefaultUpcomingLimit 缺省返回的后续节目数量
const DefaultUpcomingLimit = 5

const (
	lookupCurrent  = "current"
	lookupUpcoming = "upcoming"
)

// CurrentProgram 查询频道当前正在播出的节目，频道Id需精确匹配
func (g *Guide) CurrentProgram(channelId string) (Program, bool) {
	now := g.now()
	progs, ok := g.index.Load().Programs(channelId)
	if !ok || len(progs) == 0 {
		g.logMiss(channelId)
		g.metrics.LookupServed(lookupCurrent, false)
		return Program{}, false
	}

	for _, prog := range progs {
		if prog.Start.After(now) {
			// 节目单按开始时间升序，后续节目均未开始
			break
		}
		if prog.IsValid() && prog.IsAiring(now) {
			g.metrics.LookupServed(lookupCurrent, true)
			return prog, true
		}
	}

	g.metrics.LookupServed(lookupCurrent, false)
	return Program{}, false
}

// UpcomingPrograms 查询频道即将播出的节目，limit<=0时使用DefaultUpcomingLimit
func (g *Guide) UpcomingPrograms(channelId string, limit int) []Program {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	now := g.now()
	progs, ok := g.index.Load().Programs(channelId)
	if !ok || len(progs) == 0 {
		g.logMiss(channelId)
		g.metrics.LookupServed(lookupUpcoming, false)
		return []Program{}
	}

	// 第一个开始时间不早于当前时间的节目
	first := sort.Search(len(progs), func(i int) bool {
		return !progs[i].Start.Before(now)
	})

	// limit可能远大于剩余节目数，容量以剩余节目数为上限
	result := make([]Program, 0, min(limit, len(progs)-first))
	for _, prog := range progs[first:] {
		if len(result) == limit {
			break
		}
		if prog.IsValid() {
			result = append(result, prog)
		}
	}

	g.metrics.LookupServed(lookupUpcoming, len(result) > 0)
	return result
}

// logMiss 记录未命中频道的模糊匹配结果，便于排查频道Id配置问题
func (g *Guide) logMiss(channelId string) {
	if ce := g.logger.Check(zap.DebugLevel, "Channel not found in EPG."); ce != nil {
		idx := g.index.Load()
		ce.Write(zap.String("channelId", channelId),
			zap.Int("channels", idx.ChannelCount()),
			zap.Strings("similar", idx.FuzzyMatch(channelId)))
	}
}
