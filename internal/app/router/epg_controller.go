package router

import (
	"epg/internal/app/epg"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JsonProgram JSON格式的节目
type JsonProgram struct {
	Title    string `json:"title"`    // 标题
	Desc     string `json:"desc"`     // 描述
	Category string `json:"category"` // 分类
	Start    string `json:"start"`    // 开始时间，RFC3339格式
	End      string `json:"end"`      // 结束时间，RFC3339格式
}

// ChannelJsonEPG 频道的JSON格式节目单
type ChannelJsonEPG struct {
	ChannelId string        `json:"channel_id"`
	EPGData   []JsonProgram `json:"epg_data"`
}

func toJsonProgram(p *epg.Program) JsonProgram {
	return JsonProgram{
		Title:    p.Title,
		Desc:     p.Description,
		Category: p.Category,
		Start:    p.Start.Format(time.RFC3339),
		End:      p.Stop.Format(time.RFC3339),
	}
}

// GetCurrentProgram 查询频道当前正在播出的节目
func (h *Handler) GetCurrentProgram(c *gin.Context) {
	// 获取频道Id
	chId := c.Query("ch")
	if chId == "" {
		h.logger.Warn("The id of the channel is null.")
		c.Status(http.StatusBadRequest)
		return
	}

	prog, ok := h.guide.CurrentProgram(chId)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	c.PureJSON(http.StatusOK, toJsonProgram(&prog))
}

// GetUpcomingPrograms 查询频道即将播出的节目
func (h *Handler) GetUpcomingPrograms(c *gin.Context) {
	var err error

	// 获取频道Id
	chId := c.Query("ch")
	if chId == "" {
		h.logger.Warn("The id of the channel is null.")
		c.Status(http.StatusBadRequest)
		return
	}

	// 返回的节目数量
	limit := h.upcomingLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil || limit <= 0 {
			limit = h.upcomingLimit
		}
	}

	progs := h.guide.UpcomingPrograms(chId, limit)
	epgData := make([]JsonProgram, 0, len(progs))
	for i := range progs {
		epgData = append(epgData, toJsonProgram(&progs[i]))
	}

	c.PureJSON(http.StatusOK, &ChannelJsonEPG{
		ChannelId: chId,
		EPGData:   epgData,
	})
}

// GetStatus 查询更新状态
func (h *Handler) GetStatus(c *gin.Context) {
	c.PureJSON(http.StatusOK, h.guide.Status())
}

// PostUpdate 在后台触发一次更新
func (h *Handler) PostUpdate(c *gin.Context) {
	// 返回前已占用更新标志，并发请求只有一个会被接受
	if !h.guide.StartUpdate(h.ctx, h.url) {
		c.PureJSON(http.StatusConflict, h.guide.Status())
		return
	}

	h.logger.Info("Manual EPG update accepted.", zap.String("url", h.url))
	c.Status(http.StatusAccepted)
}
