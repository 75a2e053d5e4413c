package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/synchrobots/agvdash/internal/projection"
)

// ListRegions 获取全部区域的当前内容
func (h *Handler) ListRegions(c *gin.Context) {
	snaps, err := h.dashboard.Regions().Snapshots()
	if err != nil {
		h.logger.Error("Failed to render regions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render regions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snaps})
}

// GetRegion 获取单个区域的当前内容
func (h *Handler) GetRegion(c *gin.Context) {
	region, ok := h.dashboard.Regions().Get(c.Param("name"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}

	snap, err := region.Snapshot()
	if err != nil {
		h.logger.Error("Failed to render region", zap.String("region", region.Name()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render region"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snap})
}

// GetMarkers 按指定视口重新计算地图标记
// GET /api/markers?w=640&h=360
func (h *Handler) GetMarkers(c *gin.Context) {
	vp := h.viewport
	if w := c.Query("w"); w != "" {
		v, err := strconv.ParseFloat(w, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid width"})
			return
		}
		vp.Width = v
	}
	if hv := c.Query("h"); hv != "" {
		v, err := strconv.ParseFloat(hv, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid height"})
			return
		}
		vp.Height = v
	}

	markers, err := h.dashboard.MarkersFor(vp)
	if err != nil {
		if errors.Is(err, projection.ErrInvalidMeta) {
			c.JSON(http.StatusConflict, gin.H{"error": "Map meta not available"})
			return
		}
		h.logger.Error("Failed to layout markers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to layout markers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     markers,
		"viewport": vp,
	})
}

// GetFreshness 各集合的新鲜度
func (h *Handler) GetFreshness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.dashboard.Freshness()})
}

// MapImage 代理后端地图背景图
// GET /map-image?t=1700000000000
func (h *Handler) MapImage(c *gin.Context) {
	t, err := strconv.ParseInt(c.Query("t"), 10, 64)
	if err != nil {
		t = time.Now().UnixMilli()
	}

	body, contentType, err := h.mapImages.FetchMapImage(c.Request.Context(), t)
	if err != nil {
		h.logger.Error("Failed to fetch map image", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch map image"})
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "image/png"
	}
	c.Header("Cache-Control", "no-cache")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
