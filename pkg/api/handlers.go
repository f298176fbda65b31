package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"StickerRadar/pkg/engine"
	"StickerRadar/pkg/model"
	"StickerRadar/pkg/monitor"
	"StickerRadar/pkg/repository"
)

// AlertHistory 提醒历史查询接口
type AlertHistory interface {
	GetAlertHistory(userID int64, limit int) ([]model.PriceAlert, error)
}

// Handlers API处理程序
type Handlers struct {
	store   repository.CollectionStore
	history AlertHistory
	engine  *engine.MonitorEngine // 为nil时即时查价接口不可用
	health  *monitor.Monitor
}

// NewHandlers 创建新的API处理程序
func NewHandlers(
	store repository.CollectionStore,
	history AlertHistory,
	monitorEngine *engine.MonitorEngine,
	health *monitor.Monitor,
) *Handlers {
	return &Handlers{
		store:   store,
		history: history,
		engine:  monitorEngine,
		health:  health,
	}
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
		return
	}

	status := "ok"
	code := http.StatusOK
	if !h.health.Healthy() {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status,
		"components": h.health.GetAllStatus(),
	})
}

// ReadinessCheck 就绪检查处理程序
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	// 存储层可读即视为就绪
	if _, err := h.store.ListAll(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// ListCollections 查询藏品列表处理程序
// user_id 为空时返回全部藏品
func (h *Handlers) ListCollections(c *gin.Context) {
	userID, ok := parseUserID(c, false)
	if !ok {
		return
	}

	var (
		collections []model.Collection
		err         error
	)
	if userID == 0 {
		collections, err = h.store.ListAll()
	} else {
		collections, err = h.store.ListByUser(userID)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询藏品失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": collections,
	})
}

// CreateCollection 创建藏品处理程序
func (h *Handlers) CreateCollection(c *gin.Context) {
	var collection model.Collection
	if err := c.ShouldBindJSON(&collection); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}
	if collection.OwnerUserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "owner_user_id不能为空",
		})
		return
	}
	if err := collection.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.store.Save(&collection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "保存藏品失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": collection,
	})
}

// UpdateCollection 更新藏品处理程序
// 更新成功后重置该藏品的提醒状态，新阈值按首次穿越重新触发
func (h *Handlers) UpdateCollection(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.store.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询藏品失败: " + err.Error(),
		})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "藏品不存在",
		})
		return
	}

	var collection model.Collection
	if err := c.ShouldBindJSON(&collection); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}
	collection.ID = id
	collection.OwnerUserID = existing.OwnerUserID
	if err := collection.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.store.Update(&collection); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "更新藏品失败: " + err.Error(),
		})
		return
	}

	if h.engine != nil {
		h.engine.Ledger().ResetCollection(existing.OwnerUserID, id)
	}

	c.JSON(http.StatusOK, gin.H{
		"data": collection,
	})
}

// DeleteCollection 删除藏品处理程序
func (h *Handlers) DeleteCollection(c *gin.Context) {
	id := c.Param("id")

	existing, err := h.store.Get(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询藏品失败: " + err.Error(),
		})
		return
	}
	if existing == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "藏品不存在",
		})
		return
	}

	if err := h.store.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "删除藏品失败: " + err.Error(),
		})
		return
	}

	if h.engine != nil {
		h.engine.Ledger().RemoveCollection(existing.OwnerUserID, id)
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
	})
}

// GetAlertHistory 获取提醒历史处理程序
func (h *Handlers) GetAlertHistory(c *gin.Context) {
	userID, ok := parseUserID(c, false)
	if !ok {
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "limit参数无效",
			})
			return
		}
		limit = n
	}

	alerts, err := h.history.GetAlertHistory(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取提醒历史失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

// ManualCheck 手动触发一次查价处理程序
func (h *Handlers) ManualCheck(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "监控引擎未就绪",
		})
		return
	}

	userID, ok := parseUserID(c, true)
	if !ok {
		return
	}

	lines, err := h.engine.ManualCheck(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "查价失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": lines,
	})
}

// CheckAvailability 检查商品能否查到报价处理程序
func (h *Handlers) CheckAvailability(c *gin.Context) {
	if h.engine == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "监控引擎未就绪",
		})
		return
	}

	goodName := c.Query("good")
	if goodName == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "good参数不能为空",
		})
		return
	}

	result, err := h.engine.CheckAvailability(c.Request.Context(), goodName)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "查询上游失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// parseUserID 解析 user_id 查询参数
// required 为false时缺省返回0
func parseUserID(c *gin.Context, required bool) (int64, bool) {
	raw := c.Query("user_id")
	if raw == "" {
		if required {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "user_id参数不能为空",
			})
			return 0, false
		}
		return 0, true
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "user_id参数无效",
		})
		return 0, false
	}
	return userID, true
}
