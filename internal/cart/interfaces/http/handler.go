package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/middleware"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const emptyCartMessage = "Votre panier est vide."

// SharedCartLinker 为分享的购物车生成下单链接
type SharedCartLinker interface {
	SharedCartOrderURL(lines []domain.Line) string
}

// CartHandler 购物车 HTTP 处理器，同一会话的所有视图都来自同一个 Store
type CartHandler struct {
	registry  *application.Registry
	links     application.Links
	shared    SharedCartLinker
	heartbeat time.Duration
}

// NewCartHandler 创建购物车处理器
func NewCartHandler(registry *application.Registry, links application.Links, shared SharedCartLinker) *CartHandler {
	return &CartHandler{
		registry:  registry,
		links:     links,
		shared:    shared,
		heartbeat: 25 * time.Second,
	}
}

// RegisterRoutes 注册路由
func (h *CartHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/cart")
	{
		api.GET("", h.GetCart)
		api.GET("/badge", h.GetBadge)
		api.POST("/items", h.AddItem)
		api.DELETE("/items/:id", h.RemoveItem)
		api.DELETE("", h.ClearCart)
		api.GET("/events", h.Events)
		api.GET("/share", h.GetShareLink)
	}
	router.GET("/panier", h.SharedCart) // 分享的购物车
}

// AddItemRequest 加入购物车请求，price 为 null 表示价格面议
type AddItemRequest struct {
	ID          int64               `json:"id" binding:"required"`
	Name        string              `json:"name" binding:"required"`
	Price       decimal.NullDecimal `json:"price"`
	Image       string              `json:"image"`
	Slug        string              `json:"slug"`
	Description string              `json:"description"`
	Category    string              `json:"category"`
}

func (r AddItemRequest) item() domain.Item {
	return domain.Item{
		ID:          r.ID,
		Name:        r.Name,
		Price:       r.Price,
		Image:       r.Image,
		Slug:        r.Slug,
		Description: r.Description,
		Category:    r.Category,
	}
}

// GetCart 返回购物车视图
func (h *CartHandler) GetCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	response.Success(c, store.View())
}

// GetBadge 返回商品总件数
func (h *CartHandler) GetBadge(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	response.Success(c, gin.H{"count": store.Count()})
}

// AddItem 加入商品
func (h *CartHandler) AddItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.AddToCart(c.Request.Context(), req.item()); err != nil {
		if errors.Is(err, domain.ErrInvalidItem) {
			response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.Success(c, store.View())
}

// RemoveItem 删除商品行，不存在的 id 也返回成功
func (h *CartHandler) RemoveItem(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid product id", nil)
		return
	}
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.RemoveFromCart(c.Request.Context(), id); err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.Success(c, store.View())
}

// ClearCart 清空购物车
func (h *CartHandler) ClearCart(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	if err := store.ClearCart(c.Request.Context()); err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.Success(c, store.View())
}

// GetShareLink 返回当前购物车的分享链接
func (h *CartHandler) GetShareLink(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	lines := store.Lines()
	if len(lines) == 0 {
		response.ErrorWithStatus(c, http.StatusConflict, emptyCartMessage, nil)
		return
	}
	shareURL, err := h.links.ShareURL(lines)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.Success(c, gin.H{"share_url": shareURL})
}

// Events 以 SSE 推送购物车视图：连接时先推送当前视图，之后每次变更推送一次
func (h *CartHandler) Events(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	// 只保留最新视图，慢客户端不会阻塞变更
	updates := make(chan application.View, 1)
	unsubscribe := store.Subscribe(func(v application.View) {
		select {
		case updates <- v:
			return
		default:
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- v:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("cart", store.View())
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case v := <-updates:
			c.SSEvent("cart", v)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		}
	})
	logger.Debug(ctx, "Cart event stream closed")
}

// SharedCart 展示分享链接中的购物车（只读，不影响访问者自己的购物车）
func (h *CartHandler) SharedCart(c *gin.Context) {
	shared, err := domain.DecodeShare(c.Query("data"))
	if err != nil {
		logger.Debug(c.Request.Context(), "Invalid shared cart link", "error", err)
		response.ErrorWithStatus(c, http.StatusNotFound, "Le lien du panier est invalide ou a expiré.", gin.H{"state": "not_found"})
		return
	}

	lines := domain.AsLines(shared)
	body := gin.H{
		"state":    "found",
		"lines":    lines,
		"articles": len(lines),
		"count":    domain.CountOf(lines),
		"total":    domain.TotalOf(lines),
	}
	if h.shared != nil {
		body["order_url"] = h.shared.SharedCartOrderURL(lines)
	}
	response.Success(c, body)
}

func (h *CartHandler) store(c *gin.Context) (*application.Store, bool) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "missing session", nil)
		return nil, false
	}
	store, err := h.registry.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), nil)
		return nil, false
	}
	return store, true
}
