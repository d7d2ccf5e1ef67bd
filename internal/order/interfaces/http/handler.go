package http

import (
	"errors"
	"net/http"

	cartapp "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/order/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/middleware"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
)

// OrderHandler 下单转交 HTTP 处理器
type OrderHandler struct {
	carts   *cartapp.Registry
	handoff *application.HandoffService
}

// NewOrderHandler 创建处理器
func NewOrderHandler(carts *cartapp.Registry, handoff *application.HandoffService) *OrderHandler {
	return &OrderHandler{carts: carts, handoff: handoff}
}

// RegisterRoutes 注册路由
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/checkout")
	{
		api.GET("/whatsapp", h.Checkout)
		api.GET("/contact", h.Contact)
	}
}

// Checkout 跳转到 WhatsApp 下单；redirect=false 时返回 JSON
func (h *OrderHandler) Checkout(c *gin.Context) {
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "missing session", nil)
		return
	}
	store, err := h.carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}

	intent, err := h.handoff.Checkout(c.Request.Context(), store.SessionID(), store.Lines())
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			response.ErrorWithStatus(c, http.StatusConflict, "Votre panier est vide.", nil)
			return
		}
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if c.Query("redirect") == "false" {
		response.Success(c, gin.H{
			"intent_id": intent.IntentID,
			"url":       intent.Link,
			"count":     intent.Count,
			"total":     intent.Total,
		})
		return
	}
	c.Redirect(http.StatusFound, intent.Link)
}

// Contact 返回不带消息的 WhatsApp 联系链接
func (h *OrderHandler) Contact(c *gin.Context) {
	response.Success(c, gin.H{"url": h.handoff.Links().ContactURL()})
}
