package http

import (
	"errors"
	"net/http"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/contact/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/contact/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
)

const invalidFormMessage = "Veuillez renseigner votre nom, votre téléphone et votre message."

// ContactHandler 联系表单 HTTP 处理器
type ContactHandler struct {
	service *application.ContactService
}

// NewContactHandler 创建处理器
func NewContactHandler(service *application.ContactService) *ContactHandler {
	return &ContactHandler{service: service}
}

// RegisterRoutes 注册路由
func (h *ContactHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/api/v1/contact", h.Submit)
}

// SubmitRequest 留言请求，校验在 domain 中完成
type SubmitRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Submit 提交留言：成功 200；校验失败 422（不请求远端）；远端失败 502 并回显表单
func (h *ContactHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	msg := domain.Message{Name: req.Name, Phone: req.Phone, Email: req.Email, Message: req.Message}

	result, err := h.service.Submit(c.Request.Context(), msg)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			response.ErrorWithStatus(c, http.StatusUnprocessableEntity, invalidFormMessage, gin.H{
				"status": "error",
				"fields": verr.Fields,
				"form":   req,
			})
			return
		}
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}

	if !result.Success {
		response.ErrorWithStatus(c, http.StatusBadGateway, result.Message, gin.H{
			"status": "error",
			"form":   req,
		})
		return
	}
	response.Success(c, gin.H{"status": "success"})
}
