package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	cartapp "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/application"
	"github.com/deogratias228/espoir-medical-ecommerce/internal/catalog/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/middleware"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

const (
	notFoundMessage      = "Produit introuvable."
	metaDescriptionRunes = 155
)

// ProductLinker 商品页的 WhatsApp 咨询链接与金额格式
type ProductLinker interface {
	ProductInquiryURL(productName string) string
	ProductQuestionURL(productName string) string
	FormatAmount(amount decimal.Decimal) string
}

// CatalogHandler 商品目录 HTTP 处理器
type CatalogHandler struct {
	query         *application.CatalogQueryService
	search        *application.SearchCoordinator
	carts         *cartapp.Registry
	links         ProductLinker
	publicBaseURL string
}

// NewCatalogHandler 创建处理器
func NewCatalogHandler(query *application.CatalogQueryService, search *application.SearchCoordinator,
	carts *cartapp.Registry, links ProductLinker, publicBaseURL string) *CatalogHandler {
	return &CatalogHandler{
		query:         query,
		search:        search,
		carts:         carts,
		links:         links,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// RegisterRoutes 注册路由
func (h *CatalogHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1")
	{
		api.GET("/products", h.ListProducts)
		api.GET("/products/top", h.TopProducts)
		api.GET("/products/:slug", h.GetProduct)
		api.POST("/products/:slug/cart", h.AddToCart)
		api.GET("/categories", h.ListCategories)
		api.GET("/search", h.Search)
	}
}

// ListProducts 商品列表：q、category（可多值）、min_price、max_price、page、page_size
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()
	filter, err := parseFilter(c)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "12"))

	products := h.query.ListProducts(ctx)
	result := application.Paginate(filter.Apply(products), page, pageSize)

	response.Success(c, gin.H{
		"products":      result.Products,
		"pagination":    result.Pagination,
		"price_ceiling": application.PriceCeiling(products),
		"categories":    h.query.ListCategories(ctx),
	})
}

// TopProducts 首页推荐商品
func (h *CatalogHandler) TopProducts(c *gin.Context) {
	response.Success(c, gin.H{"products": h.query.TopProducts(c.Request.Context())})
}

// ListCategories 分类列表
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	response.Success(c, gin.H{"categories": h.query.ListCategories(c.Request.Context())})
}

// ProductPage 商品详情页数据
type ProductPage struct {
	Product     *domain.ProductDetails `json:"product"`
	Image       string                 `json:"image"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	ShareURL    string                 `json:"share_url"`
	InquiryURL  string                 `json:"inquiry_url"`
	QuestionURL string                 `json:"question_url"`
}

// GetProduct 商品详情，不存在或读取失败时 404
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	details := h.query.ProductBySlug(c.Request.Context(), c.Param("slug"))
	if details == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, notFoundMessage, nil)
		return
	}
	response.Success(c, h.page(details))
}

// AddToCart 将商品详情加入当前会话的购物车
func (h *CatalogHandler) AddToCart(c *gin.Context) {
	ctx := c.Request.Context()
	details := h.query.ProductBySlug(ctx, c.Param("slug"))
	if details == nil {
		response.ErrorWithStatus(c, http.StatusNotFound, notFoundMessage, nil)
		return
	}
	sessionID := middleware.SessionID(c)
	if sessionID == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "missing session", nil)
		return
	}
	store, err := h.carts.Get(ctx, sessionID)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusServiceUnavailable, err.Error(), nil)
		return
	}
	if err := store.AddToCart(ctx, details.CartItem()); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	response.Success(c, store.View())
}

// Search 防抖搜索；被同会话新查询取代时返回 204
func (h *CatalogHandler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	result, err := h.search.Search(ctx, middleware.SessionID(c), c.Query("q"))
	switch {
	case errors.Is(err, application.ErrSearchSuperseded):
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		logger.Debug(ctx, "Search abandoned by client", "error", err)
		c.Abort()
		return
	case err != nil:
		response.ErrorWithStatus(c, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	response.Success(c, result)
}

func (h *CatalogHandler) page(d *domain.ProductDetails) ProductPage {
	return ProductPage{
		Product:     d,
		Image:       d.PrimaryImage(),
		Title:       d.Name + " - Achat en ligne à Lomé | Votre Boutique",
		Description: h.metaDescription(d),
		ShareURL:    h.publicBaseURL + "/products/" + url.PathEscape(d.Slug),
		InquiryURL:  h.links.ProductInquiryURL(d.Name),
		QuestionURL: h.links.ProductQuestionURL(d.Name),
	}
}

// metaDescription 描述前 155 个字符，没有描述时生成默认文案
func (h *CatalogHandler) metaDescription(d *domain.ProductDetails) string {
	if d.Description != "" {
		runes := []rune(d.Description)
		if len(runes) > metaDescriptionRunes {
			runes = runes[:metaDescriptionRunes]
		}
		return string(runes)
	}
	price := "sur demande"
	if d.Price.Valid {
		price = h.links.FormatAmount(d.Price.Decimal)
	}
	return fmt.Sprintf("Achetez %s à Lomé, Togo. Prix: %s FCFA. Livraison disponible.", d.Name, price)
}

func parseFilter(c *gin.Context) (application.Filter, error) {
	f := application.Filter{
		Term:       c.Query("q"),
		Categories: c.QueryArray("category"),
	}
	var err error
	if f.MinPrice, err = parsePrice(c.Query("min_price")); err != nil {
		return f, fmt.Errorf("invalid min_price: %w", err)
	}
	if f.MaxPrice, err = parsePrice(c.Query("max_price")); err != nil {
		return f, fmt.Errorf("invalid max_price: %w", err)
	}
	return f, nil
}

func parsePrice(raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
