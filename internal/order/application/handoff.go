package application

import (
	"fmt"
	"net/url"
	"strings"

	cartdomain "github.com/deogratias228/espoir-medical-ecommerce/internal/cart/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const waBaseURL = "https://wa.me/"

// LinkBuilder 生成 WhatsApp 深链接：购物车下单、分享购物车下单、商品咨询
type LinkBuilder struct {
	number   string
	currency string
	printer  *message.Printer
}

// NewLinkBuilder 创建链接生成器，number 为国际格式号码（不含 +）
func NewLinkBuilder(number, currency string) *LinkBuilder {
	if currency == "" {
		currency = "F CFA"
	}
	return &LinkBuilder{
		number:   strings.TrimPrefix(strings.TrimSpace(number), "+"),
		currency: currency,
		printer:  message.NewPrinter(language.French),
	}
}

// OrderURL 购物车侧边栏的下单链接
func (b *LinkBuilder) OrderURL(lines []cartdomain.Line) string {
	return b.link(b.OrderMessage(lines))
}

// SharedCartOrderURL 分享购物车页面的下单链接
func (b *LinkBuilder) SharedCartOrderURL(lines []cartdomain.Line) string {
	return b.link(b.SharedCartMessage(lines))
}

// ProductInquiryURL 商品卡片上的咨询链接
func (b *LinkBuilder) ProductInquiryURL(productName string) string {
	return b.link(`Bonjour! Je souhaite avoir plus d'informations sur le produit "` + productName + `".`)
}

// ProductQuestionURL 商品详情页的提问链接
func (b *LinkBuilder) ProductQuestionURL(productName string) string {
	return b.link("Bonjour, j'ai une question concernant le produit : " + productName)
}

// ContactURL 不带消息的联系链接
func (b *LinkBuilder) ContactURL() string {
	return waBaseURL + b.number
}

// OrderMessage 下单消息：每个商品一行 "* *名称* x数量"，最后附预估总额
func (b *LinkBuilder) OrderMessage(lines []cartdomain.Line) string {
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		items = append(items, fmt.Sprintf("\n* *%s* x%d\n", l.Name, l.Quantity))
	}
	return "Bonjour, je souhaite commander les produits suivants :\n\n" +
		strings.Join(items, "\n") +
		"\n\nMontant total estimé : " + b.FormatAmount(cartdomain.TotalOf(lines)) + " " + b.currency
}

// SharedCartMessage 分享购物车的下单消息：每个商品一行 "- 名称 x数量"
func (b *LinkBuilder) SharedCartMessage(lines []cartdomain.Line) string {
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		items = append(items, fmt.Sprintf("- %s x%d", l.Name, l.Quantity))
	}
	return "Bonjour, je souhaite commander les produits suivants :\n\n" +
		strings.Join(items, "\n") +
		"\n\nMontant total estimé : " + b.FormatAmount(cartdomain.TotalOf(lines)) + " " + b.currency
}

// FormatAmount 按法语习惯分组数字，最多两位小数
func (b *LinkBuilder) FormatAmount(amount decimal.Decimal) string {
	return b.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(2)))
}

func (b *LinkBuilder) link(text string) string {
	return waBaseURL + b.number + "?text=" + encodeComponent(text)
}

// encodeComponent 与浏览器 encodeURIComponent 一致：空格编码为 %20
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
