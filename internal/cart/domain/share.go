package domain

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrShareMissing 分享链接未携带 data 参数
	ErrShareMissing = errors.New("cart: shared cart data missing")
	// ErrShareMalformed 分享数据无法解析
	ErrShareMalformed = errors.New("cart: shared cart data malformed")
)

// SharedLine 分享链接中的购物车行，只读展示，不会合并到访问者的购物车
type SharedLine struct {
	ID       int64
	Name     string
	Price    decimal.NullDecimal
	Quantity int
}

// sharedWire 分享链接的线上格式，价格为 JSON 数字或 null
type sharedWire struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price"`
	Quantity int      `json:"quantity"`
}

// EncodeShare 将购物车行编码为 data 参数值（JSON 数组再做 URL 转义）
func EncodeShare(lines []Line) (string, error) {
	wire := make([]sharedWire, 0, len(lines))
	for _, l := range lines {
		w := sharedWire{ID: l.ID, Name: l.Name, Quantity: l.Quantity}
		if l.Price.Valid {
			f := l.Price.Decimal.InexactFloat64()
			w.Price = &f
		}
		wire = append(wire, w)
	}
	raw, err := json.Marshal(wire)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

// DecodeShare 解析 data 参数值，既接受查询解析后的原文，也接受仍处于转义状态的值
func DecodeShare(raw string) ([]SharedLine, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrShareMissing
	}

	wire, err := unmarshalShare(raw)
	if err != nil {
		unescaped, uerr := url.QueryUnescape(raw)
		if uerr != nil {
			return nil, ErrShareMalformed
		}
		if wire, err = unmarshalShare(unescaped); err != nil {
			return nil, ErrShareMalformed
		}
	}

	lines := make([]SharedLine, 0, len(wire))
	for _, w := range wire {
		if w.Quantity < 1 {
			return nil, ErrShareMalformed
		}
		l := SharedLine{ID: w.ID, Name: w.Name, Quantity: w.Quantity}
		if w.Price != nil {
			l.Price = decimal.NewNullDecimal(decimal.NewFromFloat(*w.Price))
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func unmarshalShare(s string) ([]sharedWire, error) {
	var wire []sharedWire
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return nil, err
	}
	if wire == nil {
		return nil, ErrShareMalformed
	}
	return wire, nil
}

// AsLines 转换为购物车行，便于复用金额计算与下单消息
func AsLines(shared []SharedLine) []Line {
	out := make([]Line, 0, len(shared))
	for _, s := range shared {
		out = append(out, Line{ID: s.ID, Name: s.Name, Price: s.Price, Quantity: s.Quantity})
	}
	return out
}
