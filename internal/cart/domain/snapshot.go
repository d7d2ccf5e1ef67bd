package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedSnapshot 持久化的购物车数据无法解析
var ErrMalformedSnapshot = errors.New("cart: malformed snapshot")

// EncodeSnapshot 将购物车编码为 JSON 数组
func EncodeSnapshot(c *Cart) ([]byte, error) {
	lines := c.Lines()
	if lines == nil {
		lines = []Line{}
	}
	return json.Marshal(lines)
}

// DecodeSnapshot 从 JSON 数组恢复购物车。
// 空数据返回空购物车；id 为 0 或数量小于 1 的行被丢弃，重复 id 合并数量并保留首行展示字段。
func DecodeSnapshot(raw []byte) (*Cart, error) {
	c := NewCart()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return c, nil
	}

	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return NewCart(), fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	for _, l := range lines {
		if l.ID == 0 || l.Quantity < 1 {
			continue
		}
		if i := c.index(l.ID); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
	return c, nil
}
