// Package gateway 通过远程 API 的 POST /messages 提交留言
package gateway

import (
	"context"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/contact/domain"
	"github.com/go-resty/resty/v2"
)

// remoteFailure 远端错误响应中的可读原因
type remoteFailure struct {
	Message string `json:"message"`
}

// Sender 实现 domain.Sender，POST 请求不重试
type Sender struct {
	http *resty.Client
}

var _ domain.Sender = (*Sender)(nil)

// NewSender 创建留言发送器
func NewSender(client *resty.Client) *Sender {
	return &Sender{http: client}
}

// SubmitMessage 提交留言，失败时返回 *domain.RemoteError
func (s *Sender) SubmitMessage(ctx context.Context, msg domain.Message) (*domain.Receipt, error) {
	var failure remoteFailure
	resp, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(msg).
		SetError(&failure).
		Post("/messages")
	if err != nil {
		return nil, &domain.RemoteError{Err: err}
	}
	if resp.IsError() {
		return nil, &domain.RemoteError{StatusCode: resp.StatusCode(), Message: failure.Message}
	}
	return &domain.Receipt{Raw: resp.Body()}, nil
}
