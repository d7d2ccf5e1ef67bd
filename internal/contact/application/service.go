package application

import (
	"context"
	"errors"

	"github.com/deogratias228/espoir-medical-ecommerce/internal/contact/domain"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/logger"
	"github.com/deogratias228/espoir-medical-ecommerce/pkg/metrics"
)

// Result 提交结果，失败时 Message 为可展示的原因
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ContactService 联系表单服务
type ContactService struct {
	sender  domain.Sender
	metrics metrics.Collector
}

// NewContactService 创建联系表单服务
func NewContactService(sender domain.Sender, m metrics.Collector) *ContactService {
	if m == nil {
		m = metrics.Nop{}
	}
	return &ContactService{sender: sender, metrics: m}
}

// Submit 先校验再提交：校验失败返回 *domain.ValidationError 且不发起网络请求；
// 远端失败不返回 error，而是 Result.Success=false
func (s *ContactService) Submit(ctx context.Context, msg domain.Message) (Result, error) {
	msg = msg.Normalize()
	if err := msg.Validate(); err != nil {
		s.metrics.RecordContactSubmission("invalid")
		return Result{}, err
	}

	if _, err := s.sender.SubmitMessage(ctx, msg); err != nil {
		s.metrics.RecordContactSubmission("failed")
		logger.Warn(ctx, "Contact message submission failed", "error", err)
		return Result{Success: false, Message: failureMessage(err)}, nil
	}

	s.metrics.RecordContactSubmission("sent")
	logger.Info(ctx, "Contact message submitted")
	return Result{Success: true}, nil
}

func failureMessage(err error) string {
	var remote *domain.RemoteError
	if errors.As(err, &remote) && remote.Message != "" {
		return remote.Message
	}
	return domain.DefaultFailureMessage
}
