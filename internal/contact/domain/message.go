// Package domain 联系表单：留言模型、校验规则与远程发送端口
package domain

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultFailureMessage 远端未给出原因时展示的错误信息
const DefaultFailureMessage = "Une erreur est survenue lors de l'envoi du message."

// Message 访客留言，email 可选
type Message struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Message string `json:"message" validate:"required"`
}

// Normalize 去除首尾空白
func (m Message) Normalize() Message {
	return Message{
		Name:    strings.TrimSpace(m.Name),
		Phone:   strings.TrimSpace(m.Phone),
		Email:   strings.TrimSpace(m.Email),
		Message: strings.TrimSpace(m.Message),
	}
}

// FieldError 单个字段的校验错误
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ValidationError 校验失败，列出所有出错字段
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Field+":"+f.Rule)
	}
	return "contact: invalid message (" + strings.Join(names, ", ") + ")"
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func messageValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Validate 校验留言：name、phone、message 必填，email 填写时必须是合法地址
func (m Message) Validate() error {
	err := messageValidator().Struct(m)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("contact: validate: %w", err)
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return out
}

// Receipt 远端受理结果
type Receipt struct {
	Raw []byte
}

// RemoteError 远端拒绝或不可达，Message 为远端给出的可读原因（可能为空）
type RemoteError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("contact: remote failure: %v", e.Err)
	}
	return fmt.Sprintf("contact: remote rejected message (status %d): %s", e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Sender 远程留言接口
type Sender interface {
	SubmitMessage(ctx context.Context, msg Message) (*Receipt, error)
}
