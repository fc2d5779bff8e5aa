package services

import (
	"errors"
	"fmt"
	"time"
)

type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindRateLimit
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	default:
		return "internal"
	}
}

// Error 业务错误，Message/Hint 会原样返回给调用方
type Error struct {
	Kind       ErrorKind
	Code       string
	Message    string
	Hint       string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithHint 返回带提示的副本
func (e *Error) WithHint(hint string) *Error {
	c := *e
	c.Hint = hint
	return &c
}

// WithCode 返回带错误码的副本
func (e *Error) WithCode(code string) *Error {
	c := *e
	c.Code = code
	return &c
}

func ValidationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func AuthenticationError(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg, Hint: "Please include Authorization: Bearer YOUR_API_KEY header."}
}

func AuthorizationError(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

func NotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func ConflictError(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func RateLimitError(msg string, retryAfter time.Duration) *Error {
	secs := int64((retryAfter + time.Second - 1) / time.Second)
	return &Error{
		Kind:       KindRateLimit,
		Message:    msg,
		Hint:       fmt.Sprintf("Please try again in %d seconds.", secs),
		RetryAfter: time.Duration(secs) * time.Second,
	}
}

// InternalError 包装意外错误，对外只暴露通用信息
func InternalError(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Server error occurred.", Err: err}
}

// AsError 把任意错误转换为 *Error，未知错误视为内部错误
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return InternalError(err)
}

// 未认证 agent 执行受限操作
var errNotVerified = AuthorizationError("Agent is not verified yet.").
	WithHint("Human owner must complete verification via claim_url.")

// RequireClaimed 检查 agent 是否已完成认领
func RequireClaimed(agentClaimed bool) error {
	if !agentClaimed {
		return errNotVerified
	}
	return nil
}
