package util

import "fmt"

// 错误分类：参数校验、状态冲突、不存在、外部依赖失败。
// 四类错误与HTTP状态码一一对应，见 response.go 的 FromError。

// ValidationError 表示请求字段缺失、越界或标签规则被违反。
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError 表示操作在工单当前状态下不被允许。
// 携带工单ID、当前状态和操作名，便于向用户呈现。
type InvalidStateError struct {
	TicketID uint
	Status   string
	Op       string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("ticket %d: cannot %s while status is %q", e.TicketID, e.Op, e.Status)
}

func NewInvalidStateError(ticketID uint, status, op string) *InvalidStateError {
	return &InvalidStateError{TicketID: ticketID, Status: status, Op: op}
}

// NotFoundError 表示工单或文档不存在。
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// DependencyError 表示外部协作方（自动应答服务、对象存储）调用失败或超时。
// 可重试,不改变任何工单状态。
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error {
	return e.Err
}

func NewDependencyError(op string, err error) *DependencyError {
	return &DependencyError{Op: op, Err: err}
}
