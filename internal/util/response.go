package util

import (
	"errors"
	"net/http"

	"lms_support_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err))
	InternalServerError(c)
}

// FromError 将领域错误映射为HTTP响应：
// 校验失败→400，状态冲突→409，不存在→404，外部依赖失败→502。
func FromError(c *gin.Context, err error) {
	var (
		ve *ValidationError
		se *InvalidStateError
		ne *NotFoundError
		de *DependencyError
	)
	switch {
	case errors.As(err, &ve):
		BadRequest(c, ve.Error())
	case errors.As(err, &se):
		Conflict(c, se.Error())
	case errors.As(err, &ne):
		Error(c, http.StatusNotFound, ne.Error())
	case errors.As(err, &de):
		logger.Log.Warn("dependency failure", zap.Error(de))
		Error(c, http.StatusBadGateway, de.Error())
	default:
		LogInternalError(c, err)
	}
}
