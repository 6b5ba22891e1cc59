package httptransport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-admin-go/internal/domain/query"
	platformerrors "hotel-admin-go/internal/platform/errors"
	"hotel-admin-go/internal/transport/api"
)

// APIResponse 定义统一的接口返回结构体
type APIResponse struct {
	Success bool                        `json:"success"`
	Data    interface{}                 `json:"data"`
	Message string                      `json:"message"`
	Code    int                         `json:"code"`
	Errors  []platformerrors.FieldError `json:"errors,omitempty"`
}

// RespondSuccess 返回成功响应
func RespondSuccess(c *gin.Context, httpStatus int, data interface{}, message string) {
	if message == "" {
		message = "ok"
	}

	resp := APIResponse{
		Success: true,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondError 返回失败响应
func RespondError(c *gin.Context, httpStatus int, message string, data interface{}) {
	resp := APIResponse{
		Success: false,
		Message: message,
		Code:    httpStatus,
		Data:    data,
	}

	c.JSON(httpStatus, resp)
}

// RespondFailure maps a domain or client error onto a status and a JSON error body.
func RespondFailure(c *gin.Context, err error) {
	status, message := statusFor(err)
	_ = c.Error(err)
	c.JSON(status, APIResponse{
		Success: false,
		Message: message,
		Code:    status,
		Errors:  api.FieldsOf(err),
	})
}

func statusFor(err error) (int, string) {
	var apiErr *api.APIError
	switch {
	case errors.As(err, &apiErr):
		switch apiErr.Kind {
		case api.KindNetwork:
			return http.StatusBadGateway, orDefault(apiErr.Message, "Impossible de joindre le serveur")
		case api.KindUnauthenticated:
			return http.StatusUnauthorized, orDefault(apiErr.Message, "Non authentifié")
		case api.KindForbidden:
			return http.StatusForbidden, orDefault(apiErr.Message, "Accès refusé")
		case api.KindNotFound:
			return http.StatusNotFound, orDefault(apiErr.Message, "Introuvable")
		case api.KindValidation:
			return http.StatusUnprocessableEntity, orDefault(apiErr.Message, "Données invalides")
		case api.KindServer:
			return http.StatusBadGateway, orDefault(apiErr.Message, "Erreur serveur")
		default:
			return http.StatusBadGateway, orDefault(apiErr.Message, "Erreur inattendue")
		}
	case platformerrors.IsKind(err, platformerrors.KindValidation):
		return http.StatusUnprocessableEntity, "Données invalides"
	case platformerrors.IsKind(err, platformerrors.KindDomain):
		return http.StatusConflict, messageOf(err, "Action impossible")
	case errors.Is(err, query.ErrDisabled):
		return http.StatusNotFound, "Introuvable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Délai dépassé"
	default:
		return http.StatusInternalServerError, "Erreur interne"
	}
}

func messageOf(err error, fallback string) string {
	var typed *platformerrors.Error
	if errors.As(err, &typed) {
		return orDefault(typed.Message, fallback)
	}
	return fallback
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
