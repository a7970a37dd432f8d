package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"serotonyl.ru/rating-bot/internal/common"
)

// Response: общий конверт ответа API.
type Response struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// apiError: ошибка с HTTP-статусом.
type apiError struct {
	Status int
	Msg    string
}

func (e *apiError) Error() string { return e.Msg }

func badRequest(msg string) error {
	return &apiError{Status: http.StatusBadRequest, Msg: msg}
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Msg: "ok", Data: data})
}

// wrap превращает ошибку обработчика в JSON-ответ.
func wrap(h func(*gin.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := h(c)
		if err == nil || c.Writer.Written() {
			return
		}
		_ = c.Error(err)

		var ae *apiError
		switch {
		case errors.As(err, &ae):
			c.JSON(ae.Status, Response{Code: ae.Status, Msg: ae.Msg})
		case errors.Is(err, common.ErrStorageUnavailable):
			c.JSON(http.StatusServiceUnavailable, Response{Code: http.StatusServiceUnavailable, Msg: "storage unavailable"})
		default:
			c.JSON(http.StatusInternalServerError, Response{Code: http.StatusInternalServerError, Msg: "internal error"})
		}
	}
}
