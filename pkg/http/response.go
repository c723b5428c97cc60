package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// DataResponse writes a successful payload as the whole body. Only error
// responses use the APIResponse envelope, so payload keys such as "status"
// stay at the top level where the dashboard reads them.
func DataResponse(c echo.Context, statusCode int, data interface{}) error {
	return c.JSON(statusCode, data)
}

// ListResponse writes a list response.
func ListResponse(c echo.Context, rows interface{}, total int64) error {
	return DataResponse(c, http.StatusOK, &ListDataResponse{
		Rows:  rows,
		Total: total,
	})
}

// SuccessResponse writes success response.
func SuccessResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusOK, data)
}

// CreatedResponse writes created response.
func CreatedResponse(c echo.Context, data interface{}) error {
	return DataResponse(c, http.StatusCreated, data)
}

// ValidationResponse writes a 400 with per-field errors.
func ValidationResponse(c echo.Context, verrs []ValidationError) error {
	msgs := make([]string, 0, len(verrs))
	for _, v := range verrs {
		msgs = append(msgs, v.Message)
	}
	text := strings.Join(msgs, "; ")
	return c.JSON(http.StatusBadRequest, APIResponse{
		Status:  http.StatusBadRequest,
		Message: http.StatusText(http.StatusBadRequest),
		Data:    verrs,
		Detail:  text,
		Error:   text,
	})
}

// ErrorResponse writes any error through FromDomain.
func ErrorResponse(c echo.Context, err error) error {
	appErr := FromDomain(err)
	return c.JSON(appErr.Status, APIResponse{
		Status:  appErr.Status,
		Message: http.StatusText(appErr.Status),
		Data:    []*AppError{appErr},
		Detail:  appErr.Message,
		Error:   appErr.Message,
	})
}
