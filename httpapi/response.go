package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lust-img/lust/lerrors"
)

// envelope is the JSON shape every admin endpoint and base64-encoded fetch
// responds with.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *errorInfo  `json:"error,omitempty"`
}

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// fail shapes err into an envelope and writes it at the status lerrors maps
// err's Kind to (500 for unclassified errors).
func fail(c *gin.Context, err error) {
	status := lerrors.HTTPStatus(err)
	kind, ok := lerrors.KindOf(err)
	code := "internal_error"
	if ok {
		code = string(kind)
	}
	c.JSON(status, envelope{Success: false, Error: &errorInfo{Code: code, Message: err.Error()}})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Success: false, Error: &errorInfo{Code: "bad_request", Message: message}})
}
