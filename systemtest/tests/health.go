package tests

import (
	"net/http/httptest"

	"github.com/gin-gonic/gin"
)

func DoHealth(router *gin.Engine) *httptest.ResponseRecorder {
	return doJSON(router, "GET", "/health", nil)
}
