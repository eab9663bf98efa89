package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\"", "")

// writePDF sends rendered bytes as a download named after the document number.
func writePDF(c *gin.Context, number string, body []byte) {
	filename := filenameReplacer.Replace(number) + ".pdf"
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", body)
}
