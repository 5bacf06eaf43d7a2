package handler

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
)

const notFoundMessage = "Page not found."

// PageHandler serves the landing and POS pages.
type PageHandler struct {
	index []byte
	pos   []byte
}

// NewPageHandler loads index.html and pos.html from files.
func NewPageHandler(files fs.FS) (*PageHandler, error) {
	index, err := fs.ReadFile(files, "index.html")
	if err != nil {
		return nil, err
	}
	pos, err := fs.ReadFile(files, "pos.html")
	if err != nil {
		return nil, err
	}
	return &PageHandler{index: index, pos: pos}, nil
}

// Index handles GET /
func (h *PageHandler) Index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.index)
}

// POS handles GET /pos and GET /pos.html
func (h *PageHandler) POS(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", h.pos)
}

// NotFound answers every unknown route.
func (h *PageHandler) NotFound(c *gin.Context) {
	c.String(http.StatusNotFound, notFoundMessage)
}
