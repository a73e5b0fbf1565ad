package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"agrovision/internal/i18n"
	"agrovision/internal/transport/http/response"
)

const indexPage = "index"

type PageHandler struct {
	res *response.Responder
}

func NewPageHandler(res *response.Responder) *PageHandler {
	return &PageHandler{res: res}
}

func (h *PageHandler) Root(c *gin.Context) {
	c.Redirect(http.StatusFound, "/"+i18n.LangAZ+"/")
}

// Show renders {lang}/{page}.html. An empty page is the index.
func (h *PageHandler) Show(c *gin.Context) {
	lang := response.Lang(c)
	page := c.Param("page")
	if page == "" {
		page = indexPage
	}

	name := response.PageName(lang, page)
	if !h.res.Has(name) {
		h.res.Error(c, http.StatusNotFound)
		return
	}
	h.res.Page(c, http.StatusOK, name, gin.H{"Page": page})
}
