package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"catalogadmin/guard"
	"catalogadmin/middleware"
	"catalogadmin/rbac"

	"github.com/gin-gonic/gin"
)

type PageData struct {
	BasePath string
	User     *rbac.Identity
	Role     rbac.Role
	Reason   string
	Redirect string
}

// PageRenderer executes the admin page templates and hides every element
// the viewer's role may not see.
type PageRenderer struct {
	tmpl *template.Template
}

func NewPageRenderer(fsys fs.FS) (*PageRenderer, error) {
	tmpl, err := template.ParseFS(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}
	return &PageRenderer{tmpl: tmpl}, nil
}

func (p *PageRenderer) Has(name string) bool {
	return p.tmpl.Lookup(name) != nil
}

func (p *PageRenderer) Render(w io.Writer, name string, data PageData, access rbac.Access) error {
	var raw bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&raw, name, data); err != nil {
		return err
	}
	return rbac.RenderVisible(&raw, w, access)
}

// Page serves a template that has already passed the guard.
func (h *Handler) Page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		access := middleware.AccessFrom(c)
		data := PageData{
			BasePath: h.BasePath,
			Role:     access.Role,
			Reason:   c.Query("reason"),
		}
		if id, ok := middleware.IdentityFrom(c); ok {
			data.User = id
		}
		if name == guard.LoginPage {
			data.Redirect = guard.SafeRedirect(h.BasePath, h.Origin, c.Query("redirect"))
		}

		var out bytes.Buffer
		if err := h.Pages.Render(&out, name, data, access); err != nil {
			h.logger().Error("render page failed", "page", name, "error", err)
			c.String(http.StatusInternalServerError, "internal error")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", out.Bytes())
	}
}
