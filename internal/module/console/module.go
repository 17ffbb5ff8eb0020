package console

import (
	"github.com/gin-gonic/gin"

	"github.com/tsam/console/internal/resource"
)

// Module registers the console pages of every screen.
type Module struct {
	handler *Handler
}

// NewModule creates a Module around h.
// Panics if h is nil.
func NewModule(h *Handler) *Module {
	if h == nil {
		panic("console.NewModule: handler must not be nil")
	}
	return &Module{handler: h}
}

// RegisterRoutes registers the home page and the routes of each screen.
func (m *Module) RegisterRoutes(pages *gin.RouterGroup) {
	h := m.handler
	pages.GET("/", h.Home)
	for _, s := range h.screens {
		register(pages.Group(s.Info().Path()), h, s)
	}
}

func register(g *gin.RouterGroup, h *Handler, s resource.Screen) {
	g.GET("", h.List(s))
	g.GET("/search", h.Search(s))
	g.GET("/criteria/remove", h.RemoveCriterion(s))
	g.GET("/reset", h.Reset(s))
	g.GET("/page/:n", h.Page(s))
	g.GET("/limit", h.Limit(s))

	g.GET("/modal/new", h.NewModal(s))
	g.GET("/:id/modal", h.ViewModal(s))
	g.POST("/modal/:sid/edit", h.EditModal(s))
	g.POST("/modal/:sid/submit", h.Submit(s))
	g.DELETE("/modal/:sid", h.CloseModal(s))

	g.GET("/:id/delete", h.ConfirmDelete(s))
	g.DELETE("/:id", h.Delete(s))

	g.POST("/upload/:field", h.Upload(s))
}
