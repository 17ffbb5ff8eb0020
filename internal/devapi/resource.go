package devapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
)

// resource binds entity E and its search filter F to a collection path.
type resource[E domain.Record, F any] struct {
	path     string
	title    string
	sortable []string
	filter   func(F) []scope
}

func (r resource[E, F]) name() string { return r.path }

func (r resource[E, F]) model() any { return new(E) }

func (r resource[E, F]) register(g *gin.RouterGroup, a *API) {
	h := &handler[E, F]{api: a, res: r}
	g.GET("/"+r.path, h.list)
	g.GET("/"+r.path+"/:id", h.get)
	g.POST("/"+r.path, h.create)
	g.PUT("/"+r.path, h.update)
	g.DELETE("/"+r.path+"/:id", h.delete)
}

type handler[E domain.Record, F any] struct {
	api *API
	res resource[E, F]
}

// list handles GET /<resource>.
func (h *handler[E, F]) list(c *gin.Context) {
	q := c.Request.URL.Query()
	f, err := listview.DecodeFilter[F](q)
	if err != nil {
		writeError(c, domain.NewAppError(domain.CodeValidation, "invalid search criteria", err))
		return
	}
	if fields := h.api.validator.Struct(&f); len(fields) > 0 {
		writeError(c, domain.ValidationError(fields))
		return
	}

	ctx := c.Request.Context()
	filtered := func() *gorm.DB {
		return h.api.db.WithContext(ctx).Model(new(E)).Scopes(h.res.filter(f)...)
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		writeError(c, mapError(err, h.res.title))
		return
	}

	// A page past the end is empty rather than clamped to the last page.
	items := make([]E, 0)
	if w := parseWindow(q); int64(w.Limit)*int64(w.Offset) < total {
		pg, err := pagination.NewPaginator(
			pagination.WithItemsPerPage[E](w.Limit),
			pagination.WithKnownTotal[E](total),
			pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]E, error) {
				var rows []E
				err := filtered().Scopes(orderBy(q.Get("sort"), h.res.sortable)).
					Offset(offset).Limit(limit).Find(&rows).Error
				return rows, err
			}),
		).Paginate(ctx, w.Offset+1)
		if err != nil {
			writeError(c, mapError(err, h.res.title))
			return
		}
		if pg.Items != nil {
			items = pg.Items
		}
	}

	c.Header(backend.TotalCountHeader, fmt.Sprint(total))
	c.JSON(http.StatusOK, items)
}

// get handles GET /<resource>/:id.
func (h *handler[E, F]) get(c *gin.Context) {
	var rec E
	if err := h.api.db.WithContext(c.Request.Context()).First(&rec, "id = ?", c.Param("id")).Error; err != nil {
		writeError(c, mapError(err, h.res.title))
		return
	}
	c.JSON(http.StatusOK, rec)
}

// create handles POST /<resource>. The id is assigned by the server.
func (h *handler[E, F]) create(c *gin.Context) {
	rec, ok := bindRecord[E](c, h.api.validator)
	if !ok {
		return
	}
	if domain.HasID(rec) {
		writeError(c, domain.NewAppError(domain.CodeValidation, "id must not be set on create", nil))
		return
	}
	if err := h.api.db.WithContext(c.Request.Context()).Create(&rec).Error; err != nil {
		writeError(c, mapError(err, h.res.title))
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// update handles PUT /<resource>. Every column except the id and creation
// time is overwritten, so zero values clear fields.
func (h *handler[E, F]) update(c *gin.Context) {
	rec, ok := bindRecord[E](c, h.api.validator)
	if !ok {
		return
	}
	if !domain.HasID(rec) {
		writeError(c, domain.NewAppError(domain.CodeValidation, "id is required", nil))
		return
	}

	db := h.api.db.WithContext(c.Request.Context())
	var existing E
	if err := db.First(&existing, "id = ?", rec.RecordID()).Error; err != nil {
		writeError(c, mapError(err, h.res.title))
		return
	}
	if err := db.Model(&existing).Select("*").Omit("id", "created_at").Updates(&rec).Error; err != nil {
		writeError(c, mapError(err, h.res.title))
		return
	}
	c.JSON(http.StatusOK, fmt.Sprintf("%s updated successfully", h.res.title))
}

// delete handles DELETE /<resource>/:id.
func (h *handler[E, F]) delete(c *gin.Context) {
	result := h.api.db.WithContext(c.Request.Context()).Delete(new(E), "id = ?", c.Param("id"))
	if result.Error != nil {
		writeError(c, mapError(result.Error, h.res.title))
		return
	}
	if result.RowsAffected == 0 {
		writeError(c, domain.NewAppError(domain.CodeNotFound, fmt.Sprintf("%s not found", h.res.title), nil))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s deleted successfully", h.res.title)})
}
