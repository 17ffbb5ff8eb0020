// Package devapi is a reference implementation of the TSAM REST contract
// backed by GORM. The console mounts it under /tsam/api when the backend is
// embedded, and its tests use it as the server end of the backend client.
//
// Every collection answers:
//
//	GET    /<resource>?limit=&offset=&sort=&<filters>   list, X-Total-Count header
//	GET    /<resource>/:id                              single record
//	POST   /<resource>                                  create, 201 with the record
//	PUT    /<resource>                                  update, id in the body
//	DELETE /<resource>/:id                              delete
//
// offset is a page index. Errors use the {"error":{"error":msg}} envelope.
package devapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tsam/console/internal/domain"
)

// Options configures an API.
type Options struct {
	Validator *domain.Validator
	Logger    *slog.Logger
}

// API serves the TSAM resources from a GORM database.
type API struct {
	db        *gorm.DB
	validator *domain.Validator
	logger    *slog.Logger
	endpoints []endpoint
}

// endpoint is one resource collection with its routes and table.
type endpoint interface {
	name() string
	model() any
	register(g *gin.RouterGroup, a *API)
}

// New returns an API over db serving every TSAM resource.
func New(db *gorm.DB, opts Options) *API {
	v := opts.Validator
	if v == nil {
		v = domain.NewValidator()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{db: db, validator: v, logger: logger, endpoints: endpoints()}
}

// Migrate creates or updates every table the API uses.
func (a *API) Migrate(ctx context.Context) error {
	models := []any{&storedFile{}}
	for _, e := range a.endpoints {
		models = append(models, e.model())
	}
	if err := a.db.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("devapi: migrate: %w", err)
	}
	a.logger.Info("embedded api migrated", "tables", len(models))
	return nil
}

// Resources returns the collection names in registration order.
func (a *API) Resources() []string {
	out := make([]string, 0, len(a.endpoints))
	for _, e := range a.endpoints {
		out = append(out, e.name())
	}
	return out
}

// RegisterRoutes mounts every collection plus the upload and file routes
// on g.
func (a *API) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("", a.index)
	g.HEAD("", func(c *gin.Context) { c.Status(http.StatusOK) })
	for _, e := range a.endpoints {
		e.register(g, a)
	}
	g.POST("/upload/:kind", a.upload)
	g.GET("/files/:id", a.file)
}

func (a *API) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"resources": a.Resources()})
}

// withTx executes fn within a database transaction.
// It commits on success, rolls back on error or panic.
func withTx(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
