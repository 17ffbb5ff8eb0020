// Package console serves the TSAM list screens: full list pages, htmx
// fragments for searching, paging and the add, view, edit and delete
// modals, and file uploads for url fields.
//
// List state lives in the address bar. Fragment requests read it from the
// HX-Current-URL header and answer with HX-Push-Url so the browser location
// always mirrors the rendered list.
package console

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/middleware"
	"github.com/tsam/console/internal/resource"
)

// Page and fragment templates. A "#block" suffix renders only that block.
const (
	tmplHome    = "home.html"
	tmplList    = "console/list.html"
	tmplRegion  = tmplList + "#region"
	tmplModal   = "console/modal.html"
	tmplConfirm = "console/confirm.html"
	tmplUpload  = "console/upload.html"
)

// listRegion is the element replaced by list fragments.
const listRegion = "#list-region"

// Handler renders the console screens.
type Handler struct {
	screens []resource.Screen
	nav     []resource.Info
	logger  *slog.Logger
}

// NewHandler returns a Handler for screens, in navigation order.
func NewHandler(screens []resource.Screen, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	nav := make([]resource.Info, len(screens))
	for i, s := range screens {
		nav[i] = s.Info()
	}
	return &Handler{screens: screens, nav: nav, logger: logger}
}

// Home renders the landing page linking every screen.
// GET /
func (h *Handler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, tmplHome, gin.H{
		"Nav":       h.nav,
		"CSRFToken": middleware.GetCSRFToken(c),
	})
}

// List renders the full list page for the address bar query. A failed
// fetch still renders the page, with the alert raised on load.
// GET /<resource>
func (h *Handler) List(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.List(c.Request.Context(), c.Request.URL.Query())
		if middleware.IsHTMX(c) {
			h.respondList(c, s, "list", view, err)
			return
		}
		data := gin.H{
			"Nav":       h.nav,
			"View":      view,
			"CSRFToken": middleware.GetCSRFToken(c),
		}
		if err != nil {
			h.logFailure(c, s, "list", err)
			data["Alert"] = domain.AlertMessage(err)
		}
		c.HTML(http.StatusOK, tmplList, data)
	}
}

// Search applies the submitted search form.
// GET /<resource>/search
func (h *Handler) Search(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.Search(c.Request.Context(), currentQuery(c), c.Request.URL.Query())
		h.respondList(c, s, "search", view, err)
	}
}

// RemoveCriterion drops one search chip.
// GET /<resource>/criteria/remove?field=<name>
func (h *Handler) RemoveCriterion(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		field := c.Query("field")
		if field == "" {
			middleware.AbortWithAlert(c, http.StatusBadRequest, "field is required")
			return
		}
		view, err := s.RemoveCriterion(c.Request.Context(), currentQuery(c), field)
		h.respondList(c, s, "remove criterion", view, err)
	}
}

// Reset clears the search and lists everything.
// GET /<resource>/reset
func (h *Handler) Reset(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, err := s.Reset(c.Request.Context(), currentQuery(c))
		h.respondList(c, s, "reset", view, err)
	}
}

// Page moves to page n.
// GET /<resource>/page/:n
func (h *Handler) Page(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Param("n"))
		if err != nil {
			middleware.AbortWithAlert(c, http.StatusBadRequest, "invalid page number")
			return
		}
		view, err := s.Page(c.Request.Context(), currentQuery(c), n)
		h.respondList(c, s, "change page", view, err)
	}
}

// Limit changes the page size.
// GET /<resource>/limit?limit=<n>
func (h *Handler) Limit(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := strconv.Atoi(c.Query("limit"))
		if err != nil {
			middleware.AbortWithAlert(c, http.StatusBadRequest, "invalid page size")
			return
		}
		view, err := s.Limit(c.Request.Context(), currentQuery(c), n)
		h.respondList(c, s, "change limit", view, err)
	}
}

// NewModal opens the add modal.
// GET /<resource>/modal/new
func (h *Handler) NewModal(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := s.OpenAdd(c.Request.Context())
		h.respondModal(c, s, "open add", m, err)
	}
}

// ViewModal opens the read-only modal for a record.
// GET /<resource>/:id/modal
func (h *Handler) ViewModal(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := s.OpenView(c.Request.Context(), c.Param("id"))
		h.respondModal(c, s, "open view", m, err)
	}
}

// EditModal switches an open view modal to editing.
// POST /<resource>/modal/:sid/edit
func (h *Handler) EditModal(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := s.Edit(c.Request.Context(), c.Param("sid"))
		h.respondModal(c, s, "edit", m, err)
	}
}

// Submit posts the modal form. Invalid input or a failed backend call keep
// the modal open; success closes it and refreshes the list.
// POST /<resource>/modal/:sid/submit
func (h *Handler) Submit(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := c.Request.ParseForm(); err != nil {
			middleware.AbortWithAlert(c, http.StatusBadRequest, "invalid form data")
			return
		}
		out, err := s.Submit(c.Request.Context(), currentQuery(c), c.Param("sid"), c.Request.PostForm)
		switch {
		case out == nil:
			h.alert(c, s, "submit", err)
			c.Header(middleware.HeaderHXReswap, "none")
			c.Status(http.StatusOK)
		case out.Modal != nil:
			h.respondModal(c, s, "submit", out.Modal, err)
		default:
			if err == nil {
				middleware.Trigger(c, middleware.EventShowAlert, out.Message)
			}
			h.closeModalWithList(c, s, "submit", out.List, err)
		}
	}
}

// CloseModal discards an open modal.
// DELETE /<resource>/modal/:sid
func (h *Handler) CloseModal(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.CloseModal(c.Request.Context(), c.Param("sid")); err != nil {
			h.logFailure(c, s, "close modal", err)
		}
		c.Status(http.StatusOK)
	}
}

// ConfirmDelete asks before deleting a record.
// GET /<resource>/:id/delete
func (h *Handler) ConfirmDelete(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := s.ConfirmDelete(c.Request.Context(), c.Param("id"))
		if err != nil {
			h.alert(c, s, "confirm delete", err)
			c.Header(middleware.HeaderHXReswap, "none")
			c.Status(http.StatusOK)
			return
		}
		c.HTML(http.StatusOK, tmplConfirm, gin.H{"Confirm": v})
	}
}

// Delete removes a record, closes the confirmation and refreshes the list.
// DELETE /<resource>/:id
func (h *Handler) Delete(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		view, msg, err := s.Delete(c.Request.Context(), currentQuery(c), c.Param("id"))
		if err == nil {
			middleware.Trigger(c, middleware.EventShowAlert, msg)
		}
		if view == nil {
			h.alert(c, s, "delete", err)
			c.Header(middleware.HeaderHXReswap, "none")
			c.Status(http.StatusOK)
			return
		}
		h.closeModalWithList(c, s, "delete", view, err)
	}
}

// Upload stores the posted "file" for a url field and renders the filled
// in control.
// POST /<resource>/upload/:field
func (h *Handler) Upload(s resource.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			middleware.AbortWithAlert(c, http.StatusBadRequest, "Choose a file to upload.")
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.logFailure(c, s, "upload", err)
			middleware.AbortWithAlert(c, http.StatusBadRequest, "The file could not be read.")
			return
		}
		defer func() { _ = f.Close() }()

		field := c.Param("field")
		stored, err := s.Upload(c.Request.Context(), field, fh.Filename, f)
		if err != nil {
			h.logFailure(c, s, "upload", err)
			middleware.AbortWithAlert(c, domain.HTTPStatusCode(err), domain.AlertMessage(err))
			return
		}
		middleware.Trigger(c, middleware.EventShowToast, "File uploaded")
		c.HTML(http.StatusOK, tmplUpload, gin.H{
			"Info":  s.Info(),
			"Field": field,
			"Value": stored,
		})
	}
}

// respondList renders the list region. Requests without htmx are
// redirected to the list page so the browser still ends up on the state.
func (h *Handler) respondList(c *gin.Context, s resource.Screen, op string, view *resource.ListView, err error) {
	h.alert(c, s, op, err)
	if view == nil {
		c.Header(middleware.HeaderHXReswap, "none")
		c.Status(http.StatusOK)
		return
	}
	if !middleware.IsHTMX(c) {
		c.Redirect(http.StatusSeeOther, view.URL())
		return
	}
	c.Header(middleware.HeaderHXPushURL, view.URL())
	c.HTML(http.StatusOK, tmplRegion, gin.H{"View": view})
}

// closeModalWithList swaps the list region in place of the modal target
// and clears the modal out of band.
func (h *Handler) closeModalWithList(c *gin.Context, s resource.Screen, op string, view *resource.ListView, err error) {
	h.alert(c, s, op, err)
	c.Header(middleware.HeaderHXRetarget, listRegion)
	c.Header(middleware.HeaderHXReswap, "outerHTML")
	c.Header(middleware.HeaderHXPushURL, view.URL())
	c.HTML(http.StatusOK, tmplRegion, gin.H{"View": view, "CloseModal": true})
}

func (h *Handler) respondModal(c *gin.Context, s resource.Screen, op string, m *resource.ModalView, err error) {
	h.alert(c, s, op, err)
	if m == nil {
		c.Header(middleware.HeaderHXReswap, "none")
		c.Status(http.StatusOK)
		return
	}
	c.HTML(http.StatusOK, tmplModal, gin.H{"Modal": m})
}

// alert logs err and raises the alert event carrying its user message.
func (h *Handler) alert(c *gin.Context, s resource.Screen, op string, err error) {
	if err == nil {
		return
	}
	h.logFailure(c, s, op, err)
	middleware.Trigger(c, middleware.EventShowAlert, domain.AlertMessage(err))
}

func (h *Handler) logFailure(c *gin.Context, s resource.Screen, op string, err error) {
	level := slog.LevelError
	var appErr *domain.AppError
	if errors.As(err, &appErr) && appErr.Code != domain.CodeInternal && appErr.Code != domain.CodeConnectivity {
		level = slog.LevelWarn
	}
	h.logger.Log(c.Request.Context(), level, "console operation failed",
		slog.String("resource", s.Info().Name),
		slog.String("op", op),
		slog.Any("error", err),
	)
}

// currentQuery returns the query of the page that issued a fragment
// request. Without htmx there is none.
func currentQuery(c *gin.Context) url.Values {
	raw := c.GetHeader(middleware.HeaderHXCurrentURL)
	if raw == "" {
		return url.Values{}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}
