package listview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/tsam/console/internal/domain"
)

// ErrSuperseded is returned by a fetch whose response arrived after a newer
// fetch was started. Its result is discarded.
var ErrSuperseded = errors.New("listview: fetch superseded by a newer request")

// Backend is the REST port a list screen talks to.
type Backend[E domain.Record] interface {
	Mutator[E]
	List(ctx context.Context, q url.Values) (domain.Page[E], error)
	Get(ctx context.Context, id string) (E, error)
	Delete(ctx context.Context, id string) (domain.Result[E], error)
}

// Observer is notified when backend operations start and finish.
type Observer interface {
	InFlight(resource string, delta int)
}

// Config describes one list screen.
type Config struct {
	// Resource is the route name, e.g. "technologies".
	Resource string
	// Title is the singular display name used in confirmations.
	Title string
	// FilterFields is the declared order of the search form fields.
	FilterFields []string
	// FormFields lists the editable controls of the entity form.
	FormFields []string
	Limits     Limits
	Validator  StructValidator
	Logger     *slog.Logger
	Observer   Observer
}

// ListViewState is a snapshot of a list screen.
type ListViewState[E any] struct {
	Page       PageState
	Form       SearchFormValue
	Filters    []FilterField
	IsSearched bool
	Records    []E
}

// Chips returns the active criteria shown as removable chips.
func (s ListViewState[E]) Chips() []FilterField { return Chips(s.Filters) }

// Controller drives a list screen for entity E searched by filter F. It is
// safe for concurrent use. When fetches overlap, only the most recently
// started one updates the state.
type Controller[E domain.Record, F any] struct {
	cfg     Config
	backend Backend[E]
	logger  *slog.Logger

	mu     sync.Mutex
	state  ListViewState[E]
	query  url.Values
	gen    uint64
	loaded bool

	inflight atomic.Int64
}

// NewController returns a controller on the first page with no criteria.
func NewController[E domain.Record, F any](cfg Config, backend Backend[E]) *Controller[E, F] {
	cfg.Limits = cfg.Limits.normalized()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[E, F]{
		cfg:     cfg,
		backend: backend,
		logger:  logger.With("resource", cfg.Resource),
		state: ListViewState[E]{
			Page: NewPageState(cfg.Limits.Default),
			Form: SearchFormValue{},
		},
		query: url.Values{},
	}
}

// Config returns the screen configuration.
func (c *Controller[E, F]) Config() Config { return c.cfg }

// State returns a copy of the current state.
func (c *Controller[E, F]) State() ListViewState[E] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ListViewState[E]{
		Page:       c.state.Page,
		Form:       c.state.Form.Clone(),
		Filters:    slices.Clone(c.state.Filters),
		IsSearched: c.state.IsSearched,
		Records:    slices.Clone(c.state.Records),
	}
}

// Query returns the address bar query mirroring the current state.
func (c *Controller[E, F]) Query() url.Values {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneValues(c.query)
}

// Loaded reports whether a fetch has been applied to the state, successful
// or not.
func (c *Controller[E, F]) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// InFlight returns the number of backend operations currently running.
func (c *Controller[E, F]) InFlight() int { return int(c.inflight.Load()) }

// Init synchronizes the screen with the address bar query and fetches.
// Without managed filter values it performs a plain fetch. Otherwise the
// values are patched into the search form and searched at the page the
// query names, so a reload or shared link reproduces the same view. Invalid
// criteria fall back to the plain list and the validation error is returned
// after the fetch.
func (c *Controller[E, F]) Init(ctx context.Context, q url.Values) error {
	restoreErr := c.Restore(q)
	if err := c.Fetch(ctx); err != nil {
		return err
	}
	return restoreErr
}

// Restore loads the search form and page position from q without fetching.
func (c *Controller[E, F]) Restore(q url.Values) error {
	form, page := ParseQuery(q, c.cfg.FilterFields, c.cfg.Limits)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = cloneValues(q)
	c.state.Page = page

	if len(form) == 0 {
		c.clearSearch(false)
		return nil
	}
	value, err := c.normalize(form)
	if err != nil {
		c.clearSearch(true)
		return err
	}
	red := Reduce(value, c.cfg.FilterFields)
	if red.Action != ActionSearch {
		c.clearSearch(false)
		return nil
	}
	c.applyReduction(red)
	return nil
}

// Search reduces a submitted search form and acts on the outcome: a form
// with no values resets the search, a form holding only pagination fields
// does nothing, and anything else fetches the first filtered page.
func (c *Controller[E, F]) Search(ctx context.Context, form SearchFormValue) error {
	paging := SearchFormValue{}
	for k, v := range form {
		if IsPaginationField(k) {
			paging[k] = v
		}
	}

	value, err := c.normalize(form)
	if err != nil {
		return err
	}
	for k, v := range paging {
		value[k] = v
	}

	red := Reduce(value, c.cfg.FilterFields)
	switch red.Action {
	case ActionFetchAll:
		return c.ResetSearchAndGetAll(ctx)
	case ActionNone:
		return nil
	}

	c.mu.Lock()
	c.applyReduction(red)
	c.state.Page.ChangePage(1)
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// DeleteSearchCriteria removes one criterion and searches again.
func (c *Controller[E, F]) DeleteSearchCriteria(ctx context.Context, name string) error {
	c.mu.Lock()
	form := c.state.Form.Clone()
	c.mu.Unlock()

	if form == nil {
		form = SearchFormValue{}
	}
	form[name] = nil
	return c.Search(ctx, form)
}

// ResetSearchAndGetAll clears the search form and criteria and fetches the
// first unfiltered page.
func (c *Controller[E, F]) ResetSearchAndGetAll(ctx context.Context) error {
	return c.fetchAll(ctx, true)
}

// ChangePage moves to page n and fetches it with the current criteria.
func (c *Controller[E, F]) ChangePage(ctx context.Context, n int) error {
	c.mu.Lock()
	c.state.Page.ChangePage(n)
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// SetLimit changes the page size. Pagination-only changes never count as a
// search, so the criteria stay as they are.
func (c *Controller[E, F]) SetLimit(ctx context.Context, limit int) error {
	c.mu.Lock()
	c.state.Page.SetLimit(limit, c.cfg.Limits.Max)
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// Refresh re-runs the current fetch: the plain list or the last active
// search at the current page.
func (c *Controller[E, F]) Refresh(ctx context.Context) error {
	return c.Fetch(ctx)
}

// Get loads a single record.
func (c *Controller[E, F]) Get(ctx context.Context, id string) (E, error) {
	c.begin()
	defer c.end()
	rec, err := c.backend.Get(ctx, id)
	if err != nil {
		c.logger.WarnContext(ctx, "get record failed", "id", id, "error", err)
	}
	return rec, err
}

// Submit validates and dispatches the modal form, then refreshes the list.
// It returns the confirmation to show. ErrInvalidForm means the form holds
// field errors and nothing was sent.
func (c *Controller[E, F]) Submit(ctx context.Context, s *ModalSession[E]) (string, error) {
	updating := s.Updating()

	c.begin()
	res, err := s.Submit(ctx, c.cfg.Validator, c.cfg.FormFields, c.backend)
	c.end()
	if err != nil {
		if !errors.Is(err, ErrInvalidForm) {
			c.logger.WarnContext(ctx, "submit failed", "mode", s.Mode.String(), "error", err)
		}
		return "", err
	}

	msg := res.Message
	if msg == "" {
		verb := "added"
		if updating {
			verb = "updated"
		}
		msg = fmt.Sprintf("%s %s successfully", c.cfg.Title, verb)
	}
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return msg, err
	}
	return msg, nil
}

// Delete removes a record and refreshes the list. It returns the
// confirmation to show.
func (c *Controller[E, F]) Delete(ctx context.Context, id string) (string, error) {
	c.begin()
	res, err := c.backend.Delete(ctx, id)
	c.end()
	if err != nil {
		c.logger.WarnContext(ctx, "delete failed", "id", id, "error", err)
		return "", err
	}

	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("%s deleted successfully", c.cfg.Title)
	}
	if err := c.Refresh(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return msg, err
	}
	return msg, nil
}

// Fetch loads the current page with the current criteria. The pagination
// range is recomputed whether the fetch succeeds or fails. A failed fetch
// keeps the previous records and zeroes the total count. A page past the
// last one, as left behind by deleting its only record, moves to the last
// page and fetches again.
func (c *Controller[E, F]) Fetch(ctx context.Context) error {
	moved, err := c.fetch(ctx)
	if err != nil || !moved {
		return err
	}
	_, err = c.fetch(ctx)
	return err
}

func (c *Controller[E, F]) fetch(ctx context.Context) (bool, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	q := c.state.Form.Values()
	c.state.Page.Apply(q)
	c.query = WriteQuery(c.query, c.state.Form, c.state.Page, c.cfg.FilterFields, c.cfg.Limits)
	c.mu.Unlock()

	c.begin()
	page, err := c.backend.List(ctx, q)
	c.end()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.DebugContext(ctx, "discarding superseded list response", "generation", gen)
		return false, ErrSuperseded
	}
	defer c.state.Page.SetPaginationString()
	c.loaded = true

	if err != nil {
		c.state.Page.TotalCount = 0
		c.logger.WarnContext(ctx, "list fetch failed", "error", err)
		return false, err
	}
	c.state.Records = page.Items
	c.state.Page.TotalCount = page.TotalCount

	if last := c.state.Page.LastPage(); c.state.Page.CurrentPage > last {
		c.logger.DebugContext(ctx, "page past the end, moving to last page", "page", c.state.Page.CurrentPage, "last", last)
		c.state.Page.ChangePage(last)
		return true, nil
	}
	return false, nil
}

func (c *Controller[E, F]) fetchAll(ctx context.Context, resetPage bool) error {
	c.mu.Lock()
	c.clearSearch(resetPage)
	c.mu.Unlock()
	return c.Fetch(ctx)
}

// clearSearch drops the search form and criteria. Callers hold c.mu.
func (c *Controller[E, F]) clearSearch(resetPage bool) {
	c.state.Form = SearchFormValue{}
	c.state.Filters = nil
	c.state.IsSearched = false
	if resetPage {
		c.state.Page.ChangePage(1)
	}
}

// applyReduction stores an active search. Callers hold c.mu.
func (c *Controller[E, F]) applyReduction(red Reduction) {
	form := SearchFormValue{}
	var fields []FilterField
	for _, f := range red.Fields {
		if IsPaginationField(f.Name) {
			continue
		}
		form[f.Name] = red.Value[f.Name]
		fields = append(fields, f)
	}
	c.state.Form = form
	c.state.Filters = fields
	c.state.IsSearched = true
}

// normalize passes the search values through the typed filter F and
// validates them. Pagination fields are dropped.
func (c *Controller[E, F]) normalize(form SearchFormValue) (SearchFormValue, error) {
	raw := SearchFormValue{}
	for k, v := range form {
		if !IsPaginationField(k) {
			raw[k] = v
		}
	}
	filter, value, err := NormalizeFilter[F](raw)
	if err != nil {
		return nil, domain.NewAppError(domain.CodeValidation, "invalid search criteria", err)
	}
	if c.cfg.Validator != nil {
		if fields := c.cfg.Validator.Struct(&filter); len(fields) > 0 {
			return nil, domain.ValidationError(fields)
		}
	}
	return value, nil
}

func (c *Controller[E, F]) begin() {
	c.inflight.Add(1)
	if c.cfg.Observer != nil {
		c.cfg.Observer.InFlight(c.cfg.Resource, 1)
	}
}

func (c *Controller[E, F]) end() {
	c.inflight.Add(-1)
	if c.cfg.Observer != nil {
		c.cfg.Observer.InFlight(c.cfg.Resource, -1)
	}
}

func cloneValues(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = slices.Clone(v)
	}
	return out
}
