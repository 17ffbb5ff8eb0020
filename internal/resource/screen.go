package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"sort"
	"time"

	"github.com/go-playground/form"

	"github.com/tsam/console/internal/backend"
	"github.com/tsam/console/internal/domain"
	"github.com/tsam/console/internal/listview"
	"github.com/tsam/console/internal/session"
)

// ErrSessionExpired is returned when a modal session is unknown or timed out.
var ErrSessionExpired = domain.NewAppError(domain.CodeNotFound, "This form has expired. Please open it again.", session.ErrNotFound)

// DefaultSessionTTL applies when Deps.SessionTTL is zero.
const DefaultSessionTTL = 30 * time.Minute


// Uploader stores files for url fields.
type Uploader interface {
	Upload(ctx context.Context, kind backend.UploadKind, filename string, r io.Reader) (string, error)
}

// Deps are the collaborators shared by all screens.
type Deps struct {
	Client     *backend.Client
	Sessions   session.Store
	SessionTTL time.Duration
	Validator  listview.StructValidator
	Limits     listview.Limits
	Logger     *slog.Logger
	Observer   listview.Observer
}

// Screen is a bound list screen with its entity types erased, so the HTTP
// handlers and the command line drive every resource the same way. Each
// call restores the state from the address bar query q, applies one
// operation and returns the resulting view. List views are returned even
// when the operation failed so the page can render next to the alert.
type Screen interface {
	Info() Info
	FilterNames() []string

	List(ctx context.Context, q url.Values) (*ListView, error)
	Search(ctx context.Context, q, criteria url.Values) (*ListView, error)
	RemoveCriterion(ctx context.Context, q url.Values, field string) (*ListView, error)
	Reset(ctx context.Context, q url.Values) (*ListView, error)
	Page(ctx context.Context, q url.Values, n int) (*ListView, error)
	Limit(ctx context.Context, q url.Values, n int) (*ListView, error)

	OpenAdd(ctx context.Context) (*ModalView, error)
	OpenView(ctx context.Context, id string) (*ModalView, error)
	Edit(ctx context.Context, sid string) (*ModalView, error)
	Submit(ctx context.Context, q url.Values, sid string, posted url.Values) (*SubmitOutcome, error)
	CloseModal(ctx context.Context, sid string) error

	ConfirmDelete(ctx context.Context, id string) (*ConfirmView, error)
	// Delete returns a nil view when nothing was deleted.
	Delete(ctx context.Context, q url.Values, id string) (*ListView, string, error)

	Upload(ctx context.Context, field, filename string, r io.Reader) (string, error)
}

type screen[E domain.Record, F any] struct {
	def      Definition[E, F]
	backend  listview.Backend[E]
	uploader Uploader
	deps     Deps
	cfg      listview.Config
	logger   *slog.Logger
}

// Bind attaches def to the backend client in deps.
func Bind[E domain.Record, F any](def Definition[E, F], deps Deps) Screen {
	var up Uploader
	if deps.Client != nil {
		up = deps.Client
	}
	return newScreen(def, backend.NewResource[E](deps.Client, def.Endpoint), up, deps)
}

func newScreen[E domain.Record, F any](def Definition[E, F], be listview.Backend[E], up Uploader, deps Deps) *screen[E, F] {
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = DefaultSessionTTL
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewMemoryStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &screen[E, F]{
		def:      def,
		backend:  be,
		uploader: up,
		deps:     deps,
		logger:   logger.With("resource", def.Name),
		cfg: listview.Config{
			Resource:     def.Name,
			Title:        def.Title,
			FilterFields: def.FilterNames(),
			FormFields:   def.FieldNames(),
			Limits:       deps.Limits,
			Validator:    deps.Validator,
			Logger:       logger,
			Observer:     deps.Observer,
		},
	}
}

func (s *screen[E, F]) Info() Info {
	return Info{Name: s.def.Name, Title: s.def.Title, Plural: s.def.Plural}
}

func (s *screen[E, F]) FilterNames() []string { return s.def.FilterNames() }

func (s *screen[E, F]) controller() *listview.Controller[E, F] {
	return listview.NewController[E, F](s.cfg, s.backend)
}

// restore loads q into a fresh controller. Invalid criteria in q are
// dropped and only logged, since the caller is about to replace the view.
func (s *screen[E, F]) restore(ctx context.Context, q url.Values) *listview.Controller[E, F] {
	ctl := s.controller()
	if err := ctl.Restore(q); err != nil {
		s.logger.DebugContext(ctx, "ignoring invalid query state", "error", err)
	}
	return ctl
}

// ensureLoaded fetches when the operation itself did not.
func (s *screen[E, F]) ensureLoaded(ctx context.Context, ctl *listview.Controller[E, F], err error) error {
	if err != nil || ctl.Loaded() {
		return err
	}
	return ctl.Fetch(ctx)
}

func (s *screen[E, F]) List(ctx context.Context, q url.Values) (*ListView, error) {
	ctl := s.controller()
	err := ctl.Init(ctx, q)
	return s.listView(ctl), err
}

func (s *screen[E, F]) Search(ctx context.Context, q, criteria url.Values) (*ListView, error) {
	ctl := s.restore(ctx, q)
	err := ctl.Search(ctx, listview.FormValueFromQuery(criteria))
	if err != nil && !ctl.Loaded() {
		// Rejected criteria keep the current list on screen.
		_ = ctl.Fetch(ctx)
		return s.listView(ctl), err
	}
	return s.listView(ctl), s.ensureLoaded(ctx, ctl, err)
}

func (s *screen[E, F]) RemoveCriterion(ctx context.Context, q url.Values, field string) (*ListView, error) {
	ctl := s.restore(ctx, q)
	err := ctl.DeleteSearchCriteria(ctx, field)
	return s.listView(ctl), s.ensureLoaded(ctx, ctl, err)
}

func (s *screen[E, F]) Reset(ctx context.Context, q url.Values) (*ListView, error) {
	ctl := s.restore(ctx, q)
	err := ctl.ResetSearchAndGetAll(ctx)
	return s.listView(ctl), err
}

func (s *screen[E, F]) Page(ctx context.Context, q url.Values, n int) (*ListView, error) {
	ctl := s.restore(ctx, q)
	err := ctl.ChangePage(ctx, n)
	return s.listView(ctl), err
}

func (s *screen[E, F]) Limit(ctx context.Context, q url.Values, n int) (*ListView, error) {
	ctl := s.restore(ctx, q)
	err := ctl.SetLimit(ctx, n)
	return s.listView(ctl), err
}

func (s *screen[E, F]) OpenAdd(ctx context.Context) (*ModalView, error) {
	sess := listview.OpenAdd(s.def.Name, s.def.defaults())
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return s.modalView(sess), nil
}

func (s *screen[E, F]) OpenView(ctx context.Context, id string) (*ModalView, error) {
	rec, err := s.controller().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess := listview.OpenView(s.def.Name, rec)
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return s.modalView(sess), nil
}

func (s *screen[E, F]) Edit(ctx context.Context, sid string) (*ModalView, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if err := sess.Edit(); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	return s.modalView(sess), nil
}

func (s *screen[E, F]) Submit(ctx context.Context, q url.Values, sid string, posted url.Values) (*SubmitOutcome, error) {
	sess, err := s.load(ctx, sid)
	if err != nil {
		return nil, err
	}
	if !sess.Editable() {
		return nil, fmt.Errorf("%w: submit from %s", listview.ErrInvalidTransition, sess.Mode)
	}

	if decodeErrs := s.applyPosted(sess.Form, posted); len(decodeErrs) > 0 {
		sess.Form.Errors = decodeErrs
		sess.Form.MarkAllTouched(s.def.FieldNames())
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		return &SubmitOutcome{Modal: s.modalView(sess)}, nil
	}

	ctl := s.restore(ctx, q)
	msg, err := ctl.Submit(ctx, sess)
	switch {
	case errors.Is(err, listview.ErrInvalidForm):
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		return &SubmitOutcome{Modal: s.modalView(sess)}, nil
	case err != nil && sess.Mode != listview.ModeClosed:
		if saveErr := s.save(ctx, sess); saveErr != nil {
			s.logger.WarnContext(ctx, "keeping modal open failed", "session", sid, "error", saveErr)
		}
		return &SubmitOutcome{Modal: s.modalView(sess)}, err
	}

	if delErr := s.deps.Sessions.Delete(ctx, sid); delErr != nil {
		s.logger.WarnContext(ctx, "delete modal session failed", "session", sid, "error", delErr)
	}
	return &SubmitOutcome{List: s.listView(ctl), Message: msg}, err
}

func (s *screen[E, F]) CloseModal(ctx context.Context, sid string) error {
	return s.deps.Sessions.Delete(ctx, sid)
}

func (s *screen[E, F]) ConfirmDelete(ctx context.Context, id string) (*ConfirmView, error) {
	rec, err := s.controller().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ConfirmView{Info: s.Info(), ID: id, Summary: s.def.Summary(rec)}, nil
}

func (s *screen[E, F]) Delete(ctx context.Context, q url.Values, id string) (*ListView, string, error) {
	ctl := s.restore(ctx, q)
	msg, err := ctl.Delete(ctx, id)
	if !ctl.Loaded() {
		return nil, msg, err
	}
	return s.listView(ctl), msg, err
}

func (s *screen[E, F]) Upload(ctx context.Context, field, filename string, r io.Reader) (string, error) {
	in, ok := s.def.field(field)
	if !ok || in.Kind != KindUpload {
		return "", domain.NewAppError(domain.CodeValidation, fmt.Sprintf("%s does not accept uploads", field), nil)
	}
	if s.uploader == nil {
		return "", domain.NewAppError(domain.CodeInternal, "uploads are not configured", nil)
	}
	return s.uploader.Upload(ctx, in.Upload, filename, r)
}

func (s *screen[E, F]) load(ctx context.Context, sid string) (*listview.ModalSession[E], error) {
	sess, err := session.Get[E](ctx, s.deps.Sessions, sid, s.def.Name)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	return sess, err
}

func (s *screen[E, F]) save(ctx context.Context, sess *listview.ModalSession[E]) error {
	return session.Put(ctx, s.deps.Sessions, sess, s.deps.SessionTTL)
}

// applyPosted decodes the posted controls onto the form value. Unchecked
// checkboxes are not posted and cleared numbers must not keep their old
// value, so both are filled in first. Values that cannot be decoded are
// returned as field errors.
func (s *screen[E, F]) applyPosted(f *listview.Form[E], posted url.Values) map[string]string {
	vals := url.Values{}
	for _, in := range s.def.Fields {
		got, ok := posted[in.Name]
		switch {
		case in.Kind == KindCheckbox:
			vals.Set(in.Name, fmt.Sprint(ok && slices.Contains(got, "true")))
		case !ok:
		case in.numeric() && (len(got) == 0 || got[0] == ""):
			vals.Set(in.Name, "0")
		default:
			vals[in.Name] = got
		}
	}

	value := f.Value
	err := listview.DecodeForm(&value, vals)
	f.Patch(value)
	if err == nil {
		return nil
	}

	var decodeErrs form.DecodeErrors
	if !errors.As(err, &decodeErrs) {
		return map[string]string{"": err.Error()}
	}
	out := make(map[string]string, len(decodeErrs))
	for name := range decodeErrs {
		out[name] = listview.Humanize(name) + " is not a valid value"
	}
	return out
}

func (s *screen[E, F]) listView(ctl *listview.Controller[E, F]) *ListView {
	st := ctl.State()
	v := &ListView{
		Info:       s.Info(),
		Columns:    make([]string, len(s.def.Columns)),
		Rows:       make([]Row, 0, len(st.Records)),
		Chips:      st.Chips(),
		IsSearched: st.IsSearched,
		Page:       st.Page,
		Nav:        st.Page.Nav(listview.DefaultPageWindow),
		Limits:     limitOptions(ctl.Config().Limits, st.Page.Limit),
		Query:      ctl.Query(),
	}
	for i, col := range s.def.Columns {
		v.Columns[i] = col.Label
	}
	for _, rec := range st.Records {
		row := Row{ID: rec.RecordID(), Cells: make([]string, len(s.def.Columns))}
		for i, col := range s.def.Columns {
			row.Cells[i] = col.Value(rec)
		}
		v.Rows = append(v.Rows, row)
	}
	formVals := st.Form.Values()
	for _, in := range s.def.Filters {
		v.Search = append(v.Search, Field{Input: in, Value: formVals.Get(in.Name), Values: formVals[in.Name]})
	}
	return v
}

func (s *screen[E, F]) modalView(sess *listview.ModalSession[E]) *ModalView {
	vals, err := listview.EncodeRecord(sess.Form.Value)
	if err != nil {
		s.logger.Warn("encode record for modal failed", "session", sess.ID, "error", err)
		vals = url.Values{}
	}

	m := &ModalView{
		Info:      s.Info(),
		SessionID: sess.ID,
		Mode:      sess.Mode,
		Editable:  sess.Editable(),
	}
	switch sess.Mode {
	case listview.ModeAdding:
		m.Heading = "Add " + s.def.Title
	case listview.ModeEditing:
		m.Heading = "Update " + s.def.Title
	default:
		m.Heading = s.def.Title + " Details"
	}
	for _, in := range s.def.Fields {
		fd := Field{
			Input:    in,
			Value:    vals.Get(in.Name),
			Values:   vals[in.Name],
			Error:    sess.Form.Error(in.Name),
			Disabled: sess.Form.Disabled,
		}
		if in.Kind == KindRichText {
			fd.HTML = domain.SanitizeHTML(fd.Value)
		}
		m.Fields = append(m.Fields, fd)
	}
	return m
}

// limitOptions offers the usual page sizes up to the configured maximum,
// plus the configured default and the current size.
func limitOptions(l listview.Limits, current int) []int {
	set := map[int]bool{l.Default: true, current: true}
	for _, n := range []int{5, 10, 20, 50, 100} {
		if n <= l.Max {
			set[n] = true
		}
	}
	out := make([]int, 0, len(set))
	for n := range set {
		if n > 0 {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}
