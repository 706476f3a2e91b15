package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/phenrril/myshop/internal/adapters/export"
	"github.com/phenrril/myshop/internal/admin"
	"github.com/phenrril/myshop/internal/apierror"
	"github.com/phenrril/myshop/internal/domain"
	"github.com/phenrril/myshop/internal/shopadmin"
	"github.com/phenrril/myshop/internal/usecase"
)

const maxBody = 1 << 20

type Server struct {
	mux      *http.ServeMux
	site     *admin.Site
	products *usecase.ProductUC
	oses     *usecase.OperatingSystemUC

	auth    AuthConfig
	allowed map[string]struct{}
}

func New(site *admin.Site, p *usecase.ProductUC, o *usecase.OperatingSystemUC, auth AuthConfig) http.Handler {
	if auth.TokenTTL <= 0 {
		auth.TokenTTL = 6 * time.Hour
	}
	s := &Server{mux: http.NewServeMux(), site: site, products: p, oses: o, auth: auth, allowed: parseAllowed(auth.AllowedEmails)}
	s.routes()
	return Chain(s.mux, RequestID, Recovery, Logging)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /admin/auth", s.handleAdminAuth)
	s.mux.HandleFunc("GET /admin/auth/google/login", s.handleGoogleLogin)
	s.mux.HandleFunc("GET /admin/auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("POST /admin/logout", s.handleAdminLogout)

	s.mux.HandleFunc("GET /admin/{$}", s.protected(s.handleIndex))

	s.mux.HandleFunc("GET /admin/product/{$}", s.protected(s.handleChangeList))
	s.mux.HandleFunc("GET /admin/product/export.xlsx", s.protected(s.handleExport))
	s.mux.HandleFunc("GET /admin/product/add/{$}", s.protected(s.handleAddForm))
	s.mux.HandleFunc("POST /admin/product/add/{$}", s.protected(s.handleCreate))
	s.mux.HandleFunc("POST /admin/product/reorder/{$}", s.protected(s.handleReorder))
	s.mux.HandleFunc("GET /admin/product/{id}/{$}", s.protected(s.handleChangeForm))
	s.mux.HandleFunc("PUT /admin/product/{id}/{$}", s.protected(s.handleUpdate))
	s.mux.HandleFunc("DELETE /admin/product/{id}/{$}", s.protected(s.handleDelete))
	s.mux.HandleFunc("GET /admin/product/{id}/placeholders/{slot}", s.protected(s.handlePlaceholder))
	s.mux.HandleFunc("PUT /admin/product/{id}/placeholders/{slot}", s.protected(s.handleSavePlaceholder))
	s.mux.HandleFunc("PATCH /admin/product/{id}/edit-field/{field}", s.protected(s.handleEditField))
	s.mux.HandleFunc("GET /admin/product/{id}/text-index", s.protected(s.handleTextIndex))
	s.mux.HandleFunc("POST /admin/product/{id}/specsheet", s.protected(s.handleSpecSheet))

	s.mux.HandleFunc("GET /admin/operatingsystem/{$}", s.protected(s.handleOSList))
	s.mux.HandleFunc("POST /admin/operatingsystem/{$}", s.protected(s.handleOSCreate))
	s.mux.HandleFunc("GET /admin/operatingsystem/{id}/{$}", s.protected(s.handleOSGet))
	s.mux.HandleFunc("PUT /admin/operatingsystem/{id}/{$}", s.protected(s.handleOSUpdate))
	s.mux.HandleFunc("DELETE /admin/operatingsystem/{id}/{$}", s.protected(s.handleOSDelete))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps use case errors onto status codes. Anything unknown is
// logged and answered with a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *admin.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, apierror.NewValidation(ve.Fields))
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, admin.ErrNotRegistered):
		writeJSON(w, http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, domain.ErrUnknownProductType),
		errors.Is(err, domain.ErrUnknownCMSPage),
		errors.Is(err, admin.ErrUnknownSlot),
		errors.Is(err, admin.ErrNotEditable),
		errors.Is(err, admin.ErrInvalidPosition),
		errors.Is(err, usecase.ErrNotSortable),
		errors.Is(err, usecase.ErrNoDisplay),
		errors.Is(err, usecase.ErrNotSmartPhone):
		writeJSON(w, http.StatusBadRequest, apierror.New(err.Error()))
	case errors.Is(err, domain.ErrDuplicate):
		writeJSON(w, http.StatusConflict, apierror.New(domain.ErrDuplicate.Error()))
	default:
		log.Error().Err(err).Str("request_id", RequestIDFrom(r.Context())).Str("path", r.URL.Path).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, apierror.New("internal server error"))
	}
}

func readForm(w http.ResponseWriter, r *http.Request) (admin.Form, bool) {
	f, err := admin.DecodeForm(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apierror.New(err.Error()))
		return nil, false
	}
	return f, true
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apierror.New("not found"))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"title": s.site.Title, "models": s.site.Models()})
}

func (s *Server) changeListParams(r *http.Request) admin.ChangeListParams {
	return admin.ParseChangeList(r.URL.Query(), s.products.Parent.ListFilter)
}

func (s *Server) handleChangeList(w http.ResponseWriter, r *http.Request) {
	cl, err := s.products.ChangeList(r.Context(), s.changeListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	header, rows, err := s.products.ExportRows(r.Context(), s.changeListParams(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, header, rows); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=products.xlsx")
	_, _ = io.Copy(w, &buf)
}

// changeForm is the layout of a child admin plus the instance being edited.
type changeForm struct {
	Model            string           `json:"model"`
	VerboseName      string           `json:"verbose_name"`
	ProductType      string           `json:"product_type"`
	Fields           []admin.FieldRow `json:"fields"`
	Inlines          []admin.Inline   `json:"inlines,omitempty"`
	Placeholders     []string         `json:"placeholders,omitempty"`
	FrontendEditable []string         `json:"frontend_editable,omitempty"`
	Displays         []string         `json:"displays,omitempty"`
	Object           domain.Leaf      `json:"object,omitempty"`
}

func newChangeForm(m *admin.ModelAdmin, l domain.Leaf) changeForm {
	cf := changeForm{Model: m.Name, VerboseName: m.VerboseName, Fields: m.Fields, Inlines: m.Inlines, Object: l}
	if m.Polymorphic != nil {
		cf.ProductType = string(m.Polymorphic.Type)
	}
	if m.Placeholders != nil {
		cf.Placeholders = m.Placeholders.Slots
	}
	if m.Frontend != nil {
		cf.FrontendEditable = m.Frontend.Fields
	}
	for _, d := range m.Displays {
		cf.Displays = append(cf.Displays, d.Name)
	}
	return cf
}

// handleAddForm answers the type chooser, or the empty form of the child
// named by ?ct=.
func (s *Server) handleAddForm(w http.ResponseWriter, r *http.Request) {
	ct := r.URL.Query().Get("ct")
	if ct == "" {
		writeJSON(w, http.StatusOK, map[string]any{"choices": s.products.AddChoices()})
		return
	}
	child, err := s.products.Parent.Child(domain.ProductType(ct))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChangeForm(child, nil))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r)
	if !ok {
		return
	}
	l, err := s.products.Create(r.Context(), domain.ProductType(r.URL.Query().Get("ct")), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

func (s *Server) handleChangeForm(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	l, child, err := s.products.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newChangeForm(child, l))
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	form, ok := readForm(w, r)
	if !ok {
		return
	}
	l, err := s.products.Update(r.Context(), id, form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	if err := s.products.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartOrder int `json:"startorder"`
		EndOrder   int `json:"endorder"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apierror.New("invalid JSON"))
		return
	}
	if err := s.products.Reorder(r.Context(), req.StartOrder, req.EndOrder); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	ph, err := s.products.Placeholder(r.Context(), id, r.PathValue("slot"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ph)
}

func (s *Server) handleSavePlaceholder(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apierror.New("invalid request body"))
		return
	}
	ph, err := s.products.SavePlaceholder(r.Context(), id, r.PathValue("slot"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ph)
}

func (s *Server) handleEditField(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil || req.Value == nil {
		writeJSON(w, http.StatusBadRequest, apierror.New("value is required"))
		return
	}
	l, err := s.products.EditField(r.Context(), id, r.PathValue("field"), req.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleTextIndex(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	d, out, err := s.products.Display(r.Context(), id, shopadmin.TextIndexDisplay)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"label": d.Label, "content": out})
}

func (s *Server) handleSpecSheet(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var req struct {
		URL string `json:"url"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, apierror.New("invalid JSON"))
			return
		}
	}
	sheet, err := s.products.SpecSheet(r.Context(), id, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

func osID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, apierror.New("not found"))
		return 0, false
	}
	return uint(id), true
}

func (s *Server) handleOSList(w http.ResponseWriter, r *http.Request) {
	list, err := s.oses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":        s.oses.Admin.Name,
		"verbose_name": s.oses.Admin.VerboseName,
		"fields":       s.oses.Admin.Fields,
		"results":      list,
	})
}

func (s *Server) handleOSCreate(w http.ResponseWriter, r *http.Request) {
	form, ok := readForm(w, r)
	if !ok {
		return
	}
	os, err := s.oses.Create(r.Context(), form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, os)
}

func (s *Server) handleOSGet(w http.ResponseWriter, r *http.Request) {
	id, ok := osID(w, r)
	if !ok {
		return
	}
	os, err := s.oses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (s *Server) handleOSUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := osID(w, r)
	if !ok {
		return
	}
	form, ok := readForm(w, r)
	if !ok {
		return
	}
	os, err := s.oses.Update(r.Context(), id, form)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (s *Server) handleOSDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := osID(w, r)
	if !ok {
		return
	}
	if err := s.oses.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
