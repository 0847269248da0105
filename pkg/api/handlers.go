package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	sferrors "github.com/vango-dev/storefront/internal/errors"
	"github.com/vango-dev/storefront/pkg/action"
	"github.com/vango-dev/storefront/pkg/binding"
	"github.com/vango-dev/storefront/pkg/document"
	"github.com/vango-dev/storefront/pkg/node"
	"github.com/vango-dev/storefront/pkg/render"
)

// DraftRequest is the body of PUT .../draft.
type DraftRequest struct {
	Tree *node.Node     `json:"tree"`
	Meta map[string]any `json:"meta,omitempty"`
}

// ThemeRequest is the body of PUT /v1/theme/draft.
type ThemeRequest struct {
	Variables map[string]string `json:"variables"`
}

// DispatchRequest is the body of POST /v1/actions/dispatch.
type DispatchRequest struct {
	Ref     node.ActionRef    `json:"ref"`
	Context binding.Context   `json:"context,omitempty"`
	Route   map[string]string `json:"route,omitempty"`
}

// RenderRequest is the body of POST /v1/render/{kind}/{key}.
type RenderRequest struct {
	Context binding.Context   `json:"context,omitempty"`
	Route   map[string]string `json:"route,omitempty"`
}

// RenderDispatchRequest is the body of POST /v1/render/{kind}/{key}/dispatch.
type RenderDispatchRequest struct {
	NodeID  string            `json:"nodeId"`
	Slot    string            `json:"slot"`
	Context binding.Context   `json:"context,omitempty"`
	Route   map[string]string `json:"route,omitempty"`
}

// DiffResponse is the body of GET .../diff.
type DiffResponse struct {
	Changes []node.Change `json:"changes"`
}

func docParams(r *http.Request) (document.Kind, string) {
	return document.ParseKind(chi.URLParam(r, "kind")), chi.URLParam(r, "key")
}

// Registries

func (s *Server) listComponents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.components.List())
}

func (s *Server) createInstance(w http.ResponseWriter, r *http.Request) {
	n, err := s.components.CreateNode(chi.URLParam(r, "type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.actions.List())
}

func (s *Server) dispatchAction(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	t := tenantOf(r)
	rc, err := s.renderer.Context(r.Context(), render.Request{
		StoreID: t.StoreID,
		UserID:  t.UserID,
		Route:   req.Route,
		Context: req.Context,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, nav := action.WithNavigation(r.Context())
	if err := s.dispatcher.Dispatch(ctx, req.Ref, rc); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, render.DispatchResult{ActionID: req.Ref.ActionID, Navigate: nav.Target()})
}

// Documents

func (s *Server) listDocuments(w http.ResponseWriter, r *http.Request) {
	var status document.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := document.ParseStatus(raw)
		if !ok {
			s.writeError(w, r, sferrors.New("E802").WithDetailf("unknown status %q", raw))
			return
		}
		status = st
	}
	docs, err := s.store.List(r.Context(), tenantOf(r).StoreID, document.ParseKind(chi.URLParam(r, "kind")), status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	doc, ok, err := s.store.GetDraft(r.Context(), tenantOf(r).StoreID, kind, key)
	s.writeDocument(w, r, doc, ok, err)
}

func (s *Server) getPublished(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	doc, ok, err := s.store.GetPublished(r.Context(), tenantOf(r).StoreID, kind, key)
	s.writeDocument(w, r, doc, ok, err)
}

func (s *Server) writeDocument(w http.ResponseWriter, r *http.Request, doc *document.Document, ok bool, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		kind, key := docParams(r)
		s.writeError(w, r, sferrors.New("E403").
			WithLocation(tenantOf(r).StoreID, string(kind), key, ""))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) saveDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	kind, key := docParams(r)
	doc, err := s.store.SaveDraft(r.Context(), tenantOf(r).StoreID, kind, key, req.Tree, req.Meta)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	existed, err := s.store.DeleteDraft(r.Context(), tenantOf(r).StoreID, kind, key)
	s.writeDeleted(w, r, existed, err)
}

func (s *Server) unpublish(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	existed, err := s.store.Unpublish(r.Context(), tenantOf(r).StoreID, kind, key)
	s.writeDeleted(w, r, existed, err)
}

func (s *Server) writeDeleted(w http.ResponseWriter, r *http.Request, existed bool, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !existed {
		kind, key := docParams(r)
		s.writeError(w, r, sferrors.New("E403").
			WithLocation(tenantOf(r).StoreID, string(kind), key, ""))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) publish(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	doc, err := s.store.Publish(r.Context(), tenantOf(r).StoreID, kind, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) diff(w http.ResponseWriter, r *http.Request) {
	kind, key := docParams(r)
	changes, err := s.store.Diff(r.Context(), tenantOf(r).StoreID, kind, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if changes == nil {
		changes = []node.Change{}
	}
	writeJSON(w, http.StatusOK, DiffResponse{Changes: changes})
}

// Rendering

func (s *Server) renderRequest(r *http.Request, ctx binding.Context, route map[string]string) render.Request {
	t := tenantOf(r)
	kind, key := docParams(r)
	return render.Request{
		StoreID:  t.StoreID,
		UserID:   t.UserID,
		Kind:     kind,
		Key:      key,
		Fallback: r.URL.Query().Get("fallback"),
		Route:    route,
		Context:  ctx,
	}
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.renderer.Render(r.Context(), s.renderRequest(r, req.Context, req.Route))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) renderDispatch(w http.ResponseWriter, r *http.Request) {
	var req RenderDispatchRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.NodeID == "" || req.Slot == "" {
		s.writeError(w, r, sferrors.New("E802").WithDetail("nodeId and slot are required"))
		return
	}
	res, err := s.renderer.Dispatch(r.Context(), s.renderRequest(r, req.Context, req.Route), req.NodeID, req.Slot)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Themes

func (s *Server) getThemeDraft(w http.ResponseWriter, r *http.Request) {
	theme, ok, err := s.store.GetThemeDraft(r.Context(), tenantOf(r).StoreID)
	s.writeTheme(w, r, theme, ok, err)
}

func (s *Server) getThemePublished(w http.ResponseWriter, r *http.Request) {
	theme, ok, err := s.store.GetThemePublished(r.Context(), tenantOf(r).StoreID)
	s.writeTheme(w, r, theme, ok, err)
}

func (s *Server) writeTheme(w http.ResponseWriter, r *http.Request, theme *document.Theme, ok bool, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, sferrors.New("E403").WithDetail("the store has no theme"))
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

func (s *Server) saveThemeDraft(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if err := decodeJSON(w, r, s.maxBody, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	theme, err := s.store.SaveThemeDraft(r.Context(), tenantOf(r).StoreID, req.Variables)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

func (s *Server) publishTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.store.PublishTheme(r.Context(), tenantOf(r).StoreID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}
