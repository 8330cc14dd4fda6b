package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lexicon/internal/apperr"
	"github.com/starford/lexicon/internal/docservice"
	"github.com/starford/lexicon/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *docservice.Service
	notifier ChangeNotifier
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service, notifier ChangeNotifier) *Handler {
	return &Handler{svc: svc, notifier: notifier}
}

func (h *Handler) changed(reason string) {
	if h.notifier != nil {
		h.notifier.PublishDocumentChange(reason)
	}
}

// writeError maps service errors to status codes.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// GetDocument handles GET /api/document.
//
//	@Summary		Get the live document
//	@Tags			document
//	@Produce		json
//	@Produce		text/markdown
//	@Param			format	query		string	false	"Output format"	Enums(html, markdown)
//	@Success		200		{object}	docservice.Snapshot
//	@Security		BearerAuth
//	@Router			/document [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("format") == "markdown" {
		out, err := h.svc.Markdown(r.Context())
		if err != nil {
			writeError(w, "render markdown", err)
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(out))
		return
	}

	snap, err := h.svc.Document(r.Context())
	if err != nil {
		writeError(w, "render document", err)
		return
	}
	w.Header().Set("ETag", `"`+snap.Checksum+`"`)
	writeJSON(w, http.StatusOK, snap)
}

// AppendNodes handles POST /api/document/nodes.
//
//	@Summary		Append markup to matching elements
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			If-Match	header	string				false	"Document checksum for optimistic concurrency"
//	@Param			body		body	AppendNodesRequest	true	"Fragment to append"
//	@Success		200		{object}	NodesResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/nodes [post]
func (h *Handler) AppendNodes(w http.ResponseWriter, r *http.Request) {
	var req AppendNodesRequest
	if !decodeJSON(w, r, 10<<20, &req) {
		return
	}
	if req.Selector == "" || req.HTML == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("selector and html are required"))
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	n, err := h.svc.AppendNodes(r.Context(), req.Selector, req.HTML, ifMatch)
	if err != nil {
		writeError(w, "append nodes", err)
		return
	}
	h.changed("append")
	writeJSON(w, http.StatusOK, NodesResponse{Matched: n})
}

// RemoveNodes handles DELETE /api/document/nodes.
//
//	@Summary		Remove matching elements
//	@Tags			document
//	@Produce		json
//	@Param			selector	query		string	true	"CSS selector"
//	@Success		200			{object}	NodesResponse
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/document/nodes [delete]
func (h *Handler) RemoveNodes(w http.ResponseWriter, r *http.Request) {
	selector := r.URL.Query().Get("selector")
	if selector == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'selector' is required"))
		return
	}
	n, err := h.svc.RemoveNodes(r.Context(), selector)
	if err != nil {
		writeError(w, "remove nodes", err)
		return
	}
	h.changed("remove")
	writeJSON(w, http.StatusOK, NodesResponse{Matched: n})
}

// Pointer handles POST /api/pointer.
//
//	@Summary		Dispatch a pointer enter or leave event
//	@Tags			document
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PointerRequest	true	"Pointer event"
//	@Success		200		{object}	PointerResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pointer [post]
func (h *Handler) Pointer(w http.ResponseWriter, r *http.Request) {
	var req PointerRequest
	if !decodeJSON(w, r, 1<<20, &req) {
		return
	}
	if req.Selector == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("selector is required"))
		return
	}
	in := docservice.PointerInput{Selector: req.Selector, Event: req.Event, Rect: req.Rect}
	if req.Scroll != nil {
		in.ScrollX, in.ScrollY = &req.Scroll.X, &req.Scroll.Y
	}
	n, err := h.svc.Pointer(r.Context(), in)
	if err != nil {
		writeError(w, "pointer", err)
		return
	}
	writeJSON(w, http.StatusOK, PointerResponse{Listeners: n})
}

// ListTooltips handles GET /api/tooltips.
//
//	@Summary		List attached tooltips
//	@Tags			engine
//	@Produce		json
//	@Success		200	{object}	TooltipListResponse
//	@Security		BearerAuth
//	@Router			/tooltips [get]
func (h *Handler) ListTooltips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.svc.Tooltips(r.Context())
	if err != nil {
		writeError(w, "list tooltips", err)
		return
	}
	writeJSON(w, http.StatusOK, TooltipListResponse{Tooltips: tips})
}

// ListReplacements handles GET /api/replacements.
//
//	@Summary		List substitutions made in this session
//	@Tags			engine
//	@Produce		json
//	@Success		200	{object}	ReplacementListResponse
//	@Security		BearerAuth
//	@Router			/replacements [get]
func (h *Handler) ListReplacements(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Replacements(r.Context())
	if err != nil {
		writeError(w, "list replacements", err)
		return
	}
	writeJSON(w, http.StatusOK, ReplacementListResponse{Replacements: recs})
}

// GetDictionary handles GET /api/dictionary.
//
//	@Summary		Get the active dictionary
//	@Tags			engine
//	@Produce		json
//	@Success		200	{object}	DictionaryResponse
//	@Security		BearerAuth
//	@Router			/dictionary [get]
func (h *Handler) GetDictionary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, DictionaryResponse{Entries: h.svc.Dictionary()})
}

// LookupTerm handles GET /api/dictionary/{term}.
//
//	@Summary		Look up one term
//	@Tags			engine
//	@Produce		json
//	@Param			term	path		string	true	"Term, any case"
//	@Success		200		{object}	models.DictionaryEntry
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/dictionary/{term} [get]
func (h *Handler) LookupTerm(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.Lookup(chi.URLParam(r, "term"))
	if err != nil {
		writeError(w, "lookup term", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// Substitute handles POST /api/substitute.
//
//	@Summary		Rewrite free text without touching the document
//	@Tags			engine
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SubstituteRequest	true	"Text"
//	@Success		200		{object}	SubstituteResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/substitute [post]
func (h *Handler) Substitute(w http.ResponseWriter, r *http.Request) {
	var req SubstituteRequest
	if !decodeJSON(w, r, 1<<20, &req) {
		return
	}
	out, found, err := h.svc.Substitute(req.Text)
	if err != nil {
		writeError(w, "substitute", err)
		return
	}
	if found == nil {
		found = []models.Replacement{}
	}
	writeJSON(w, http.StatusOK, SubstituteResponse{Text: out, Replacements: found})
}

// Status handles GET /api/status.
//
//	@Summary		Get the session status
//	@Tags			engine
//	@Produce		json
//	@Success		200	{object}	models.Status
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context())
	if err != nil {
		writeError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Rescan handles POST /api/rescan.
//
//	@Summary		Run a substitution pass now
//	@Tags			engine
//	@Success		204	"Pass finished"
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/rescan [post]
func (h *Handler) Rescan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Rescan(r.Context()); err != nil {
		writeError(w, "rescan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetActivation handles PUT /api/activation.
//
//	@Summary		Turn substitution on or off for the next session
//	@Tags			engine
//	@Accept			json
//	@Param			body	body	ActivationRequest	true	"Activation flag"
//	@Success		204		"Flag stored"
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/activation [put]
func (h *Handler) SetActivation(w http.ResponseWriter, r *http.Request) {
	var req ActivationRequest
	if !decodeJSON(w, r, 1<<10, &req) {
		return
	}
	if req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("enabled is required"))
		return
	}
	if err := h.svc.SetActivation(r.Context(), *req.Enabled); err != nil {
		writeError(w, "set activation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
