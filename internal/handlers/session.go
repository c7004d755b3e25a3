package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/services"
)

// SessionHandler contains HTTP handlers for session, conversation and
// navigation operations. All handlers return JSON responses.
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler creates a new SessionHandler instance.
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// session resolves the {sid} URL parameter, writing the error response itself.
func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*services.Session, bool) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return sess, true
}

// CreateSession handles POST /api/sessions
// Opens a session with the stored conversations loaded.
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.CreateSessionResponse{
		SessionID:     sess.ID(),
		Conversations: len(sess.Previews()),
	})
}

// CloseSession handles DELETE /api/sessions/{sid}
// Cancels the session's timers and saves its conversations.
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.CloseSession(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConversations handles GET /api/sessions/{sid}/conversations
func (h *SessionHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Previews())
}

// SelectConversation handles POST /api/sessions/{sid}/conversations/{cid}/select
// Switches the active conversation and marks it read.
func (h *SessionHandler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.SelectConversation(chi.URLParam(r, "cid")); err != nil {
		writeError(w, err)
		return
	}
	view, err := sess.Thread()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetThread handles GET /api/sessions/{sid}/thread
// Returns the day-grouped plan, the draft and the navigation state.
func (h *SessionHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	view, err := sess.Thread()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateDraft handles POST /api/sessions/{sid}/draft
func (h *SessionHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.DraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := sess.OnDraftTextChange(req.Text); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BeginReply handles POST /api/sessions/{sid}/reply
// Snapshots the target message as the reply preview of the next message.
func (h *SessionHandler) BeginReply(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.ReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.MessageID == "" {
		badRequest(w, "message_id is required")
		return
	}

	rc, err := sess.BeginReply(req.MessageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

// CancelReply handles DELETE /api/sessions/{sid}/reply
func (h *SessionHandler) CancelReply(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sess.CancelReply(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Jump handles POST /api/sessions/{sid}/jump
// Scrolls to a replied-to message; 404 if it is no longer in the thread.
func (h *SessionHandler) Jump(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	var req models.JumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.MessageID == "" {
		badRequest(w, "message_id is required")
		return
	}

	snap, err := sess.ResolveJump(req.MessageID, req.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// JumpBack handles POST /api/sessions/{sid}/jump/back
// Returns the offset saved by the last jump, or 404 once it has expired.
func (h *SessionHandler) JumpBack(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}
	offset, ok := sess.JumpBack()
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "nothing to jump back to"})
		return
	}
	writeJSON(w, http.StatusOK, models.JumpBackResponse{Offset: offset})
}
