package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/adi-253/Talkie/chatcore/internal/attachments"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/services"
)

// multipartMemory is how much of a multipart body is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// MessageHandler contains HTTP handlers for sending and receiving messages.
type MessageHandler struct {
	sessions *services.SessionService
	maxBody  int64
	log      zerolog.Logger
}

// NewMessageHandler creates a new MessageHandler instance. maxBody bounds
// the request size of a send; 0 means no limit.
func NewMessageHandler(sessions *services.SessionService, maxBody int64) *MessageHandler {
	return &MessageHandler{
		sessions: sessions,
		maxBody:  maxBody,
		log:      logging.Component("messages"),
	}
}

// SendMessage handles POST /api/sessions/{sid}/messages
// Accepts multipart/form-data with a "text" field and any number of "files"
// parts, or a JSON body {"text": ...}. A blank message with no files is a
// no-op answered with 204. If any file fails to ingest, nothing is sent and
// the draft keeps the text and files.
func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	text, files, err := parseSend(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.ErrorResponse{Error: "request too large"})
			return
		}
		badRequest(w, "invalid request body")
		return
	}

	msg, err := sess.Send(r.Context(), text, files)
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.log.Debug().
		Str("session_id", sess.ID()).
		Str("conversation_id", msg.ConversationID).
		Str("message_id", msg.ID).
		Int("attachments", len(msg.Attachments)).
		Msg("message sent")
	writeJSON(w, http.StatusCreated, msg)
}

// RetrySend handles POST /api/sessions/{sid}/messages/retry
// Sends the current draft and staged files as they are.
func (h *MessageHandler) RetrySend(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}

	msg, err := sess.SendStaged(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if msg == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// Unstage handles DELETE /api/sessions/{sid}/staged/{index}
func (h *MessageHandler) Unstage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		badRequest(w, "index must be a number")
		return
	}
	if err := sess.Unstage(index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Incoming handles POST /api/sessions/{sid}/conversations/{cid}/incoming
// Simulates a message from the conversation's peer.
func (h *MessageHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, err)
		return
	}

	var req models.IncomingMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	msg, err := sess.Receive(chi.URLParam(r, "cid"), req.Text, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func parseSend(r *http.Request) (string, []attachments.File, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req models.DraftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, err
		}
		return req.Text, nil, nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", nil, err
	}
	text := r.FormValue("text")
	var files []attachments.File
	for _, fh := range r.MultipartForm.File["files"] {
		f, err := readPart(fh)
		if err != nil {
			return "", nil, err
		}
		files = append(files, f)
	}
	return text, files, nil
}

// readPart copies an uploaded part into memory. Parts that spilled to temp
// files are removed when the request ends, but a file that fails to ingest
// stays staged after that.
func readPart(fh *multipart.FileHeader) (attachments.File, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return attachments.NewFile(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}
