package handlers

import (
	"github.com/go-chi/chi/v5"
)

// Routes mounts the session API under r.
func Routes(r chi.Router, sessions *SessionHandler, messages *MessageHandler) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", sessions.CreateSession)
		r.Route("/{sid}", func(r chi.Router) {
			r.Delete("/", sessions.CloseSession)
			r.Get("/conversations", sessions.ListConversations)
			r.Post("/conversations/{cid}/select", sessions.SelectConversation)
			r.Post("/conversations/{cid}/incoming", messages.Incoming)
			r.Get("/thread", sessions.GetThread)
			r.Post("/draft", sessions.UpdateDraft)
			r.Post("/messages", messages.SendMessage)
			r.Post("/messages/retry", messages.RetrySend)
			r.Delete("/staged/{index}", messages.Unstage)
			r.Post("/reply", sessions.BeginReply)
			r.Delete("/reply", sessions.CancelReply)
			r.Post("/jump", sessions.Jump)
			r.Post("/jump/back", sessions.JumpBack)
		})
	})
}
