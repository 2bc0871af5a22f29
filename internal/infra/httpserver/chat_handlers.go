package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/analysis"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/middleware"
)

type startConversationRequest struct {
	AnalysisID string `json:"analysisId" validate:"required"`
}

// POST /v1/conversations
func (r *Router) handleStartConversation(w http.ResponseWriter, req *http.Request) error {
	var body startConversationRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	conv, err := r.chatSvc.Start(req.Context(), user(req), analysis.AnalysisID(body.AnalysisID))
	if err != nil {
		return err
	}
	return ok(w, http.StatusCreated, conv)
}

// GET /v1/conversations?page=&limit=
func (r *Router) handleListConversations(w http.ResponseWriter, req *http.Request) error {
	page, limit := pageParams(req)
	list, err := r.chatSvc.List(req.Context(), user(req), page, limit)
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, list)
}

// GET /v1/conversations/{id}
func (r *Router) handleGetConversation(w http.ResponseWriter, req *http.Request) error {
	conv, err := r.chatSvc.Get(req.Context(), user(req), conversation.ConversationID(chi.URLParam(req, "id")))
	if err != nil {
		return err
	}
	return ok(w, http.StatusOK, conv)
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type sendMessageResponse struct {
	ConversationID conversation.ConversationID `json:"conversationId"`
	Message        string                      `json:"message"`
	Reasoning      conversation.Reasoning      `json:"reasoning"`
	Context        conversation.Context        `json:"context"`
	Timestamp      time.Time                   `json:"timestamp"`
}

// POST /v1/conversations/{id}/messages
// Body: {"message": "..."}; empty and oversized messages are rejected by the chat service.
func (r *Router) handleSendMessage(w http.ResponseWriter, req *http.Request) error {
	var body sendMessageRequest
	if err := decode(w, req, &body); err != nil {
		return err
	}
	id := conversation.ConversationID(chi.URLParam(req, "id"))
	turn, err := r.chatSvc.SendMessage(req.Context(), user(req), id, middleware.SanitizeString(body.Message))
	if err != nil {
		return err
	}
	reply := turn.Reply()
	return ok(w, http.StatusOK, sendMessageResponse{
		ConversationID: id,
		Message:        reply.Message,
		Reasoning:      reply.Reasoning,
		Context:        turn.Context,
		Timestamp:      turn.Assistant.Timestamp,
	})
}
