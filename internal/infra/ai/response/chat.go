package response

import (
	"errors"
	"strings"

	"github.com/bryanwahyu/ingredient-copilot/internal/domain/conversation"
	"github.com/bryanwahyu/ingredient-copilot/internal/domain/failure"
)

// ErrEmptyReply means the chat reply had no usable text.
var ErrEmptyReply = errors.New("chat reply is empty")

// fallbackChatMessage is sent when the model produced nothing usable.
const fallbackChatMessage = "I'm sorry, I couldn't put together an answer just now. Could you rephrase your question?"

// ChatReply is the assistant turn extracted from an AI reply.
type ChatReply struct {
	Message   string                 `json:"message"`
	Reasoning conversation.Reasoning `json:"reasoning"`
}

// DefaultReasoning accompanies replies that carry no reasoning of their own.
func DefaultReasoning() conversation.Reasoning {
	return conversation.Reasoning{
		Visible:    true,
		Steps:      []string{"Analyzed context", "Formulated response", "Provided actionable insight"},
		Confidence: 0.85,
	}
}

// ParseChat accepts either a JSON object with a message field or plain prose.
// It never fails to return a reply; the error reports an empty model answer.
func (p *Parser) ParseChat(text string) (ChatReply, error) {
	var structured struct {
		Message   string                  `json:"message"`
		Reasoning *conversation.Reasoning `json:"reasoning"`
	}
	if err := p.Decode(text, &structured); err == nil && strings.TrimSpace(structured.Message) != "" {
		reply := ChatReply{Message: strings.TrimSpace(structured.Message), Reasoning: DefaultReasoning()}
		if structured.Reasoning != nil && len(structured.Reasoning.Steps) > 0 {
			reply.Reasoning = *structured.Reasoning
			reply.Reasoning.Confidence = min(max(reply.Reasoning.Confidence, 0), 1)
		}
		return reply, nil
	}

	msg := StripFences(text)
	if msg == "" {
		return ChatReply{Message: fallbackChatMessage, Reasoning: DefaultReasoning()},
			failure.New(failure.KindParse, "chat reply", ErrEmptyReply)
	}
	return ChatReply{Message: msg, Reasoning: DefaultReasoning()}, nil
}
