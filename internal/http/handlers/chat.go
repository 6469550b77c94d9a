package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/elsastre/luisa/internal/conversation"
	"github.com/elsastre/luisa/pkg/logging"
)

// ChatHandler runs the engine synchronously for local testing and the ops
// console. It goes through the same queue as the webhook, minus the
// gateway send.
type ChatHandler struct {
	dispatcher conversation.Dispatcher
	logger     *logging.Logger
}

func NewChatHandler(dispatcher conversation.Dispatcher, logger *logging.Logger) *ChatHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{dispatcher: dispatcher, logger: logger}
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// Handle processes one chat turn and returns the reply with the resulting
// stage and intent.
func (h *ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	req.ConversationID = strings.TrimSpace(req.ConversationID)
	req.Message = strings.TrimSpace(req.Message)
	if req.ConversationID == "" || req.Message == "" {
		http.Error(w, "conversation_id and message are required", http.StatusBadRequest)
		return
	}

	result, err := h.dispatcher.ProcessSync(r.Context(), conversation.InboundMessage{
		ConversationID: req.ConversationID,
		Body:           req.Message,
		Channel:        conversation.ChannelChat,
	})
	if err != nil {
		h.logger.Error("chat processing failed", "error", err, "conversation_id", req.ConversationID)
		http.Error(w, "processing failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
