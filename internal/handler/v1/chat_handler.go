package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/healthflow/healthflow-api/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
}

func NewChatHandler(svc *service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/messages", h.SendMessage)
}

type sendMessageRequest struct {
	ReceiverID uuid.UUID `json:"receiverId" binding:"required"`
	Content    string    `json:"content" binding:"required"`
}

// SendMessage pushes a chat message to the receiver's live connections. The
// sender gets the message back in the response, so it is never double-pushed
// to the sending device's active view.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "authentication required")
		return
	}

	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), claims.UserID, req.ReceiverID, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, msg)
}
