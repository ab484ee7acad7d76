package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"harmony/internal/app"
	svcErr "harmony/internal/errors"
	"harmony/internal/metrics"
	"harmony/internal/middleware"
	"harmony/internal/relay"
	"harmony/internal/service/chat"
)

// ChatHandler serves conversation history, message sends and the websocket
// endpoint for live delivery.
type ChatHandler struct {
	appCtx *app.AppContext
	chat   *chat.Service
}

// NewChatHandler creates a chat handler.
func NewChatHandler(appCtx *app.AppContext, chatSvc *chat.Service) *ChatHandler {
	return &ChatHandler{appCtx: appCtx, chat: chatSvc}
}

// ListMessages handles GET /api/matches/:matchID/messages.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	matchID := pathID(c, "matchID")
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, next, err := h.chat.ListMessages(
		c.Request.Context(),
		matchID,
		middleware.CurrentUserID(c),
		c.Query("page_token"),
		limit,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp := gin.H{"messages": messages}
	if next != "" {
		resp["next_page_token"] = next
	}
	c.JSON(http.StatusOK, resp)
}

// SendMessage handles POST /api/matches/:matchID/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var in struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, svcErr.Validation("invalid request body"))
		return
	}

	view, err := h.chat.SendMessage(c.Request.Context(), pathID(c, "matchID"), middleware.CurrentUserID(c), in.Content)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// inboundFrame is what clients send over the socket.
type inboundFrame struct {
	Content string `json:"content"`
}

// Socket handles GET /ws/chat/:matchID.
//
// Membership is checked before the upgrade so unauthorized callers get a
// plain HTTP error. After the upgrade the connection joins the match room;
// inbound text frames are sends, and every persisted message in the room is
// fanned out by the hub (including the sender's own).
func (h *ChatHandler) Socket(c *gin.Context) {
	matchID := pathID(c, "matchID")
	userID := middleware.CurrentUserID(c)

	ctx := c.Request.Context()
	if err := h.chat.EnsureMember(ctx, matchID, userID); err != nil {
		abortWithError(c, err)
		return
	}

	conn, _, _, err := ws.UpgradeHTTP(c.Request, c.Writer)
	if err != nil {
		h.appCtx.Logger.Error("ws upgrade failed", "match_id", matchID, "user", userID, "err", err)
		return
	}

	sub := h.appCtx.Hub.Join(matchID, userID, conn)
	metrics.WSConnections.Inc()
	defer func() {
		h.appCtx.Hub.Leave(matchID, sub)
		metrics.WSConnections.Dec()
	}()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.writeSocketError(sub, "invalid message format")
			continue
		}

		if _, err := h.chat.SendMessage(ctx, matchID, userID, frame.Content); err != nil {
			h.writeSocketError(sub, err.Error())
		}
	}
}

func (h *ChatHandler) writeSocketError(sub *relay.Subscriber, message string) {
	data, err := json.Marshal(gin.H{"error": message})
	if err != nil {
		return
	}
	if err := sub.WriteMessage(data); err != nil {
		h.appCtx.Logger.Debug("socket error write failed", "err", err)
	}
}
