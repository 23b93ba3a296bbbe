package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/miratalk/relay/internal/audit"
	"github.com/miratalk/relay/internal/auth"
	"github.com/miratalk/relay/internal/config"
	"github.com/miratalk/relay/internal/domain"
	"github.com/miratalk/relay/internal/hub"
	"github.com/miratalk/relay/internal/log"
	"github.com/miratalk/relay/internal/service"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSHandler struct {
	hub      *hub.Hub
	service  service.RelayService
	verifier auth.Verifier
	wsCfg    config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.RelayService, verifier auth.Verifier, wsCfg config.WebSocketConfig) *WSHandler {
	return &WSHandler{
		hub:      h,
		service:  svc,
		verifier: verifier,
		wsCfg:    wsCfg,
	}
}

// HandleWebSocket verifies the bearer credential, then upgrades. The
// identity is resolved exactly once, before any frame is read; a
// connection that fails verification is never registered.
func (h *WSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		audit.Log(r.Context(), audit.ActionAuthFailed, "", "credential rejected")
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), identity, h.hub, conn, h.wsCfg)
	h.hub.Register(client)
	audit.Log(r.Context(), audit.ActionConnect, identity.UserID, "connection authenticated")

	go client.WritePump()
	go client.ReadPump(h.handleFrame, func(c *hub.Client) {
		ctx := log.WithConn(context.Background(), c.ID, c.Identity.UserID)
		if err := h.service.HandleDisconnect(ctx, c); err != nil {
			l := log.L()
			l.Warn().Str(log.FieldConnID, c.ID).Err(err).Msg("disconnect cleanup failed")
		}
	})
}

// bearerToken extracts the credential from the Authorization header or,
// for browser clients that cannot set headers on websocket dials, the
// token query parameter.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func (h *WSHandler) handleFrame(client *hub.Client, message []byte) {
	var base domain.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid frame"))
		return
	}

	ctx := log.WithConn(context.Background(), client.ID, client.Identity.UserID)

	switch base.Type {
	case domain.FrameJoinRoom:
		var frame domain.JoinRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid join_room frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleJoinRoom(ctx, client, frame.RoomID))

	case domain.FrameLeaveRoom:
		var frame domain.LeaveRoomFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid leave_room frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleLeaveRoom(ctx, client, frame.RoomID))

	case domain.FrameSendMessage:
		var frame domain.SendFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" || frame.ClientID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid send_message frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleSend(ctx, client, &frame))

	case domain.FrameMarkDelivered:
		var frame domain.ReceiptFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" || frame.MessageID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid mark_delivered frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleReceipt(ctx, client, domain.ReceiptDelivered, frame.RoomID, frame.MessageID))

	case domain.FrameMarkRead:
		var frame domain.ReceiptFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" || frame.MessageID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid mark_read frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleReceipt(ctx, client, domain.ReceiptRead, frame.RoomID, frame.MessageID))

	case domain.FrameDeleteForAll:
		var frame domain.DeleteForAllFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" || frame.MessageID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid delete_for_all frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleDeleteForAll(ctx, client, frame.RoomID, frame.MessageID))

	case domain.FrameBlockUser:
		var frame domain.BlockUserFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" || frame.TargetUserID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid block_user frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleBlockUser(ctx, client, frame.RoomID, frame.TargetUserID))

	case domain.FrameTyping:
		var frame domain.TypingFrame
		if err := json.Unmarshal(message, &frame); err != nil || frame.RoomID == "" {
			client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "invalid typing frame"))
			return
		}
		h.logFrameErr(client, h.service.HandleTyping(ctx, client, &frame))

	case domain.FramePing:
		client.SendFrame(map[string]string{"type": domain.FramePong})

	default:
		client.SendFrame(domain.NewErrorFrame(domain.CodeBadRequest, "unknown frame type"))
	}
}

func (h *WSHandler) logFrameErr(client *hub.Client, err error) {
	if err != nil {
		l := log.L()
		l.Warn().Str(log.FieldConnID, client.ID).Err(err).Msg("frame handling failed")
	}
}

// HandleHealth reports liveness, independent of room state.
func (h *WSHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *WSHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/relay/ws", h.HandleWebSocket)
	mux.HandleFunc("/health", h.HandleHealth)
}
