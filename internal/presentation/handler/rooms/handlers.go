package rooms

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/json"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"github.com/hilthontt/zeroroom/internal/session"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type Handler struct {
	session          session.Config
	hub              *ws.Hub
	upgrader         *websocket.Upgrader
	clientConfig     ws.ClientConfig
	maxMessageLength int
	audit            domain.RoomAuditRepository
	logger           logging.Logger
}

// NewHandler builds the room endpoints. sessionConfig is the template every
// websocket connection's channel is created from; audit may be nil.
func NewHandler(
	sessionConfig session.Config,
	hub *ws.Hub,
	upgrader *websocket.Upgrader,
	clientConfig ws.ClientConfig,
	maxMessageLength int,
	audit domain.RoomAuditRepository,
	logger logging.Logger,
) *Handler {
	if sessionConfig.Sender == nil {
		sessionConfig.Sender = hub
	}
	if sessionConfig.Logger == nil {
		sessionConfig.Logger = logger
	}

	return &Handler{
		session:          sessionConfig,
		hub:              hub,
		upgrader:         upgrader,
		clientConfig:     clientConfig,
		maxMessageLength: maxMessageLength,
		audit:            audit,
		logger:           logger,
	}
}

// ServeWS godoc
// @Summary      Open a chat connection
// @Description  Upgrades to a websocket. The server sends `connected` first; the client then sends `join_room` with a room id and display name, and `send_message` once joined. Rooms are created by the first join and deleted when the last member leaves.
// @Tags         rooms
// @Success      101 {object} map[string]interface{} "Switching Protocols - WebSocket connection established"
// @Failure      400 {object} map[string]interface{} "Bad request - not a websocket handshake"
// @Failure      403 {object} map[string]interface{} "Origin not allowed"
// @Router       /rooms/ws [get]
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.logger.Warn(logging.Websocket, logging.Upgrade, "websocket upgrade failed", map[logging.ExtraKey]any{
			logging.ClientIp:     r.RemoteAddr,
			logging.ErrorMessage: err.Error(),
		})
		return
	}

	connectionID := uuid.NewString()
	client := ws.NewClient(conn, connectionID, h.clientConfig, h.logger)
	channel := session.New(connectionID, h.session)

	h.logger.Info(logging.Websocket, logging.Upgrade, "connection opened", map[logging.ExtraKey]any{
		logging.ConnectionID: connectionID,
		logging.ClientIp:     r.RemoteAddr,
	})

	start := time.Now()
	client.Serve(r.Context(), h.hub, channel)

	h.logger.Info(logging.Websocket, logging.Shutdown, "connection closed", map[logging.ExtraKey]any{
		logging.ConnectionID: connectionID,
		logging.Latency:      time.Since(start).String(),
	})
}

// GetRoomHandler godoc
// @Summary      Get room details
// @Description  Returns the current members and deadline of a live room
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Success      200 {object} roomResponse "Room details"
// @Failure      400 {object} map[string]interface{} "Bad request - missing room ID"
// @Failure      404 {object} map[string]interface{} "Room not found"
// @Router       /rooms/{roomId} [get]
func (h *Handler) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	room, err := h.session.Registry.Get(r.Context(), roomID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRoomNotFound):
			json.WriteError(w, http.StatusNotFound, err, "Room not found")
		case errors.Is(err, domain.ErrInvalidInput):
			json.WriteValidationError(w, err)
		default:
			h.logger.Error(logging.Room, logging.Join, "failed to load room", map[logging.ExtraKey]any{
				logging.RoomID:       roomID,
				logging.ErrorMessage: err.Error(),
			})
			json.WriteInternalError(w, err)
		}
		return
	}

	members := make([]memberResponse, len(room.Members))
	for i, m := range room.Members {
		members[i] = memberResponse{
			ID:       m.ConnectionID,
			Username: m.DisplayName,
			IsAdmin:  i == 0,
			JoinedAt: m.JoinedAt.UTC(),
		}
	}

	json.Write(w, http.StatusOK, roomResponse{
		ID:         room.ID,
		Members:    members,
		CreatedAt:  room.CreatedAt.UTC(),
		ExpiresAt:  room.ExpiresAt.UTC(),
		Expired:    h.session.Policy.Expired(room),
		MaxMembers: room.MaxMembers,
	})
}

// GetConfigHandler godoc
// @Summary      Get room limits
// @Description  Returns the capacity, offered lifetimes and message limit clients should present
// @Tags         rooms
// @Produce      json
// @Success      200 {object} configResponse
// @Router       /config [get]
func (h *Handler) GetConfigHandler(w http.ResponseWriter, r *http.Request) {
	options := h.session.Policy.Options()
	hours := make([]int64, len(options))
	for i, d := range options {
		hours[i] = int64(d / time.Hour)
	}

	json.Write(w, http.StatusOK, configResponse{
		MaxMembers:       h.session.MaxMembers,
		DurationOptions:  hours,
		DefaultDuration:  int64(h.session.Policy.DefaultTTL() / time.Hour),
		MaxMessageLength: h.maxMessageLength,
	})
}

// GetAuditHandler godoc
// @Summary      Get a room's lifecycle log
// @Description  Returns recorded lifecycle events (creation, joins, leaves, expiry) for a room id, newest first. Message text is never recorded.
// @Tags         rooms
// @Produce      json
// @Param        roomId path string true "Room ID"
// @Param        limit query int false "Maximum number of entries" default(50)
// @Success      200 {array} auditLogResponse
// @Failure      400 {object} map[string]interface{} "Bad request"
// @Failure      503 {object} map[string]interface{} "Audit log not configured"
// @Router       /rooms/{roomId}/audit [get]
func (h *Handler) GetAuditHandler(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		json.WriteError(w, http.StatusServiceUnavailable, errors.New("audit disabled"), "Audit log is not configured")
		return
	}

	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		json.WriteValidationError(w, errors.New("room ID is missing"))
		return
	}

	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			json.WriteBadRequestError(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxAuditLimit)
	}

	logs, err := h.audit.GetByRoomID(r.Context(), roomID, limit)
	if err != nil {
		h.logger.Error(logging.MongoDB, logging.ExternalService, "failed to read audit log", map[logging.ExtraKey]any{
			logging.RoomID:       roomID,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteInternalError(w, err)
		return
	}

	resp := make([]auditLogResponse, len(logs))
	for i, l := range logs {
		resp[i] = auditLogResponse{
			ID:        l.ID,
			EventType: string(l.EventType),
			Timestamp: l.Timestamp.UTC(),
			Metadata:  l.Metadata,
		}
	}

	json.Write(w, http.StatusOK, resp)
}
