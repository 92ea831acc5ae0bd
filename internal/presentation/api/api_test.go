package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/configs"
	"github.com/hilthontt/zeroroom/internal/infrastructure/expiry"
	"github.com/hilthontt/zeroroom/internal/infrastructure/logging"
	"github.com/hilthontt/zeroroom/internal/infrastructure/metrics"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/zeroroom/internal/infrastructure/repository"
	"github.com/hilthontt/zeroroom/internal/infrastructure/ws"
	"github.com/hilthontt/zeroroom/internal/presentation/handler/health"
	"github.com/hilthontt/zeroroom/internal/presentation/handler/rooms"
	"github.com/hilthontt/zeroroom/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	registry *repository.RoomRegistry
}

type fakeAudit struct {
	logs []domain.RoomAuditLog
}

func (f *fakeAudit) Log(context.Context, *domain.RoomAuditLog) error { return nil }
func (f *fakeAudit) EnsureIndexes(context.Context) error             { return nil }

func (f *fakeAudit) GetByRoomID(_ context.Context, roomID string, limit int) ([]domain.RoomAuditLog, error) {
	var out []domain.RoomAuditLog
	for _, l := range f.logs {
		if l.RoomID == roomID && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T, maxMembers, httpBurst int, audit domain.RoomAuditRepository) *testServer {
	t.Helper()

	logger := logging.NewNop()
	roomMetrics := metrics.New()
	hub := ws.NewHub(logger, ws.WithDropHook(roomMetrics.DeliveryDropped))

	policy, err := expiry.NewPolicy(time.Hour, nil, nil)
	require.NoError(t, err)

	registry := repository.NewRoomRegistry(
		repository.WithMaxMembers(maxMembers),
		repository.WithObserver(hub, roomMetrics),
	)

	limiter := ratelimiter.New(ratelimiter.Options{MaxRatePerSecond: 1, MaxBurst: httpBurst})
	t.Cleanup(func() { _ = limiter.Close() })

	cfg := configs.Config{
		HTTP: configs.HTTPConfig{
			AllowedOrigins: []string{"*"},
			AllowedHeaders: []string{"Content-Type"},
		},
	}

	roomHandler := rooms.NewHandler(
		session.Config{
			Registry:    registry,
			Policy:      policy,
			MaxMembers:  maxMembers,
			Connections: roomMetrics,
		},
		hub,
		ws.NewUpgrader(1024, 1024, cfg.HTTP.AllowedOrigins),
		ws.DefaultClientConfig(),
		domain.DefaultMaxMessageLength,
		audit,
		logger,
	)

	app := NewApplication(cfg, roomHandler, health.NewHandler(registry, hub), logger, limiter, roomMetrics)
	srv := httptest.NewServer(app.Mount())
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, registry: registry}
}

func (s *testServer) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(s.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

// next reads until a frame of the wanted type arrives.
func next(t *testing.T, conn *websocket.Conn, eventType string) ws.InboundMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg ws.InboundMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == eventType {
			return msg
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, eventType, roomID string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.InboundMessage{Type: eventType, RoomID: roomID, Data: raw}))
}

func join(t *testing.T, conn *websocket.Conn, roomID, username string) ws.RoomUsersPayload {
	t.Helper()

	send(t, conn, ws.JoinRoom, roomID, map[string]any{"roomId": roomID, "username": username})
	var users ws.RoomUsersPayload
	require.NoError(t, json.Unmarshal(next(t, conn, ws.RoomUsers).Data, &users))
	return users
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if v != nil {
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, v))
	}
	return resp.StatusCode
}

func TestChatOverWebsocket(t *testing.T) {
	srv := newTestServer(t, 10, 100, nil)

	alice := srv.dial(t, "/api/rooms/ws")
	var connected ws.ConnectedPayload
	require.NoError(t, json.Unmarshal(next(t, alice, ws.Connected).Data, &connected))
	assert.NotEmpty(t, connected.ConnectionID)
	assert.Equal(t, 10, connected.MaxMembers)
	assert.Equal(t, []int64{1, 2, 3}, connected.DurationOptions)

	users := join(t, alice, "lobby", "Alice")
	require.Len(t, users.Members, 1)
	assert.True(t, users.Members[0].IsAdmin)

	bob := srv.dial(t, "/socket")
	next(t, bob, ws.Connected)
	users = join(t, bob, "lobby", "Bob")
	require.Len(t, users.Members, 2)
	assert.Equal(t, "Bob", users.Members[1].Username)

	var seen ws.RoomUsersPayload
	require.NoError(t, json.Unmarshal(next(t, alice, ws.RoomUsers).Data, &seen))
	assert.Len(t, seen.Members, 2)

	send(t, alice, ws.SendMessage, "lobby", map[string]any{"roomId": "lobby", "message": "hello"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		var msg ws.MessagePayload
		require.NoError(t, json.Unmarshal(next(t, conn, ws.ReceiveMessage).Data, &msg))
		assert.Equal(t, "hello", msg.Message)
		assert.Equal(t, "Alice", msg.Username)
		assert.Equal(t, connected.ConnectionID, msg.SenderID)
	}

	require.NoError(t, bob.Close())
	require.NoError(t, json.Unmarshal(next(t, alice, ws.RoomUsers).Data, &seen))
	require.Len(t, seen.Members, 1)
	assert.Equal(t, "Alice", seen.Members[0].Username)

	require.NoError(t, alice.Close())
	require.Eventually(t, func() bool {
		_, err := srv.registry.Get(context.Background(), "lobby")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "the room goes away with its last member")
}

func TestLateJoinerGetsNoHistory(t *testing.T) {
	srv := newTestServer(t, 10, 100, nil)

	alice := srv.dial(t, "/api/rooms/ws")
	next(t, alice, ws.Connected)
	join(t, alice, "r1", "Alice")
	send(t, alice, ws.SendMessage, "r1", map[string]any{"roomId": "r1", "message": "hello"})
	next(t, alice, ws.ReceiveMessage)

	bob := srv.dial(t, "/api/rooms/ws")
	send(t, bob, ws.JoinRoom, "r1", map[string]any{"roomId": "r1", "username": "Bob"})

	var users ws.RoomUsersPayload
	require.NoError(t, json.Unmarshal(next(t, alice, ws.RoomUsers).Data, &users))
	require.Len(t, users.Members, 2)
	assert.Equal(t, "Bob", users.Members[1].Username)

	var types []string
	require.NoError(t, bob.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	for {
		var msg ws.InboundMessage
		if err := bob.ReadJSON(&msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == ws.RoomUsers {
			require.NoError(t, json.Unmarshal(msg.Data, &users))
			assert.Len(t, users.Members, 2)
		}
	}
	assert.Equal(t, []string{ws.Connected, ws.RoomUsers}, types)
}

func TestRoomFullOverWebsocket(t *testing.T) {
	srv := newTestServer(t, 1, 100, nil)

	first := srv.dial(t, "/api/rooms/ws")
	join(t, first, "tiny", "Alice")

	second := srv.dial(t, "/api/rooms/ws")
	send(t, second, ws.JoinRoom, "tiny", map[string]any{"roomId": "tiny", "username": "Bob"})

	var payload ws.ErrorPayload
	require.NoError(t, json.Unmarshal(next(t, second, ws.RoomFull).Data, &payload))
	assert.NotEmpty(t, payload.Message)

	room, err := srv.registry.Get(context.Background(), "tiny")
	require.NoError(t, err)
	assert.Len(t, room.Members, 1)
}

func TestGetRoom(t *testing.T) {
	srv := newTestServer(t, 10, 100, nil)

	var missing map[string]any
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/rooms/nope", &missing))

	_, err := srv.registry.Join(context.Background(), domain.JoinRequest{RoomID: "r1", DisplayName: "Alice", ConnectionID: "c1"})
	require.NoError(t, err)

	var room struct {
		ID         string `json:"id"`
		Expired    bool   `json:"expired"`
		MaxMembers int    `json:"maxMembers"`
		Members    []struct {
			ID       string `json:"id"`
			Username string `json:"username"`
			IsAdmin  bool   `json:"isAdmin"`
		} `json:"members"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rooms/r1", &room))
	assert.Equal(t, "r1", room.ID)
	assert.False(t, room.Expired)
	assert.Equal(t, 10, room.MaxMembers)
	require.Len(t, room.Members, 1)
	assert.Equal(t, "Alice", room.Members[0].Username)
	assert.True(t, room.Members[0].IsAdmin)
}

func TestGetConfig(t *testing.T) {
	srv := newTestServer(t, 7, 100, nil)

	var cfg struct {
		MaxMembers       int     `json:"maxMembers"`
		DurationOptions  []int64 `json:"durationOptions"`
		DefaultDuration  int64   `json:"defaultDuration"`
		MaxMessageLength int     `json:"maxMessageLength"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/config", &cfg))
	assert.Equal(t, 7, cfg.MaxMembers)
	assert.Equal(t, []int64{1, 2, 3}, cfg.DurationOptions)
	assert.Equal(t, int64(1), cfg.DefaultDuration)
	assert.Equal(t, domain.DefaultMaxMessageLength, cfg.MaxMessageLength)
}

func TestGetAudit(t *testing.T) {
	now := time.Now()
	audit := &fakeAudit{logs: []domain.RoomAuditLog{
		*domain.NewMemberJoinedLog("r1", now, 1),
		*domain.NewRoomCreatedLog("r1", now, time.Hour, 10),
		*domain.NewRoomCreatedLog("r2", now, time.Hour, 10),
	}}
	srv := newTestServer(t, 10, 100, audit)

	var logs []map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rooms/r1/audit", &logs))
	require.Len(t, logs, 2)
	assert.Equal(t, "member_joined", logs[0]["eventType"])

	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/rooms/r1/audit?limit=1", &logs))
	assert.Len(t, logs, 1)

	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/rooms/r1/audit?limit=zero", nil))

	disabled := newTestServer(t, 10, 100, nil)
	assert.Equal(t, http.StatusServiceUnavailable, getJSON(t, disabled.URL+"/api/rooms/r1/audit", nil))
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, 10, 100, nil)

	_, err := srv.registry.Join(context.Background(), domain.JoinRequest{RoomID: "r1", DisplayName: "Alice", ConnectionID: "c1"})
	require.NoError(t, err)

	var status map[string]any
	for _, path := range []string{"/api/health", "/api/healthz", "/api/ready", "/api/live"} {
		require.Equal(t, http.StatusOK, getJSON(t, srv.URL+path, &status), path)
		assert.Equal(t, "ok", status["status"])
		assert.EqualValues(t, 1, status["rooms"])
		assert.EqualValues(t, 1, status["members"])
	}

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "zeroroom_rooms_active 1")
	assert.Contains(t, string(body), "zeroroom_http_requests_total")
}

func TestRateLimitedRequests(t *testing.T) {
	srv := newTestServer(t, 10, 2, nil)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, getJSON(t, srv.URL+"/api/config", nil))
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCorsPreflight(t *testing.T) {
	srv := newTestServer(t, 10, 100, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/config", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://chat.example")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://chat.example", resp.Header.Get("Access-Control-Allow-Origin"))
}
