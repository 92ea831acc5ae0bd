package health

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/hilthontt/zeroroom/internal/infrastructure/json"
)

type StatsProvider interface {
	Stats() domain.RegistryStats
}

type ConnectionCounter interface {
	Count() int
}

type Handler struct {
	stats       StatsProvider
	connections ConnectionCounter
	startTime   time.Time
	healthy     atomic.Bool
}

func NewHandler(stats StatsProvider, connections ConnectionCounter) *Handler {
	h := &Handler{
		stats:       stats,
		connections: connections,
		startTime:   time.Now(),
	}
	h.healthy.Store(true)
	return h
}

// SetHealthy flips the probe result, e.g. while the server drains.
func (h *Handler) SetHealthy(ok bool) {
	h.healthy.Store(ok)
}

// GetHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API, including uptime, live room counts and current timestamp
// @Tags         health
// @Produce      json
// @Success      200 {object} healthResponse "Service is healthy"
// @Failure      503 {object} healthResponse "Service is unhealthy"
// @Router       /health [get]
// @Router       /healthz [get]
// @Router       /ready [get]
// @Router       /live [get]
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.stats != nil {
		stats := h.stats.Stats()
		resp.Rooms = stats.Rooms
		resp.Members = stats.Members
	}
	if h.connections != nil {
		resp.Connections = h.connections.Count()
	}

	if !h.healthy.Load() {
		resp.Status = "unhealthy"
		json.Write(w, http.StatusServiceUnavailable, resp)
		return
	}

	json.Write(w, http.StatusOK, resp)
}
