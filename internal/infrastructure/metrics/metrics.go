package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hilthontt/zeroroom/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zeroroom"

// RoomMetrics observes the registry and the hub. Gauges are maintained from
// callbacks so a scrape never takes a registry lock.
type RoomMetrics struct {
	registry *prometheus.Registry

	mu     sync.Mutex
	counts map[string]int // roomID -> member count

	roomsActive       prometheus.Gauge
	membersActive     prometheus.Gauge
	connectionsActive prometheus.Gauge
	roomsCreated      prometheus.Counter
	roomsExpired      prometheus.Counter
	messages          prometheus.Counter
	joinsRejected     *prometheus.CounterVec
	deliveriesDropped prometheus.Counter
	requests          *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
}

func New() *RoomMetrics {
	m := &RoomMetrics{
		registry: prometheus.NewRegistry(),
		counts:   make(map[string]int),
		roomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_active",
			Help:      "Rooms currently held by the registry.",
		}),
		membersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "members_active",
			Help:      "Members across all rooms.",
		}),
		connectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Open websocket connections.",
		}),
		roomsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_created_total",
			Help:      "Rooms created by a first join.",
		}),
		roomsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rooms_expired_total",
			Help:      "Rooms whose deadline passed while they still had members.",
		}),
		messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Messages fanned out to rooms.",
		}),
		joinsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "joins_rejected_total",
			Help:      "Joins refused by the registry, by reason.",
		}, []string{"reason"}),
		deliveriesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_dropped_total",
			Help:      "Outbound events dropped on a full client queue.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status.",
		}, []string{"method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.roomsActive,
		m.membersActive,
		m.connectionsActive,
		m.roomsCreated,
		m.roomsExpired,
		m.messages,
		m.joinsRejected,
		m.deliveriesDropped,
		m.requests,
		m.requestDuration,
	)

	return m
}

// Handler exposes Prometheus metrics at /metrics
func (m *RoomMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ domain.RoomObserver = (*RoomMetrics)(nil)

func (m *RoomMetrics) RoomCreated(domain.Room) {
	m.roomsActive.Inc()
	m.roomsCreated.Inc()
}

func (m *RoomMetrics) MembersChanged(room domain.Room) {
	m.mu.Lock()
	prev := m.counts[room.ID]
	m.counts[room.ID] = len(room.Members)
	m.mu.Unlock()

	m.membersActive.Add(float64(len(room.Members) - prev))
}

func (m *RoomMetrics) MessagePosted(domain.Room, domain.Message) {
	m.messages.Inc()
}

func (m *RoomMetrics) JoinRejected(_ domain.Room, reason error) {
	m.joinsRejected.WithLabelValues(rejectReason(reason)).Inc()
}

func (m *RoomMetrics) RoomDeleted(room domain.Room) {
	m.mu.Lock()
	prev := m.counts[room.ID]
	delete(m.counts, room.ID)
	m.mu.Unlock()

	m.membersActive.Sub(float64(prev))
	m.roomsActive.Dec()
}

func (m *RoomMetrics) RoomExpired(domain.Room) {
	m.roomsExpired.Inc()
}

func (m *RoomMetrics) ConnectionOpened() {
	m.connectionsActive.Inc()
}

func (m *RoomMetrics) ConnectionClosed() {
	m.connectionsActive.Dec()
}

func (m *RoomMetrics) DeliveryDropped(string) {
	m.deliveriesDropped.Inc()
}

func (m *RoomMetrics) ObserveRequest(method string, status int, took time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method).Observe(took.Seconds())
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrRoomFull):
		return "full"
	case errors.Is(err, domain.ErrRoomExpired):
		return "expired"
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return "already_in_room"
	default:
		return "other"
	}
}
