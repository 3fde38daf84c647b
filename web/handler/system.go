package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/dreamplay/rewards/pkg/clock"
	"github.com/dreamplay/rewards/pkg/httpkit"
	"github.com/dreamplay/rewards/pkg/metrics"
	"github.com/dreamplay/rewards/web/api"
)

// Operational routes
const (
	NonceRoute   = http.MethodGet + " " + "/api/nonce"
	HealthRoute  = http.MethodGet + " " + "/healthz"
	MetricsRoute = http.MethodGet + " " + "/metrics"
)

// System serves nonces, health and metrics.
type System struct {
	backend string
	clock   clock.Clock
}

func NewSystem(backend string, clk clock.Clock) *System {
	return &System{backend: backend, clock: clk}
}

func (h *System) AddRoutes(m *http.ServeMux) {
	m.Handle(NonceRoute, httpkit.HandlerFunc(h.Nonce))
	m.Handle(HealthRoute, httpkit.HandlerFunc(h.Health))
	m.Handle(MetricsRoute, metrics.Handler())
}

// Nonce returns a random value for client-side signing flows together with the server time.
func (h *System) Nonce(_ http.ResponseWriter, _ *http.Request) http.HandlerFunc {
	return httpkit.JSON(api.NonceResponse{
		OK:    true,
		Nonce: uuid.NewString(),
		Ts:    h.clock.Now().UnixMilli(),
	})
}

func (h *System) Health(_ http.ResponseWriter, _ *http.Request) http.HandlerFunc {
	return httpkit.JSON(api.HealthResponse{OK: true, Store: h.backend})
}
