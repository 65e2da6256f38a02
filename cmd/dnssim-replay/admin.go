package main

import (
	"encoding/json"
	"net/http"

	dnssim "github.com/cznic-dnsjit/dnssim-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// adminServer exposes Prometheus metrics and a JSON stats snapshot over
// HTTP, grounded on the teacher's adminlistener.go — a single-purpose
// *http.Server wrapping a handful of read-only endpoints, swapped from
// expvar to Prometheus plus this package's own JSON stats shape.
type adminServer struct {
	srv *http.Server
}

func newAdminServer(addr string, engine *dnssim.Engine) *adminServer {
	reg := prometheus.NewRegistry()
	reg.MustRegister(dnssim.NewCollector(engine))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		snap := struct {
			Current dnssim.Stats `json:"current"`
			Sum     dnssim.Stats `json:"sum"`
		}{
			Current: engine.StatsCurrent(),
			Sum:     engine.StatsSum(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})

	return &adminServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

func (a *adminServer) start() {
	go func() {
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			dnssim.Log.WithError(err).Error("dnssim-replay: admin server stopped")
		}
	}()
}

func (a *adminServer) stop() {
	_ = a.srv.Close()
}
