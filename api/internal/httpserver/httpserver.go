package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger проверяет зависимости для /healthz (например, *sql.DB).
type Pinger func(ctx context.Context) error

// NewMux — служебные эндпоинты: /healthz и /metrics.
func NewMux(healthzBody string, ping Pinger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				http.Error(w, "unhealthy: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte(healthzBody))
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func StartHTTP(addr string, mux *http.ServeMux) error {
	if mux == nil {
		mux = NewMux("ok", nil)
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("listening on %s", addr)
	return srv.ListenAndServe()
}
