// Package observability holds the Prometheus metrics of a run and the
// server exposing them.
package observability

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

//nolint:gochecknoglobals // Singleton pattern for metrics server
var (
	metricsServerInstance *http.Server
	once                  sync.Once
)

// StartMetricsServer serves /metrics on addr if it hasn't been started already.
func StartMetricsServer(addr string, log logrus.FieldLogger) {
	once.Do(func() {
		sm := http.NewServeMux()
		sm.Handle("/metrics", promhttp.Handler())

		metricsServerInstance = &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 15 * time.Second,
			Handler:           sm,
		}

		go func() {
			log.Infof("Starting metrics server on %s", addr)

			if err := metricsServerInstance.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server stopped")
			}
		}()
	})
}

// StopMetricsServer closes the server started by StartMetricsServer.
func StopMetricsServer() error {
	if metricsServerInstance == nil {
		return nil
	}
	return metricsServerInstance.Close()
}
