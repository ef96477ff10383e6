package obs

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

// ServeMetrics exposes reg on /metrics at addr in the background. Shut the
// returned server down to stop it.
func ServeMetrics(addr string, reg *prometheus.Registry) (*http.Server, net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listen metrics")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logs.Errorf("metrics server: %+v", err)
		}
	}()
	return srv, ln.Addr(), nil
}
