// internal/metrics/http.go
package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterHandlers 挂载指标的两个只读端点：
// GET /metrics 返回 JSON 快照，GET /metrics/prom 返回 Prometheus 文本格式。
func RegisterHandlers(mux *http.ServeMux, rec *Recorder) {
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rec.Snapshot())
	})
	mux.Handle("/metrics/prom", promhttp.HandlerFor(rec.Registry(), promhttp.HandlerOpts{}))
}
