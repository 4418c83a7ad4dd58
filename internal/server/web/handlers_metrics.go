package web

import (
	"net/http"

	"github.com/avolkov/cryptbucket/internal/service"
)

func (s *Server) handleMetricsGetSummary(w http.ResponseWriter, _ *http.Request, _ *service.Authentication) {
	summary, err := s.svc.Metrics.GetSummary()
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeOK(w, map[string]any{
		"disk": map[string]any{
			"usedBytes":  summary.DiskUsedBytes,
			"totalBytes": summary.DiskTotalBytes,
		},
	})
}
