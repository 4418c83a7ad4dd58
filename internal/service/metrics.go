package service

import (
	"github.com/avolkov/cryptbucket/internal/blobstore"
)

// MetricsSummary reports capacity of the blob storage volume.
type MetricsSummary struct {
	DiskUsedBytes  int64
	DiskTotalBytes int64
}

// MetricsService exposes server health numbers.
type MetricsService interface {
	// GetSummary reads current disk usage from the blob storage volume.
	GetSummary() (MetricsSummary, error)
}

type MetricsServiceImpl struct {
	store *blobstore.Store
}

// NewMetricsService constructs MetricsService with required dependencies.
func NewMetricsService(store *blobstore.Store) *MetricsServiceImpl {
	return &MetricsServiceImpl{store: store}
}

// GetSummary derives used bytes as total minus free.
func (s *MetricsServiceImpl) GetSummary() (MetricsSummary, error) {
	usage, err := s.store.Usage()
	if err != nil {
		return MetricsSummary{}, err
	}
	return MetricsSummary{
		DiskUsedBytes:  usage.TotalBytes - usage.FreeBytes,
		DiskTotalBytes: usage.TotalBytes,
	}, nil
}
