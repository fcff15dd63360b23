package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	vaultMetricsOnce     sync.Once
	vaultMetricsInstance *VaultMetrics
)

// VaultMetrics holds Prometheus metrics of the file vault.
type VaultMetrics struct {
	QuotaUsedBytes *prometheus.GaugeVec   // clubvault_quota_used_bytes{organization}
	QuotaAlerts    *prometheus.CounterVec // clubvault_quota_alerts_total{level}

	TrashTransitions *prometheus.CounterVec // clubvault_trash_transitions_total{operation,status}
	OrphanedBlobs    prometheus.Counter     // clubvault_orphaned_blobs_total

	ExportRuns  *prometheus.CounterVec // clubvault_export_runs_total{mode,outcome}
	ExportItems *prometheus.CounterVec // clubvault_export_items_total{status}
	ExportBytes prometheus.Counter     // clubvault_export_bytes_total
}

// Init registers the vault metrics once; later calls return the same instance.
func Init(registry prometheus.Registerer) *VaultMetrics {
	vaultMetricsOnce.Do(func() {
		if registry == nil {
			registry = prometheus.DefaultRegisterer
		}
		vaultMetricsInstance = newVaultMetrics(registry)
	})
	return vaultMetricsInstance
}

// New creates an unshared set of metrics, used by tests with their own registry.
func New(registry prometheus.Registerer) *VaultMetrics {
	return newVaultMetrics(registry)
}

func newVaultMetrics(registry prometheus.Registerer) *VaultMetrics {
	f := promauto.With(registry)
	return &VaultMetrics{
		QuotaUsedBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clubvault_quota_used_bytes",
			Help: "Storage consumption per organization, computed on demand",
		}, []string{"organization"}),

		QuotaAlerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clubvault_quota_alerts_total",
			Help: "Quota threshold alerts raised to callers by level",
		}, []string{"level"}),

		TrashTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clubvault_trash_transitions_total",
			Help: "Trash lifecycle transitions by operation and status",
		}, []string{"operation", "status"}),

		OrphanedBlobs: f.NewCounter(prometheus.CounterOpts{
			Name: "clubvault_orphaned_blobs_total",
			Help: "Blobs left in the object store after their catalog row was purged",
		}),

		ExportRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clubvault_export_runs_total",
			Help: "Archive export runs by mode and outcome",
		}, []string{"mode", "outcome"}),

		ExportItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clubvault_export_items_total",
			Help: "Exported items by status",
		}, []string{"status"}),

		ExportBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "clubvault_export_bytes_total",
			Help: "Bytes fetched from the object store for exports",
		}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveTransition records a trash lifecycle transition. Nil-safe.
func (m *VaultMetrics) ObserveTransition(operation string, err error) {
	if m == nil {
		return
	}
	m.TrashTransitions.WithLabelValues(operation, status(err)).Inc()
}

func (m *VaultMetrics) ObserveOrphanedBlob() {
	if m == nil {
		return
	}
	m.OrphanedBlobs.Inc()
}

func (m *VaultMetrics) ObserveQuota(orgID string, usedBytes int64) {
	if m == nil {
		return
	}
	m.QuotaUsedBytes.WithLabelValues(orgID).Set(float64(usedBytes))
}

func (m *VaultMetrics) ObserveQuotaAlert(level string) {
	if m == nil {
		return
	}
	m.QuotaAlerts.WithLabelValues(level).Inc()
}

func (m *VaultMetrics) ObserveExportItem(ok bool, bytes int) {
	if m == nil {
		return
	}
	if ok {
		m.ExportItems.WithLabelValues("ok").Inc()
		m.ExportBytes.Add(float64(bytes))
		return
	}
	m.ExportItems.WithLabelValues("failed").Inc()
}

func (m *VaultMetrics) ObserveExportRun(mode, outcome string) {
	if m == nil {
		return
	}
	m.ExportRuns.WithLabelValues(mode, outcome).Inc()
}
