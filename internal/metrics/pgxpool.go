package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolStatser is implemented by db.Registry.
type poolStatser interface {
	PoolStats() map[string]*pgxpool.Stat
}

// registryCollector exposes per-tenant pgx pool statistics. Tenant pools
// come and go at runtime, so this is a custom collector instead of
// fixed gauges.
type registryCollector struct {
	registry poolStatser

	acquired *prometheus.Desc
	idle     *prometheus.Desc
	total    *prometheus.Desc
	max      *prometheus.Desc
}

// RegisterRegistryMetrics exposes tenant pool statistics as Prometheus
// gauges labeled by tenant.
func RegisterRegistryMetrics(registry poolStatser) {
	prometheus.MustRegister(&registryCollector{
		registry: registry,
		acquired: prometheus.NewDesc("tenant_pool_acquired_conns",
			"Number of currently acquired connections in the tenant pool", []string{"tenant_id"}, nil),
		idle: prometheus.NewDesc("tenant_pool_idle_conns",
			"Number of idle connections in the tenant pool", []string{"tenant_id"}, nil),
		total: prometheus.NewDesc("tenant_pool_total_conns",
			"Total number of connections in the tenant pool", []string{"tenant_id"}, nil),
		max: prometheus.NewDesc("tenant_pool_max_conns",
			"Maximum number of connections in the tenant pool", []string{"tenant_id"}, nil),
	})
}

func (c *registryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquired
	ch <- c.idle
	ch <- c.total
	ch <- c.max
}

func (c *registryCollector) Collect(ch chan<- prometheus.Metric) {
	for tenantID, stat := range c.registry.PoolStats() {
		ch <- prometheus.MustNewConstMetric(c.acquired, prometheus.GaugeValue, float64(stat.AcquiredConns()), tenantID)
		ch <- prometheus.MustNewConstMetric(c.idle, prometheus.GaugeValue, float64(stat.IdleConns()), tenantID)
		ch <- prometheus.MustNewConstMetric(c.total, prometheus.GaugeValue, float64(stat.TotalConns()), tenantID)
		ch <- prometheus.MustNewConstMetric(c.max, prometheus.GaugeValue, float64(stat.MaxConns()), tenantID)
	}
}

// RegisterMetadataPoolMetrics exposes metadata database pool statistics.
func RegisterMetadataPoolMetrics(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "metadata_pool_acquired_conns",
			Help: "Number of currently acquired connections in the metadata pool",
		}, func() float64 {
			return float64(pool.Stat().AcquiredConns())
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "metadata_pool_total_conns",
			Help: "Total number of connections in the metadata pool",
		}, func() float64 {
			return float64(pool.Stat().TotalConns())
		}),
	)
}
