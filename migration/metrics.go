package migration

import "github.com/prometheus/client_golang/prometheus"

/*
 * ============================================================================
 * 迁移指标
 * ============================================================================
 *
 * 迁移进度的 Prometheus 指标，在 init 中注册到默认 registry。没有任何 HTTP
 * 路由（包括 server/http_admin.go）提供它们，仓库中也没有代码调用
 * RecordTerminal、RefreshActiveGauges，或更新 KeysMigrated、StagedBytes。
 */

var (
	// JobsTotal counts jobs reaching a terminal state, labeled by role and
	// final state.
	JobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingdb",
		Subsystem: "migration",
		Name:      "jobs_total",
		Help:      "Migration jobs that reached a terminal state.",
	}, []string{"role", "state"})

	// KeysMigrated counts keys promoted from an ImportBuffer into the
	// visible keyspace on success.
	KeysMigrated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingdb",
		Subsystem: "migration",
		Name:      "keys_migrated_total",
		Help:      "Keys promoted into the visible keyspace by successful imports.",
	}, []string{"job"})

	// StagedBytes reports the current sync-channel staged-but-unflushed
	// byte count, the bucket excluded from maxmemory accounting.
	StagedBytes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lingdb",
		Subsystem: "migration",
		Name:      "staged_bytes",
		Help:      "Bytes buffered on a SyncChannel but not yet flushed to the socket.",
	}, []string{"job"})

	// ActiveJobs reports how many non-terminal jobs are tracked per role.
	ActiveJobs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "lingdb",
		Subsystem: "migration",
		Name:      "active_jobs",
		Help:      "Non-terminal migration jobs tracked by this node.",
	}, []string{"role"})
)

func init() {
	prometheus.MustRegister(JobsTotal, KeysMigrated, StagedBytes, ActiveJobs)
}

// RecordTerminal increments JobsTotal for a job that just reached a
// terminal state. ActiveJobs is left to RefreshActiveGauges.
func RecordTerminal(role Role, state State) {
	JobsTotal.WithLabelValues(role.String(), state.String()).Inc()
}

// RefreshActiveGauges recomputes ActiveJobs from a registry snapshot;
// cheap enough to call from the same low-frequency tick that runs
// Registry.Trim.
func RefreshActiveGauges(r *Registry) {
	imports, exports := 0, 0
	for _, j := range r.List() {
		if j.State().IsTerminal() {
			continue
		}
		if j.Role == RoleImport {
			imports++
		} else {
			exports++
		}
	}
	ActiveJobs.WithLabelValues("IMPORT").Set(float64(imports))
	ActiveJobs.WithLabelValues("EXPORT").Set(float64(exports))
}
