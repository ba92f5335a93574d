package metrics

import (
	"time"

	"github.com/yaelahrip/botasaurus-requests/internal/observability"
)

// Gateway metrics following Prometheus conventions
const (
	AdmissionsTotal       = "gateway_admissions_total"
	DispatchTotal         = "gateway_dispatch_total"
	DispatchDuration      = "gateway_dispatch_duration_ms"
	PoolInFlight          = "gateway_pool_in_flight"
	PoolQueued            = "gateway_pool_queued"
	StagedFilesActive     = "gateway_staged_files_active"
	StagedFilesTotal      = "gateway_staged_files_total"
	HealthCheckTotal      = "app_health_check_total"
	HealthCheckDuration   = "app_health_check_duration_ms"
	ServerStartTimeSecond = "app_server_start_time_seconds"
)

// RecordAdmission counts an admission decision (admitted, unauthorized,
// rate_limited).
func RecordAdmission(decision string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(AdmissionsTotal, 1, map[string]string{
		"decision": decision,
	})
}

// RecordDispatch records one outbound call with its method, outcome and
// total time including queueing.
func RecordDispatch(method string, success bool, elapsed time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	outcome := "success"
	if !success {
		outcome = "failure"
	}
	labels := map[string]string{
		"method":  method,
		"outcome": outcome,
	}
	_ = observability.TelemetrySystem.Counter(DispatchTotal, 1, labels)
	_ = observability.TelemetrySystem.Histogram(DispatchDuration, elapsed, labels)
}

// SetPoolGauges publishes the worker pool's current load.
func SetPoolGauges(inFlight, queued int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(PoolInFlight, float64(inFlight), nil)
	_ = observability.TelemetrySystem.Gauge(PoolQueued, float64(queued), nil)
}

// RecordStagedFile counts an upload and publishes how many are on disk.
func RecordStagedFile(active int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(StagedFilesTotal, 1, nil)
	SetStagedFiles(active)
}

// SetStagedFiles publishes the number of staged files not yet removed.
func SetStagedFiles(active int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(StagedFilesActive, float64(active), nil)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}
	_ = observability.TelemetrySystem.Counter(HealthCheckTotal, 1, map[string]string{
		"check":  checkName,
		"status": status,
	})
	_ = observability.TelemetrySystem.Histogram(HealthCheckDuration, duration, map[string]string{
		"check": checkName,
	})
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Gauge(ServerStartTimeSecond, float64(timestamp), nil)
}
