// Package metrics holds the Prometheus collectors of a sync run. A run is a
// short-lived CLI process, so the registry is written to a node-exporter
// textfile instead of being scraped.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

var (
	repositoryApplyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifactory_sync_repository_apply_total",
			Help: "Repository definitions applied, by rclass and result.",
		},
		[]string{"class", "result"},
	)

	ldapSettingsChanged = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "artifactory_sync_ldap_settings_changed",
			Help: "1 when the last LDAP settings run found a difference, 0 otherwise.",
		},
	)

	passwordRotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "artifactory_sync_password_rotations_total",
			Help: "Password rotations, by result.",
		},
		[]string{"result"},
	)

	lastRunTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "artifactory_sync_last_run_timestamp_seconds",
			Help: "Unix time at which a command last finished, by command and status.",
		},
		[]string{"command", "status"},
	)
)

// Rotation results.
const (
	RotationRotated   = "rotated"
	RotationUnchanged = "unchanged"
	RotationError     = "error"
)

func init() {
	Registry.MustRegister(Collectors()...)
}

// Collectors returns all collectors of the package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		repositoryApplyTotal,
		ldapSettingsChanged,
		passwordRotationsTotal,
		lastRunTimestamp,
	}
}

// RecordRepositoryApply counts one applied repository definition.
func RecordRepositoryApply(class string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	repositoryApplyTotal.WithLabelValues(class, result).Inc()
}

// SetLdapSettingsChanged records whether the LDAP settings differed.
func SetLdapSettingsChanged(changed bool) {
	if changed {
		ldapSettingsChanged.Set(1)
		return
	}
	ldapSettingsChanged.Set(0)
}

// RecordPasswordRotation counts a rotation with one of the Rotation* results.
func RecordPasswordRotation(result string) {
	passwordRotationsTotal.WithLabelValues(result).Inc()
}

// MarkRunFinished stamps the completion time of command. Older stamps of the
// same command with another status are removed.
func MarkRunFinished(command string, failed bool, at time.Time) {
	status := "success"
	if failed {
		status = "failure"
	}
	lastRunTimestamp.DeletePartialMatch(prometheus.Labels{"command": command})
	lastRunTimestamp.WithLabelValues(command, status).Set(float64(at.Unix()))
}

// WriteTextfile writes the registry to path in the text exposition format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write metrics textfile '%s': %w", path, err)
	}
	return nil
}
