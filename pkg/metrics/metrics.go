// Package metrics counts scan and query activity of a run. The counters
// can be written as a Prometheus textfile for node_exporter pickup.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
)

const namespace = "oss_checker"

// Recorder methods are safe to call on a nil *Recorder.
type Recorder struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	coordinates     *prometheus.CounterVec
	skipped         *prometheus.CounterVec
	reports         *prometheus.CounterVec
	vulnerabilities *prometheus.CounterVec
	failures        *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Vulnerability service calls by request mode and result.",
		}, []string{"mode", "result"}),
		coordinates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coordinates_total",
			Help:      "Unique coordinates discovered per ecosystem.",
		}, []string{"ecosystem"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_entries_total",
			Help:      "Files that did not match the ecosystem naming convention.",
		}, []string{"ecosystem"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "component_reports_total",
			Help:      "Component reports received per ecosystem.",
		}, []string{"ecosystem"}),
		vulnerabilities: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vulnerabilities_total",
			Help:      "Vulnerabilities reported per ecosystem.",
		}, []string{"ecosystem"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failed_coordinates_total",
			Help:      "Coordinates left without a report because their request failed.",
		}, []string{"ecosystem"}),
	}
	r.registry.MustRegister(r.requests, r.coordinates, r.skipped, r.reports, r.vulnerabilities, r.failures)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Request records one network call.
func (r *Recorder) Request(mode string, err error) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.requests.WithLabelValues(mode, result).Inc()
}

// Scanned records the result of one ecosystem scan.
func (r *Recorder) Scanned(ecosystem string, coordinates, skipped int) {
	if r == nil {
		return
	}
	r.coordinates.WithLabelValues(ecosystem).Add(float64(coordinates))
	r.skipped.WithLabelValues(ecosystem).Add(float64(skipped))
}

// Report records a received component report.
func (r *Recorder) Report(ecosystem string, vulnerabilities int) {
	if r == nil {
		return
	}
	r.reports.WithLabelValues(ecosystem).Inc()
	r.vulnerabilities.WithLabelValues(ecosystem).Add(float64(vulnerabilities))
}

// Failed records coordinates whose request failed.
func (r *Recorder) Failed(ecosystem string, coordinates int) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(ecosystem).Add(float64(coordinates))
}

// WriteFile writes every counter in the Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return oops.With("file_path", path).Wrapf(err, "metrics write error")
	}
	return nil
}
