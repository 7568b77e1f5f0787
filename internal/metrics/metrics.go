package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Audit kinds used as the "kind" label.
const (
	KindLicense  = "license"
	KindAdvisory = "advisory"
)

// Audit results used as the "result" label.
const (
	ResultPassed = "passed"
	ResultFailed = "failed"
	ResultError  = "error"
	ResultOK     = "ok"
)

// Tool call error kinds used as the "result" label.
const (
	ResultInvalid    = "invalid"
	ResultNotFound   = "not_found"
	ResultDependency = "dependency"
)

// Audit metrics
var (
	// AuditsTotal tracks audits by kind and verdict
	AuditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ossreview_audits_total",
			Help: "Total number of audits by kind and result",
		},
		[]string{"kind", "result"}, // result: "passed", "failed", "error"
	)

	// AuditDuration tracks end-to-end audit duration
	AuditDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ossreview_audit_duration_seconds",
			Help:    "Audit duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// ComponentsClassified tracks classified components by outcome
	ComponentsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ossreview_components_classified_total",
			Help: "Total number of SBOM components classified, by classification",
		},
		[]string{"classification"},
	)

	// AdvisoryFindings tracks reported (not ignored) findings by severity
	AdvisoryFindings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ossreview_advisory_findings_total",
			Help: "Total number of advisory findings reported, by severity",
		},
		[]string{"severity"},
	)

	// IgnoredFindings tracks findings suppressed by ignore rules
	IgnoredFindings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ossreview_ignored_findings_total",
			Help: "Total number of advisory findings suppressed by ignore rules",
		},
	)
)

// External tool metrics
var (
	// ToolRunsTotal tracks external tool invocations by exit class
	ToolRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ossreview_tool_runs_total",
			Help: "Total number of external tool invocations by tool and result",
		},
		[]string{"tool", "result"}, // result: "ok", "nonzero", "timeout", "not_found"
	)

	// ToolRunDuration tracks external tool run duration
	ToolRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ossreview_tool_run_duration_seconds",
			Help:    "External tool run duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"tool"},
	)
)

// MCP tool metrics
var (
	// ToolCallsTotal tracks MCP tool calls by tool and outcome
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ossreview_mcp_tool_calls_total",
			Help: "Total number of MCP tool calls by tool and result",
		},
		[]string{"tool", "result"}, // result: "ok", "error", "invalid", "not_found", "dependency"
	)

	// ToolCallDuration tracks MCP tool call duration
	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ossreview_mcp_tool_call_duration_seconds",
			Help:    "MCP tool call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)
)

// Verdict returns the result label for an audit verdict.
func Verdict(ok bool) string {
	if ok {
		return ResultPassed
	}
	return ResultFailed
}
