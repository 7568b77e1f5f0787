package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openctemio/ossreview/internal/infra/scm"
	"github.com/openctemio/ossreview/internal/metrics"
	"github.com/openctemio/ossreview/pkg/domain/classification"
	"github.com/openctemio/ossreview/pkg/domain/licensepolicy"
	"github.com/openctemio/ossreview/pkg/domain/policy"
	"github.com/openctemio/ossreview/pkg/domain/sbom"
	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/logger"
	"github.com/openctemio/ossreview/pkg/validator"
)

// LicenseAuditService classifies SBOM components against the license policy.
type LicenseAuditService struct {
	sbom      SBOMProvider
	policy    *policy.Policy
	describe  ProvenanceFunc
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// NewLicenseAuditService creates a new LicenseAuditService.
func NewLicenseAuditService(provider SBOMProvider, pol *policy.Policy, describe ProvenanceFunc, log *logger.Logger) *LicenseAuditService {
	if pol == nil {
		pol = policy.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &LicenseAuditService{
		sbom:      provider,
		policy:    pol,
		describe:  describe,
		validator: validator.New(),
		logger:    log.With("service", "license_audit"),
		now:       time.Now,
	}
}

// LicenseAuditInput represents the input for a license audit. Nil pointer
// options fall back to the policy's license audit defaults.
type LicenseAuditInput struct {
	TargetPath     string `json:"target_path" validate:"required_without=SBOMPath"`
	SBOMPath       string `json:"sbom_path" validate:"required_without=TargetPath"`
	SkipGeneration *bool  `json:"skip_generation,omitempty"`
	FailOnUnknown  *bool  `json:"fail_on_unknown,omitempty"`
	// Policy overrides the service policy for this request.
	Policy *policy.Policy `json:"-"`
}

// LicenseAuditReport is the structured outcome of a license audit. Text is
// rendered from the same data.
type LicenseAuditReport struct {
	RunID       shared.ID              `json:"run_id" yaml:"run_id"`
	Target      string                 `json:"target,omitempty" yaml:"target,omitempty"`
	Policy      string                 `json:"policy" yaml:"policy"`
	SBOM        SBOMInfo               `json:"sbom" yaml:"sbom"`
	Provenance  *scm.Provenance        `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	Options     classification.Options `json:"options" yaml:"options"`
	Result      *classification.Result `json:"result" yaml:"result"`
	GeneratedAt time.Time              `json:"generated_at" yaml:"generated_at"`
	Text        string                 `json:"-" yaml:"-"`
}

// OK reports whether the audit passed.
func (r *LicenseAuditReport) OK() bool {
	return r.Result != nil && r.Result.OK
}

// Audit obtains the BOM, classifies every component and renders the report.
// Validation and dependency failures are returned as errors; policy
// violations are reported through Result.OK.
func (s *LicenseAuditService) Audit(ctx context.Context, input LicenseAuditInput) (report *LicenseAuditReport, err error) {
	start := s.now()
	runID := shared.NewID()
	ctx = context.WithValue(ctx, logger.ContextKeyRunID, runID.String())
	log := s.logger.WithContext(ctx)

	defer func() {
		metrics.AuditDuration.WithLabelValues(metrics.KindLicense).Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			metrics.AuditsTotal.WithLabelValues(metrics.KindLicense, metrics.ResultError).Inc()
		default:
			metrics.AuditsTotal.WithLabelValues(metrics.KindLicense, metrics.Verdict(report.OK())).Inc()
		}
	}()

	if err := s.validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}

	target, err := resolveTarget(input.TargetPath)
	if err != nil {
		return nil, err
	}

	pol := s.policy
	if input.Policy != nil {
		pol = input.Policy
	}
	defaults := pol.LicenseAuditDefaults()

	opts := classification.Options{FailOnUnknown: defaults.FailOnUnknown}
	if input.FailOnUnknown != nil {
		opts.FailOnUnknown = *input.FailOnUnknown
	}
	skipGeneration := defaults.SkipGeneration
	if input.SkipGeneration != nil {
		skipGeneration = *input.SkipGeneration
	}
	sbomPath := input.SBOMPath
	if sbomPath == "" && skipGeneration {
		sbomPath = defaults.SBOMPath
	}
	sbomPath = resolveRelative(target, sbomPath)

	log.Info("starting license audit", "target", target, "sbom_path", sbomPath, "policy", pol.Source())

	data, info, err := s.obtainBOM(ctx, target, sbomPath, skipGeneration)
	if err != nil {
		log.WithError(err).Error("failed to obtain sbom")
		return nil, err
	}

	doc, parseWarnings, err := sbom.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrDependency, err)
	}
	analysis := sbom.Analyze(doc)
	info.Format = analysis.Format
	info.SpecVersion = analysis.SpecVersion
	info.SerialNumber = analysis.SerialNumber
	info.Components = len(analysis.Entries)

	idx := licensepolicy.BuildIndex(pol.Buckets())
	result := classification.Audit(analysis.Entries, idx, opts)
	result.Warnings = append(append([]string{}, parseWarnings...), result.Warnings...)

	report = &LicenseAuditReport{
		RunID:       runID,
		Target:      target,
		Policy:      pol.Source(),
		SBOM:        info,
		Provenance:  s.provenance(target, log),
		Options:     opts,
		Result:      result,
		GeneratedAt: s.now().UTC(),
	}
	report.Text = RenderLicenseReport(report)

	for _, c := range result.Components {
		metrics.ComponentsClassified.WithLabelValues(string(c.Classification)).Inc()
	}

	log.Info("license audit finished",
		"ok", result.OK,
		"components", result.Counts.Total,
		"prohibited", result.Counts.Prohibited,
		"unknown", result.Counts.Unknown,
		"unlicensed", result.Counts.Unlicensed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

// obtainBOM reads sbomPath when set, otherwise generates a BOM for target.
func (s *LicenseAuditService) obtainBOM(ctx context.Context, target, sbomPath string, skipGeneration bool) ([]byte, SBOMInfo, error) {
	if sbomPath != "" {
		data, err := s.sbom.ReadExisting(ctx, sbomPath)
		if err != nil {
			return nil, SBOMInfo{}, err
		}
		return data, SBOMInfo{Source: SBOMSourceFile, Path: sbomPath}, nil
	}
	if skipGeneration || target == "" {
		return nil, SBOMInfo{}, fmt.Errorf("%w: sbom generation is skipped and no sbom path was given", shared.ErrValidation)
	}
	data, err := s.sbom.Scan(ctx, target)
	if err != nil {
		return nil, SBOMInfo{}, err
	}
	return data, SBOMInfo{Source: SBOMSourceGenerated}, nil
}

// provenance is best effort; a failure is logged and leaves the report
// without provenance.
func (s *LicenseAuditService) provenance(target string, log *logger.Logger) *scm.Provenance {
	if s.describe == nil || target == "" {
		return nil
	}
	p, err := s.describe(target)
	if err != nil {
		log.WithError(err).Warn("failed to describe repository")
		return nil
	}
	return p
}
