package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openctemio/ossreview/internal/infra/scm"
	"github.com/openctemio/ossreview/internal/metrics"
	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/policy"
	"github.com/openctemio/ossreview/pkg/domain/sbom"
	"github.com/openctemio/ossreview/pkg/domain/severity"
	"github.com/openctemio/ossreview/pkg/domain/shared"
	"github.com/openctemio/ossreview/pkg/logger"
	"github.com/openctemio/ossreview/pkg/validator"
)

// AdvisoryAuditService runs the advisory providers and applies ignore rules
// and the severity threshold.
type AdvisoryAuditService struct {
	providers []advisory.Provider
	sbom      SBOMProvider
	policy    *policy.Policy
	describe  ProvenanceFunc
	cacheDir  string
	validator *validator.Validator
	logger    *logger.Logger
	now       func() time.Time
}

// AdvisoryAuditServiceConfig holds the collaborators of AdvisoryAuditService.
type AdvisoryAuditServiceConfig struct {
	Providers []advisory.Provider
	// SBOM reads an optional existing BOM handed to providers.
	SBOM     SBOMProvider
	Policy   *policy.Policy
	Describe ProvenanceFunc
	CacheDir string
}

// NewAdvisoryAuditService creates a new AdvisoryAuditService.
func NewAdvisoryAuditService(cfg AdvisoryAuditServiceConfig, log *logger.Logger) *AdvisoryAuditService {
	pol := cfg.Policy
	if pol == nil {
		pol = policy.Default()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &AdvisoryAuditService{
		providers: cfg.Providers,
		sbom:      cfg.SBOM,
		policy:    pol,
		describe:  cfg.Describe,
		cacheDir:  cfg.CacheDir,
		validator: validator.New(),
		logger:    log.With("service", "advisory_audit"),
		now:       time.Now,
	}
}

// AdvisoryAuditInput represents the input for an advisory audit. Empty or nil
// options fall back to the policy's advisory audit defaults.
type AdvisoryAuditInput struct {
	TargetPath string   `json:"target_path" validate:"required"`
	SBOMPath   string   `json:"sbom_path,omitempty"`
	IncludeDev *bool    `json:"include_dev,omitempty"`
	Threshold  string   `json:"threshold,omitempty" validate:"omitempty,severity"`
	IgnoreIDs  []string `json:"ignore_ids,omitempty" validate:"dive,required"`
	IgnoreFile string   `json:"ignore_file,omitempty"`
	// Policy overrides the service policy for this request.
	Policy *policy.Policy `json:"-"`
}

// AdvisoryAuditOptions records the effective options of a run.
type AdvisoryAuditOptions struct {
	Threshold   severity.Severity `json:"threshold" yaml:"threshold"`
	IncludeDev  bool              `json:"include_dev" yaml:"include_dev"`
	IgnoreRules int               `json:"ignore_rules" yaml:"ignore_rules"`
	IgnoreFiles []string          `json:"ignore_files,omitempty" yaml:"ignore_files,omitempty"`
}

// AdvisoryAuditReport is the structured outcome of an advisory audit.
type AdvisoryAuditReport struct {
	RunID       shared.ID            `json:"run_id" yaml:"run_id"`
	Target      string               `json:"target" yaml:"target"`
	Policy      string               `json:"policy" yaml:"policy"`
	SBOM        *SBOMInfo            `json:"sbom,omitempty" yaml:"sbom,omitempty"`
	Provenance  *scm.Provenance      `json:"provenance,omitempty" yaml:"provenance,omitempty"`
	Options     AdvisoryAuditOptions `json:"options" yaml:"options"`
	Result      *advisory.Result     `json:"result" yaml:"result"`
	GeneratedAt time.Time            `json:"generated_at" yaml:"generated_at"`
	Text        string               `json:"-" yaml:"-"`
}

// OK reports whether the audit passed.
func (r *AdvisoryAuditReport) OK() bool {
	return r.Result != nil && r.Result.OK
}

// Audit runs every provider against the target and evaluates the findings.
func (s *AdvisoryAuditService) Audit(ctx context.Context, input AdvisoryAuditInput) (report *AdvisoryAuditReport, err error) {
	start := s.now()
	runID := shared.NewID()
	ctx = context.WithValue(ctx, logger.ContextKeyRunID, runID.String())
	log := s.logger.WithContext(ctx)

	defer func() {
		metrics.AuditDuration.WithLabelValues(metrics.KindAdvisory).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.AuditsTotal.WithLabelValues(metrics.KindAdvisory, metrics.ResultError).Inc()
			return
		}
		metrics.AuditsTotal.WithLabelValues(metrics.KindAdvisory, metrics.Verdict(report.OK())).Inc()
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
	defaults := pol.AdvisoryAuditDefaults()

	opts := AdvisoryAuditOptions{
		Threshold:  defaults.Threshold,
		IncludeDev: defaults.IncludeDev,
	}
	if input.Threshold != "" {
		opts.Threshold = severity.Normalize(input.Threshold)
	}
	if opts.Threshold == "" {
		opts.Threshold = advisory.DefaultThreshold
	}
	if input.IncludeDev != nil {
		opts.IncludeDev = *input.IncludeDev
	}

	configIgnoreFile := resolveRelative(target, defaults.IgnoreFile)
	runtimeIgnoreFile := resolveRelative(target, input.IgnoreFile)
	sbomPath := resolveRelative(target, input.SBOMPath)

	log.Info("starting advisory audit",
		"target", target,
		"threshold", opts.Threshold,
		"include_dev", opts.IncludeDev,
		"providers", len(s.providers),
	)

	var (
		analysis    *sbom.Analysis
		sbomInfo    *SBOMInfo
		configRules []advisory.IgnoreRule
		inputRules  []advisory.IgnoreRule
		sbomWarns   []string
	)

	g, gctx := errgroup.WithContext(ctx)
	if sbomPath != "" && s.sbom != nil {
		g.Go(func() error {
			var err error
			analysis, sbomInfo, sbomWarns, err = s.loadSBOM(gctx, sbomPath)
			return err
		})
	}
	g.Go(func() error {
		var err error
		configRules, err = advisory.LoadIgnoreRules(configIgnoreFile)
		if err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		return nil
	})
	if runtimeIgnoreFile != "" && runtimeIgnoreFile != configIgnoreFile {
		g.Go(func() error {
			var err error
			inputRules, err = advisory.LoadIgnoreRules(runtimeIgnoreFile)
			if err != nil {
				return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.WithError(err).Error("failed to prepare advisory audit")
		return nil, err
	}

	rules := advisory.MergeIgnoreRules(
		advisory.RulesFromIDs(defaults.IgnoreIDs),
		configRules,
		inputRules,
		advisory.RulesFromIDs(input.IgnoreIDs),
	)
	opts.IgnoreRules = len(rules)
	for _, f := range []string{configIgnoreFile, runtimeIgnoreFile} {
		if f != "" && !slices.Contains(opts.IgnoreFiles, f) {
			opts.IgnoreFiles = append(opts.IgnoreFiles, f)
		}
	}

	rc := advisory.RunContext{
		TargetPath: target,
		IncludeDev: opts.IncludeDev,
		SBOM:       analysis,
		CacheDir:   s.cacheDir,
	}
	result, err := advisory.Audit(ctx, s.providers, rc, advisory.AuditOptions{
		Threshold: opts.Threshold,
		Rules:     rules,
		Now:       s.now().UTC(),
	})
	if err != nil {
		log.WithError(err).Error("advisory provider failed")
		if !errors.Is(err, shared.ErrDependency) {
			err = fmt.Errorf("%w: %w", shared.ErrDependency, err)
		}
		return nil, err
	}
	if len(sbomWarns) > 0 {
		result.Warnings = append(append([]string{}, sbomWarns...), result.Warnings...)
	}

	report = &AdvisoryAuditReport{
		RunID:       runID,
		Target:      target,
		Policy:      pol.Source(),
		SBOM:        sbomInfo,
		Provenance:  s.provenance(target, log),
		Options:     opts,
		Result:      result,
		GeneratedAt: s.now().UTC(),
	}
	report.Text = RenderAdvisoryReport(report)

	for _, f := range result.Findings {
		metrics.AdvisoryFindings.WithLabelValues(string(f.Severity)).Inc()
	}
	metrics.IgnoredFindings.Add(float64(len(result.Ignored)))

	log.Info("advisory audit finished",
		"ok", result.OK,
		"findings", result.Summary.Total,
		"ignored", len(result.Ignored),
		"fail_reasons", len(result.FailReasons),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

func (s *AdvisoryAuditService) loadSBOM(ctx context.Context, path string) (*sbom.Analysis, *SBOMInfo, []string, error) {
	data, err := s.sbom.ReadExisting(ctx, path)
	if err != nil {
		return nil, nil, nil, err
	}
	doc, warnings, err := sbom.Parse(data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", shared.ErrDependency, err)
	}
	analysis := sbom.Analyze(doc)
	info := &SBOMInfo{
		Source:       SBOMSourceFile,
		Path:         path,
		Format:       analysis.Format,
		SpecVersion:  analysis.SpecVersion,
		SerialNumber: analysis.SerialNumber,
		Components:   len(analysis.Entries),
	}
	return analysis, info, warnings, nil
}

func (s *AdvisoryAuditService) provenance(target string, log *logger.Logger) *scm.Provenance {
	if s.describe == nil {
		return nil
	}
	p, err := s.describe(target)
	if err != nil {
		log.WithError(err).Warn("failed to describe repository")
		return nil
	}
	return p
}
