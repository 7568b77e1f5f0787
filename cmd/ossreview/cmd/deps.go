package cmd

import (
	"fmt"
	"io"

	"github.com/openctemio/ossreview/internal/app"
	"github.com/openctemio/ossreview/internal/config"
	"github.com/openctemio/ossreview/internal/infra/advisory/npmaudit"
	"github.com/openctemio/ossreview/internal/infra/exec"
	"github.com/openctemio/ossreview/internal/infra/sbom"
	"github.com/openctemio/ossreview/internal/infra/scm"
	"github.com/openctemio/ossreview/pkg/domain/advisory"
	"github.com/openctemio/ossreview/pkg/domain/policy"
	"github.com/openctemio/ossreview/pkg/logger"
)

// deps holds the wired application for one command invocation.
type deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	Policy   *policy.Policy
	Licenses *app.LicenseAuditService
	Advisory *app.AdvisoryAuditService
}

// newDeps loads configuration and policy and wires the services.
func newDeps(cfg *config.Config, logOut io.Writer) (*deps, error) {
	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: logOut,
	}).With("app", cfg.App.Name)
	log.SetDefault()

	pol, err := policy.Load(cfg.Policy.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy: %w", err)
	}
	log.Debug("policy loaded", "source", pol.Source())

	runner := exec.NewRunner(log)

	sbomProvider := sbom.NewSyftProvider(runner, sbom.Config{
		Command: cfg.SBOM.Command,
		Timeout: cfg.SBOM.Timeout,
	}, log)

	npm := npmaudit.New(runner, npmaudit.Config{
		Command: cfg.Advisory.Command,
		Timeout: cfg.Advisory.Timeout,
	}, log)

	return &deps{
		Config:   cfg,
		Logger:   log,
		Policy:   pol,
		Licenses: app.NewLicenseAuditService(sbomProvider, pol, scm.Describe, log),
		Advisory: app.NewAdvisoryAuditService(app.AdvisoryAuditServiceConfig{
			Providers: []advisory.Provider{npm},
			SBOM:      sbomProvider,
			Policy:    pol,
			Describe:  scm.Describe,
			CacheDir:  cfg.Advisory.CacheDir,
		}, log),
	}, nil
}
