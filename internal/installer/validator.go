package installer

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/module"
	"github.com/alexisbeaulieu97/modhost/internal/module/script"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
	"github.com/alexisbeaulieu97/modhost/internal/validation"
	moderrors "github.com/alexisbeaulieu97/modhost/pkg/errors"
)

// Gate names, in execution order.
const (
	GateExtract         = "extract"
	GateCoreOverride    = "core-override"
	GateEntryFile       = "entry-file"
	GatePatternScan     = "pattern-scan"
	GateExtensionPolicy = "extension-policy"
)

// ModuleLookup finds installed modules by id.
type ModuleLookup interface {
	FindByID(id string) (module.Descriptor, bool)
}

// Validator runs the content gates over an extracted candidate.
type Validator struct {
	storage storage.Storage
	policy  *compiledPolicy
	modules ModuleLookup
	logger  ports.Logger
}

// NewValidator creates a Validator. modules may be nil, which disables the
// core-override gate.
func NewValidator(st storage.Storage, policy Policy, modules ModuleLookup, logger ports.Logger) (*Validator, error) {
	compiled, err := policy.compile()
	if err != nil {
		return nil, err
	}
	return &Validator{storage: st, policy: compiled, modules: modules, logger: logging.OrNoOp(logger)}, nil
}

// Chain returns the gates for c in order. The core-override gate runs first
// so a package named after a core module is refused whatever it contains.
func (v *Validator) Chain(c *Candidate) *validation.Chain {
	return validation.NewChain(
		validation.Check{Name: GateCoreOverride, Run: func(ctx context.Context) error { return v.checkCoreOverride(ctx, c) }},
		validation.Check{Name: GateEntryFile, Run: func(ctx context.Context) error { return v.checkEntryFile(ctx, c) }},
		validation.Check{Name: GatePatternScan, Run: func(ctx context.Context) error { return v.checkPatterns(ctx, c) }},
		validation.Check{Name: GateExtensionPolicy, Run: func(ctx context.Context) error { return v.checkExtensions(ctx, c) }},
	)
}

func (v *Validator) checkEntryFile(_ context.Context, c *Candidate) error {
	files := mapset.NewThreadUnsafeSet[string](c.Files...)

	entry := c.ID + "." + v.policy.SourceExtension
	if !files.Contains(entry) {
		return moderrors.New(moderrors.KindMissingEntryFile, c.ID, c.DisplayPath(entry), nil)
	}

	if v.storage.IsDir(c.Path(v.policy.PublicDir)) {
		publicEntry := v.policy.PublicDir + "/" + c.ID + "." + v.policy.PublicEntryExtension
		if !files.Contains(publicEntry) {
			return moderrors.New(moderrors.KindMissingEntryFile, c.ID, c.DisplayPath(publicEntry), nil)
		}
	}

	if v.policy.SourceExtension != script.Extension {
		return nil
	}
	source, err := v.storage.Get(c.Path(entry))
	if err != nil {
		return fmt.Errorf("read entry file: %w", err)
	}
	if err := script.Check(source, c.DisplayPath(entry)); err != nil {
		return moderrors.New(moderrors.KindInvalidEntryFile, c.ID, c.DisplayPath(entry), err)
	}
	return nil
}

type scanHit struct {
	rule string
	hit  bool
}

// checkPatterns scans files in parallel and reports the hit of the first file
// in sorted order.
func (v *Validator) checkPatterns(ctx context.Context, c *Candidate) error {
	var targets []string
	for _, rel := range c.Files {
		if under(rel, v.policy.VendorDir) || !v.policy.scan.Contains(extensionOf(rel)) {
			continue
		}
		targets = append(targets, rel)
	}
	if len(targets) == 0 || len(v.policy.Rules) == 0 {
		return nil
	}

	hits := make([]scanHit, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.policy.ScanConcurrency)
	for i, rel := range targets {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := v.storage.Get(c.Path(rel))
			if err != nil {
				return err
			}
			if rule, ok := validation.FirstMatch(data, v.policy.Rules); ok {
				hits[i] = scanHit{rule: rule.Name, hit: true}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("scan sources: %w", err)
	}

	for i, h := range hits {
		if h.hit {
			v.logger.Warn(ctx, "disallowed source pattern", "module_id", c.ID, "rule", h.rule, "file", targets[i])
			return moderrors.New(moderrors.KindDisallowedSourcePattern, c.ID, h.rule, fmt.Errorf("found in %s", c.DisplayPath(targets[i])))
		}
	}
	return nil
}

func (v *Validator) checkExtensions(_ context.Context, c *Candidate) error {
	for _, rel := range c.Files {
		if under(rel, v.policy.VendorDir) {
			continue
		}
		ext := extensionOf(rel)
		if !v.policy.allowed.Contains(ext) {
			return moderrors.New(moderrors.KindDisallowedExtension, c.ID, c.DisplayPath(rel), nil)
		}
		if under(rel, v.policy.PublicDir) && v.policy.private.Contains(ext) {
			return moderrors.New(moderrors.KindDisallowedPublicExtension, c.ID, c.DisplayPath(rel), nil)
		}
	}
	return nil
}

func (v *Validator) checkCoreOverride(_ context.Context, c *Candidate) error {
	if v.modules == nil {
		return nil
	}
	if existing, ok := v.modules.FindByID(c.ID); ok && existing.Metadata().IsCore {
		return moderrors.New(moderrors.KindCoreModuleOverrideDenied, c.ID, "", nil)
	}
	return nil
}
