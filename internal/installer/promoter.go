package installer

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/alexisbeaulieu97/modhost/internal/infrastructure/logging"
	"github.com/alexisbeaulieu97/modhost/internal/ports"
	"github.com/alexisbeaulieu97/modhost/internal/storage"
)

// Layout resolves where a module's code and published assets live.
type Layout struct {
	// ModulesDir holds one directory per installed module.
	ModulesDir string
	// PublicRoot is the web root published assets are moved under.
	PublicRoot string
}

// LiveDir returns <ModulesDir>/<id>.
func (l Layout) LiveDir(id string) string {
	return filepath.Join(l.ModulesDir, id)
}

// PublicDir returns <PublicRoot>/<base(ModulesDir)>/<id>.
func (l Layout) PublicDir(id string) string {
	return filepath.Join(l.PublicRoot, filepath.Base(filepath.Clean(l.ModulesDir)), id)
}

// Promoter moves a validated candidate into the live tree.
type Promoter struct {
	storage   storage.Storage
	layout    Layout
	publicDir string
	logger    ports.Logger
}

// NewPromoter creates a Promoter. publicDir names the public subtree inside a
// module.
func NewPromoter(st storage.Storage, layout Layout, publicDir string, logger ports.Logger) *Promoter {
	return &Promoter{storage: st, layout: layout, publicDir: publicDir, logger: logging.OrNoOp(logger)}
}

// Promotion is a completed promotion that can still be undone until the
// candidate's scratch directory is released.
type Promotion struct {
	promoter      *Promoter
	id            string
	parkedLive    string
	parkedPublic  string
	publishedLive bool
	published     bool
}

// Replaced reports whether the promotion replaced an installed version.
func (p *Promotion) Replaced() bool { return p.parkedLive != "" }

// Promote parks any installed version inside the candidate's scratch
// directory, moves the candidate into <ModulesDir>/<id> and relocates its
// public subtree. A failure restores the parked version before returning.
func (p *Promoter) Promote(ctx context.Context, c *Candidate) (*Promotion, error) {
	promotion := &Promotion{promoter: p, id: c.ID}
	live := p.layout.LiveDir(c.ID)
	public := p.layout.PublicDir(c.ID)

	if p.storage.Exists(live) {
		parked := filepath.Join(c.ScratchDir, ".previous", "live")
		if err := p.storage.Move(live, parked); err != nil {
			return nil, fmt.Errorf("park installed module %s: %w", c.ID, err)
		}
		promotion.parkedLive = parked
	}
	if p.storage.Exists(public) {
		parked := filepath.Join(c.ScratchDir, ".previous", "public")
		if err := p.storage.Move(public, parked); err != nil {
			return nil, multierr.Append(fmt.Errorf("park published assets of %s: %w", c.ID, err), promotion.Rollback(ctx))
		}
		promotion.parkedPublic = parked
	}

	promotion.publishedLive = true
	if err := p.storage.Move(c.Root, live); err != nil {
		return nil, multierr.Append(fmt.Errorf("promote %s: %w", c.ID, err), promotion.Rollback(ctx))
	}

	stagedPublic := filepath.Join(live, p.publicDir)
	if p.storage.IsDir(stagedPublic) {
		promotion.published = true
		if err := p.storage.Move(stagedPublic, public); err != nil {
			return nil, multierr.Append(fmt.Errorf("publish assets of %s: %w", c.ID, err), promotion.Rollback(ctx))
		}
		if p.storage.Exists(stagedPublic) {
			if err := p.storage.DeleteDirectory(stagedPublic); err != nil {
				return nil, multierr.Append(err, promotion.Rollback(ctx))
			}
		}
	}

	p.logger.Info(ctx, "module promoted", "module_id", c.ID, "live", live, "replaced", promotion.Replaced(), "published", promotion.published)
	return promotion, nil
}

// Rollback removes what the promotion wrote and moves any parked version
// back.
func (p *Promotion) Rollback(ctx context.Context) error {
	st := p.promoter.storage
	layout := p.promoter.layout
	var errs error

	if p.publishedLive {
		if live := layout.LiveDir(p.id); st.Exists(live) {
			errs = multierr.Append(errs, st.DeleteDirectory(live))
		}
	}
	if p.published || p.parkedPublic != "" {
		if public := layout.PublicDir(p.id); st.Exists(public) {
			errs = multierr.Append(errs, st.DeleteDirectory(public))
		}
	}
	if p.parkedLive != "" {
		errs = multierr.Append(errs, st.Move(p.parkedLive, layout.LiveDir(p.id)))
	}
	if p.parkedPublic != "" {
		errs = multierr.Append(errs, st.Move(p.parkedPublic, layout.PublicDir(p.id)))
	}

	if errs != nil {
		p.promoter.logger.Error(ctx, "promotion rollback incomplete", "module_id", p.id, "error", errs)
		return fmt.Errorf("roll back %s: %w", p.id, errs)
	}
	p.promoter.logger.Warn(ctx, "promotion rolled back", "module_id", p.id, "restored", p.Replaced())
	return nil
}
