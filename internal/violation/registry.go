package violation

import (
	"context"
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"safetywatch/internal/remote"
	"safetywatch/internal/structures"
	"time"

	"golang.org/x/time/rate"
)

// DateLister is the read path the monitor and services use.
type DateLister interface {
	Categories() []models.Category
	ListDates(ctx context.Context, cat models.Category, opts ListOptions) ([]models.DateFolderRecord, error)
}

// Registry owns one FolderCache per configured category. The set is fixed at
// construction and iterated in configuration order.
type Registry struct {
	order  []models.Category
	caches map[models.Category]*FolderCache
	confs  map[models.Category]structures.CategoryConfig
}

func NewRegistry(conf *structures.Config, store remote.Store, logger providers.Logger, metrics providers.MetricsProviderInterface) *Registry {
	perSecond := conf.Repair.PerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	burst := conf.Repair.Burst
	if burst <= 0 {
		burst = 1
	}
	// One limiter for all categories: they share the same credential.
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)

	r := &Registry{
		order:  make([]models.Category, 0, len(conf.Categories)),
		caches: make(map[models.Category]*FolderCache, len(conf.Categories)),
		confs:  make(map[models.Category]structures.CategoryConfig, len(conf.Categories)),
	}
	for _, cc := range conf.Categories {
		cat := models.Category(cc.Name)
		r.order = append(r.order, cat)
		r.caches[cat] = NewFolderCache(cc, store, limiter, conf.Refresh, logger, metrics)
		r.confs[cat] = cc
	}
	return r
}

func (r *Registry) Categories() []models.Category {
	out := make([]models.Category, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Cache(cat models.Category) (*FolderCache, error) {
	c, ok := r.caches[cat]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}
	return c, nil
}

func (r *Registry) Config(cat models.Category) (structures.CategoryConfig, bool) {
	cc, ok := r.confs[cat]
	return cc, ok
}

// Title is the human readable category name, falling back to the identifier.
func (r *Registry) Title(cat models.Category) string {
	if cc, ok := r.confs[cat]; ok && cc.Title != "" {
		return cc.Title
	}
	return string(cat)
}

func (r *Registry) ListDates(ctx context.Context, cat models.Category, opts ListOptions) ([]models.DateFolderRecord, error) {
	c, err := r.Cache(cat)
	if err != nil {
		return nil, err
	}
	return c.ListDates(ctx, opts)
}

func (r *Registry) Refresh(ctx context.Context, cat models.Category) (*models.CategoryMetadata, *RefreshReport, error) {
	c, err := r.Cache(cat)
	if err != nil {
		return nil, nil, err
	}
	return c.Refresh(ctx)
}

func (r *Registry) Invalidate(cat models.Category) error {
	c, err := r.Cache(cat)
	if err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

func (r *Registry) ShareRoot(ctx context.Context, cat models.Category, principal string) error {
	c, err := r.Cache(cat)
	if err != nil {
		return err
	}
	return c.ShareRoot(ctx, principal)
}

// Warm loads every category once, logging failures instead of returning them.
func (r *Registry) Warm(ctx context.Context, logger providers.Logger) {
	for _, cat := range r.order {
		started := time.Now()
		if _, _, err := r.caches[cat].Refresh(ctx); err != nil {
			logger.Errorf(providers.TypeApp, "[%s] initial refresh failed: %s", cat, err)
			continue
		}
		logger.Infof(providers.TypeApp, "[%s] initial refresh done in %s", cat, time.Since(started))
	}
}
