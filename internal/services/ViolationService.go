package services

import (
	"context"
	"errors"
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"safetywatch/internal/report"
	"safetywatch/internal/trend"
	"safetywatch/internal/violation"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownSeries = errors.New("unknown series")

type CategoryInfo struct {
	Name         models.Category `json:"name"`
	Title        string          `json:"title"`
	Series       []string        `json:"series"`
	RootFolderID string          `json:"root_folder_id,omitempty"`
	Folders      int             `json:"folders"`
}

type DatesQuery struct {
	Category models.Category
	Refresh  bool
	Date     time.Time
}

type Status struct {
	Categories   int               `json:"categories"`
	Folders      int               `json:"folders"`
	ObservedDate string            `json:"observed_date,omitempty"`
	Alert        models.AlertState `json:"alert"`
}

type ViolationServiceInterface interface {
	Categories() []CategoryInfo
	Dates(ctx context.Context, q DatesQuery) ([]models.DateFolderRecord, error)
	Series(ctx context.Context, cat models.Category, name string) (*report.SeriesReport, error)
	Report(ctx context.Context) (*report.Report, error)
	Alert() models.AlertState
	Dismiss() bool
	Share(ctx context.Context, cat models.Category, principal string) error
	Status() Status
}

type ViolationService struct {
	registry *violation.Registry
	monitor  *violation.Monitor
	logger   providers.Logger
	now      func() time.Time
}

func NewViolationService(registry *violation.Registry, monitor *violation.Monitor, logger providers.Logger) ViolationServiceInterface {
	return &ViolationService{
		registry: registry,
		monitor:  monitor,
		logger:   logger,
		now:      time.Now,
	}
}

func (vs *ViolationService) Categories() []CategoryInfo {
	cats := vs.registry.Categories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, cat := range cats {
		cc, _ := vs.registry.Config(cat)
		info := CategoryInfo{Name: cat, Title: vs.registry.Title(cat), Series: cc.Series}
		if c, err := vs.registry.Cache(cat); err == nil {
			if snap := c.Snapshot(); snap != nil {
				info.RootFolderID = snap.RootFolderID
				info.Folders = len(snap.DateFolders)
			}
		}
		out = append(out, info)
	}
	return out
}

// Dates returns the category's date folders, most recent first. A metadata
// consistency problem is logged and the degraded listing returned.
func (vs *ViolationService) Dates(ctx context.Context, q DatesQuery) ([]models.DateFolderRecord, error) {
	records, err := vs.registry.ListDates(ctx, q.Category, violation.ListOptions{
		ForceRefresh:   q.Refresh,
		RestrictToDate: q.Date,
	})
	return vs.tolerate(q.Category, records, err)
}

func (vs *ViolationService) tolerate(cat models.Category, records []models.DateFolderRecord, err error) ([]models.DateFolderRecord, error) {
	if err == nil {
		return records, nil
	}
	if errors.Is(err, violation.ErrConsistency) && records != nil {
		vs.logger.Warnf(providers.TypeApp, "[%s] serving degraded listing: %s", cat, err)
		return records, nil
	}
	return nil, err
}

// Series aggregates one configured series of cat. An empty name selects the
// category's first series.
func (vs *ViolationService) Series(ctx context.Context, cat models.Category, name string) (*report.SeriesReport, error) {
	cc, ok := vs.registry.Config(cat)
	if !ok {
		return nil, fmt.Errorf("%w: %q", violation.ErrUnknownCategory, cat)
	}
	if name == "" && len(cc.Series) > 0 {
		name = cc.Series[0]
	}
	if !contains(cc.Series, name) {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownSeries, name, cat)
	}

	records, err := vs.Dates(ctx, DatesQuery{Category: cat})
	if err != nil {
		return nil, err
	}
	sr := report.BuildSeries(name, trend.Extract(records, name), vs.now())
	return &sr, nil
}

// Report collects every category concurrently and builds the report data.
func (vs *ViolationService) Report(ctx context.Context) (*report.Report, error) {
	cats := vs.registry.Categories()
	inputs := make([]report.Input, len(cats))

	g, gctx := errgroup.WithContext(ctx)
	for i, cat := range cats {
		i, cat := i, cat
		g.Go(func() error {
			records, err := vs.Dates(gctx, DatesQuery{Category: cat})
			if err != nil {
				return fmt.Errorf("%s: %w", cat, err)
			}
			cc, _ := vs.registry.Config(cat)
			in := report.Input{
				Category: cat,
				Title:    vs.registry.Title(cat),
				Order:    cc.Series,
				Series:   make(map[string]trend.Series, len(cc.Series)),
			}
			for _, name := range cc.Series {
				in.Series[name] = trend.Extract(records, name)
			}
			inputs[i] = in
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report.Build(vs.now(), inputs), nil
}

func (vs *ViolationService) Alert() models.AlertState {
	return vs.monitor.Alert()
}

func (vs *ViolationService) Dismiss() bool {
	return vs.monitor.Dismiss()
}

func (vs *ViolationService) Share(ctx context.Context, cat models.Category, principal string) error {
	return vs.registry.ShareRoot(ctx, cat, principal)
}

func (vs *ViolationService) Status() Status {
	st := Status{Alert: vs.monitor.Alert()}
	for _, info := range vs.Categories() {
		st.Categories++
		st.Folders += info.Folders
	}
	st.ObservedDate, _ = vs.monitor.Observed()
	return st
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
