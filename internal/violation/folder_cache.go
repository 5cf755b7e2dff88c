package violation

import (
	"context"
	"errors"
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"safetywatch/internal/remote"
	"safetywatch/internal/structures"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

type ListOptions struct {
	ForceRefresh bool
	// RestrictToDate keeps only the record for this calendar date when non-zero.
	RestrictToDate time.Time
}

// FolderCache keeps the date folder snapshot of one category. Snapshots are
// built completely off to the side and then published with a single atomic
// store, so readers never observe a half-refreshed map.
type FolderCache struct {
	category    models.Category
	conf        structures.CategoryConfig
	store       remote.Store
	codec       *MetadataCodec
	classifier  *Classifier
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
	logger      providers.Logger
	metrics     providers.MetricsProviderInterface
	now         func() time.Time

	rootMu sync.Mutex
	rootID string

	snapshot   atomic.Pointer[models.CategoryMetadata]
	lastReport atomic.Pointer[RefreshReport]
	group      singleflight.Group
}

const defaultRefreshTimeout = 2 * time.Minute

func NewFolderCache(conf structures.CategoryConfig, store remote.Store, limiter *rate.Limiter, refresh structures.RefreshConfig, logger providers.Logger, metrics providers.MetricsProviderInterface) *FolderCache {
	concurrency := refresh.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	timeout := refresh.Timeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	return &FolderCache{
		category:    models.Category(conf.Name),
		conf:        conf,
		store:       store,
		codec:       NewMetadataCodec(logger),
		classifier:  NewClassifier(conf.SubTypes),
		limiter:     limiter,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (c *FolderCache) Category() models.Category {
	return c.category
}

// Snapshot returns the currently published metadata, or nil before the first refresh.
// The returned value must be treated as read-only.
func (c *FolderCache) Snapshot() *models.CategoryMetadata {
	return c.snapshot.Load()
}

func (c *FolderCache) LastReport() *RefreshReport {
	return c.lastReport.Load()
}

// Invalidate drops the published snapshot so the next ListDates reloads it.
func (c *FolderCache) Invalidate() {
	c.snapshot.Store(nil)
}

// ListDates returns the date folders most recent first, refreshing when forced
// or when nothing has been loaded yet. A refresh ending in ErrConsistency still
// returns the published records together with the error.
func (c *FolderCache) ListDates(ctx context.Context, opts ListOptions) ([]models.DateFolderRecord, error) {
	snap := c.snapshot.Load()
	var err error
	if opts.ForceRefresh || snap == nil {
		snap, _, err = c.Refresh(ctx)
		if snap == nil {
			return nil, err
		}
	}

	records := snap.Sorted()
	if !opts.RestrictToDate.IsZero() {
		key := models.DateKey(models.DateOf(opts.RestrictToDate))
		filtered := records[:0]
		for _, r := range records {
			if r.Key() == key {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	return records, err
}

type refreshResult struct {
	meta   *models.CategoryMetadata
	report *RefreshReport
}

// Refresh re-reads the metadata record and every date folder, then publishes the new snapshot.
// Concurrent callers share one in-flight refresh. It runs detached from the
// cancellation of whichever caller started it, bounded by the refresh timeout.
func (c *FolderCache) Refresh(ctx context.Context) (*models.CategoryMetadata, *RefreshReport, error) {
	v, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.refresh(refreshCtx)
	})
	res, _ := v.(*refreshResult)
	if res == nil {
		return nil, nil, err
	}
	return res.meta, res.report, err
}

func (c *FolderCache) refresh(ctx context.Context) (*refreshResult, error) {
	started := time.Now()
	cat := string(c.category)
	prev := c.snapshot.Load()

	rootID, err := c.resolveRoot(ctx)
	if err != nil {
		c.metrics.ObserveRefreshDuration(cat, "unavailable", time.Since(started))
		return nil, err
	}

	var consistencyErr error
	rec, err := c.loadRecord(ctx, rootID)
	if errors.Is(err, ErrConsistency) {
		consistencyErr = err
	} else if err != nil {
		c.metrics.ObserveRefreshDuration(cat, "unavailable", time.Since(started))
		return nil, err
	}

	report := &RefreshReport{Category: cat}
	if consistencyErr != nil {
		report.Malformed = consistencyErr.Error()
	}

	jobs := c.planJobs(rec, prev)
	results := make([]folderResult, len(jobs))
	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i := range jobs {
		i := i
		g.Go(func() error {
			results[i] = c.buildRecord(ctx, jobs[i], prev)
			return nil
		})
	}
	_ = g.Wait()

	meta := &models.CategoryMetadata{
		Category:     c.category,
		RootFolderID: rootID,
		DateFolders:  make(map[string]models.DateFolderRecord, len(results)),
		CreatedAt:    c.createdAt(rec, prev),
	}
	for _, res := range results {
		report.Degraded = append(report.Degraded, res.issues...)
		if res.repaired {
			report.Repaired++
		}
		if res.dropped {
			report.Dropped++
			c.logger.Infof(providers.TypeApp, "[%s] date folder %s deleted in store, dropping it", cat, res.record.Key())
			continue
		}
		if res.retained {
			report.Retained++
			c.logger.Warnf(providers.TypeApp, "[%s] date folder %s missing from metadata record, retaining it", cat, res.record.Key())
		}
		meta.DateFolders[res.record.Key()] = res.record
	}
	report.Folders = len(meta.DateFolders)

	c.snapshot.Store(meta)
	c.lastReport.Store(report)

	outcome := "ok"
	if report.Partial() {
		outcome = "partial"
		c.metrics.IncDegradedRecords(cat, len(report.Degraded))
		for _, issue := range report.Degraded {
			c.logger.Warnf(providers.TypeApp, "[%s] %s on %s (%s): %s", cat, issue.Kind, issue.DateKey, issue.FolderID, issue.Err)
		}
	}
	c.metrics.SetDateFolders(cat, len(meta.DateFolders))
	c.metrics.ObserveRefreshDuration(cat, outcome, time.Since(started))
	c.logger.Debugf(providers.TypeApp, "[%s] refreshed %d date folders in %s", cat, report.Folders, time.Since(started))

	return &refreshResult{meta: meta, report: report}, consistencyErr
}

func (c *FolderCache) resolveRoot(ctx context.Context) (string, error) {
	c.rootMu.Lock()
	defer c.rootMu.Unlock()
	if c.rootID != "" {
		return c.rootID, nil
	}

	folders, err := c.store.FindFolders(ctx, c.conf.RootFolder, "")
	if err != nil {
		return "", fmt.Errorf("%w: finding root folder %s: %v", ErrRemoteUnavailable, c.conf.RootFolder, err)
	}
	if len(folders) > 0 {
		c.rootID = folders[0].ID
		return c.rootID, nil
	}

	folder, err := c.store.CreateFolder(ctx, c.conf.RootFolder, "")
	if err != nil {
		return "", fmt.Errorf("%w: creating root folder %s: %v", ErrRemoteUnavailable, c.conf.RootFolder, err)
	}
	c.logger.Infof(providers.TypeApp, "[%s] created root folder %s (%s)", c.category, c.conf.RootFolder, folder.ID)
	c.rootID = folder.ID
	return c.rootID, nil
}

// loadRecord fetches and decodes the metadata record. A missing record is an
// empty one; a malformed record is replaced by an empty one and returned
// together with an ErrConsistency error.
func (c *FolderCache) loadRecord(ctx context.Context, rootID string) (*models.MetadataRecord, error) {
	files, err := c.store.ListFiles(ctx, rootID)
	if err != nil {
		return nil, fmt.Errorf("%w: listing root %s: %v", ErrRemoteUnavailable, rootID, err)
	}

	var fileID string
	for _, f := range files {
		if f.Name == c.conf.MetadataFile && f.MimeType != remote.FolderMimeType {
			fileID = f.ID
			break
		}
	}
	if fileID == "" {
		c.logger.Debugf(providers.TypeApp, "[%s] no metadata record %s, treating as empty", c.category, c.conf.MetadataFile)
		return models.NewEmptyMetadataRecord(rootID, ""), nil
	}

	data, err := c.store.GetFileContent(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrRemoteUnavailable, c.conf.MetadataFile, err)
	}

	rec, err := c.codec.Decode(data)
	if err != nil {
		c.logger.Errorf(providers.TypeApp, "[%s] %s unusable, falling back to empty record: %s", c.category, c.conf.MetadataFile, err)
		return models.NewEmptyMetadataRecord(rootID, ""), err
	}
	if rec.RootFolderID != "" && rec.RootFolderID != rootID {
		c.logger.Warnf(providers.TypeApp, "[%s] metadata names root %s, keeping resolved root %s", c.category, rec.RootFolderID, rootID)
	}
	return rec, nil
}

func (c *FolderCache) createdAt(rec *models.MetadataRecord, prev *models.CategoryMetadata) time.Time {
	if rec.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, rec.CreatedAt); err == nil {
			return t.UTC()
		}
	}
	if prev != nil {
		return prev.CreatedAt
	}
	return c.now().UTC()
}

type folderJob struct {
	date     time.Time
	folderID string
	// retained marks a folder known from an earlier snapshot but absent from the record.
	retained bool
}

func (c *FolderCache) planJobs(rec *models.MetadataRecord, prev *models.CategoryMetadata) []folderJob {
	entries := c.codec.datedEntries(rec)
	jobs := make([]folderJob, 0, len(entries))
	for _, e := range entries {
		jobs = append(jobs, folderJob{date: e.date, folderID: e.entry.FolderID})
	}
	if prev == nil {
		return jobs
	}
	for key, old := range prev.DateFolders {
		if _, ok := entries[key]; ok {
			continue
		}
		jobs = append(jobs, folderJob{date: old.DisplayDate, folderID: old.FolderID, retained: true})
	}
	return jobs
}

type folderResult struct {
	record   models.DateFolderRecord
	issues   []RecordIssue
	repaired bool
	retained bool
	dropped  bool
}

func (c *FolderCache) buildRecord(ctx context.Context, job folderJob, prev *models.CategoryMetadata) folderResult {
	res := folderResult{
		record:   models.DateFolderRecord{DisplayDate: job.date, FolderID: job.folderID},
		retained: job.retained,
	}
	key := res.record.Key()
	var previous *models.DateFolderRecord
	if prev != nil {
		if old, ok := prev.DateFolders[key]; ok && old.FolderID == job.folderID {
			previous = &old
		}
	}
	issue := func(kind IssueKind, err error) {
		res.issues = append(res.issues, RecordIssue{DateKey: key, FolderID: job.folderID, Kind: kind, Err: err.Error()})
	}

	folder, err := c.store.GetFolder(ctx, job.folderID)
	notFound := errors.Is(err, remote.ErrNotFound)
	if job.retained && (notFound || (err == nil && folder.Trashed)) {
		res.dropped = true
		return res
	}
	if err != nil {
		issue(IssueFolderDetail, err)
		if previous != nil {
			res.record.FolderLink = previous.FolderLink
		}
	} else {
		res.record.FolderLink = folder.WebViewLink
		res.record.Accessible = folder.HasPrincipal(c.store.Identity())
	}

	if err == nil && !res.record.Accessible {
		if err := c.repairAccess(ctx, job.folderID); err != nil {
			c.metrics.IncRepairFailures(string(c.category))
			issue(IssuePermissionRepair, err)
		} else {
			res.record.Accessible = true
			res.repaired = true
		}
	}

	files, err := c.store.ListFiles(ctx, job.folderID)
	if err != nil {
		issue(IssueFileListing, err)
		if previous != nil {
			res.record.ImageCount = previous.ImageCount
			res.record.VideoCount = previous.VideoCount
			res.record.ItemCount = previous.ItemCount
			res.record.SubTypeCounts = previous.Clone().SubTypeCounts
		}
		return res
	}
	c.classifier.Apply(&res.record, files)
	return res
}

// repairAccess grants the engine's own identity writer access, throttled by the shared limiter.
func (c *FolderCache) repairAccess(ctx context.Context, folderID string) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrPermissionRepairFailed, err)
		}
	}
	perm := remote.Permission{
		Type:         remote.PermissionTypeUser,
		Role:         remote.RoleWriter,
		EmailAddress: c.store.Identity(),
	}
	if err := c.store.CreatePermission(ctx, folderID, perm, false); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionRepairFailed, err)
	}
	return nil
}

// ShareRoot grants principal writer access to the category root. It does not touch the snapshot.
func (c *FolderCache) ShareRoot(ctx context.Context, principal string) error {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return errors.New("share: empty principal")
	}
	rootID, err := c.resolveRoot(ctx)
	if err != nil {
		return err
	}

	if root, err := c.store.GetFolder(ctx, rootID); err == nil && root.HasPrincipal(principal) {
		c.logger.Debugf(providers.TypeApp, "[%s] root already shared with %s", c.category, principal)
		return nil
	}

	perm := remote.Permission{
		Type:         remote.PermissionTypeUser,
		Role:         remote.RoleWriter,
		EmailAddress: principal,
	}
	if err := c.store.CreatePermission(ctx, rootID, perm, true); err != nil {
		return fmt.Errorf("sharing %s root with %s: %w", c.category, principal, err)
	}
	c.logger.Infof(providers.TypeApp, "[%s] shared root folder with %s", c.category, principal)
	return nil
}
