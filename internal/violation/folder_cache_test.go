package violation

import (
	"context"
	"errors"
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/remote"
	"safetywatch/internal/structures"
	"safetywatch/internal/testutil"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const engineIdentity = "engine@safetywatch.test"

func workerCategory() structures.CategoryConfig {
	return structures.DefaultCategories()[0]
}

type cacheFixture struct {
	store   *testutil.MockStore
	rootID  string
	logger  *testutil.MockLogger
	metrics *testutil.MockMetrics
	cache   *FolderCache
	folders map[string]string // display date -> folder id
}

func newCacheFixture(t *testing.T) *cacheFixture {
	t.Helper()
	store := testutil.NewMockStore(engineIdentity)
	f := &cacheFixture{
		store:   store,
		rootID:  store.AddFolder(workerCategory().RootFolder, "", true),
		logger:  &testutil.MockLogger{},
		metrics: &testutil.MockMetrics{},
		folders: make(map[string]string),
	}
	f.cache = NewFolderCache(workerCategory(), store, rate.NewLimiter(rate.Inf, 1), structures.RefreshConfig{Concurrency: 4}, f.logger, f.metrics)
	return f
}

// addDate creates a date folder holding the given file names. Names ending in
// .mp4 are videos, everything else is an image.
func (f *cacheFixture) addDate(display string, accessible bool, names ...string) string {
	id := f.store.AddFolder(display, f.rootID, accessible)
	for _, n := range names {
		mime := "image/jpeg"
		if strings.HasSuffix(n, ".mp4") {
			mime = "video/mp4"
		}
		f.store.AddFile(id, n, mime)
	}
	f.folders[display] = id
	return id
}

func (f *cacheFixture) writeRecord(displays ...string) {
	keys := append([]string(nil), displays...)
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, d := range keys {
		parts = append(parts, fmt.Sprintf(`%q: {"folder_id": %q, "display_date": %q}`, d, f.folders[d], d))
	}
	data := fmt.Sprintf(`{"version": 2, "root_folder_id": %q, "date_folders": {%s}, "created_at": "2026-09-01T08:00:00Z"}`,
		f.rootID, strings.Join(parts, ", "))
	f.store.PutContent(f.rootID, workerCategory().MetadataFile, []byte(data))
}

func date(display string) time.Time {
	d, err := models.ParseDisplayDate(display)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFolderCache_ListDates_SortedDescending(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/03/2026", true, "a_no-mask.jpg")
	f.addDate("10/12/2026", true, "b_no-mask.jpg", "c_no-gloves.jpg", "d.mp4")
	f.addDate("09/28/2026", true)
	f.writeRecord("10/03/2026", "10/12/2026", "09/28/2026")

	records, err := f.cache.ListDates(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	for i := 1; i < len(records); i++ {
		assert.True(t, records[i-1].DisplayDate.After(records[i].DisplayDate))
	}
	latest := records[0]
	assert.Equal(t, date("10/12/2026"), latest.DisplayDate)
	assert.Equal(t, 2, latest.ImageCount)
	assert.Equal(t, 1, latest.VideoCount)
	assert.Equal(t, 3, latest.ItemCount)
	assert.Equal(t, map[string]int{"mask": 1, "gloves": 1}, latest.SubTypeCounts)
	assert.True(t, latest.Accessible)
	assert.Equal(t, "https://drive.test/"+f.folders["10/12/2026"], latest.FolderLink)
	assert.Equal(t, 3, f.metrics.DateFolders["worker"])
}

func TestFolderCache_ListDates_UsesSnapshotUntilForced(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/03/2026", true, "a.jpg")
	f.writeRecord("10/03/2026")
	ctx := context.Background()

	_, err := f.cache.ListDates(ctx, ListOptions{})
	require.NoError(t, err)
	f.store.AddFile(f.folders["10/03/2026"], "b.jpg", "image/jpeg")

	records, err := f.cache.ListDates(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, records[0].ImageCount)

	records, err = f.cache.ListDates(ctx, ListOptions{ForceRefresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, records[0].ImageCount)

	f.cache.Invalidate()
	assert.Nil(t, f.cache.Snapshot())
}

func TestFolderCache_ListDates_RestrictToDate(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/03/2026", true, "a.jpg")
	f.addDate("10/04/2026", true, "a.jpg", "b.jpg")
	f.writeRecord("10/03/2026", "10/04/2026")

	records, err := f.cache.ListDates(context.Background(), ListOptions{RestrictToDate: time.Date(2026, time.October, 4, 17, 0, 0, 0, time.Local)})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].ImageCount)

	records, err = f.cache.ListDates(context.Background(), ListOptions{RestrictToDate: date("10/05/2026")})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFolderCache_MissingRecordIsEmpty(t *testing.T) {
	f := newCacheFixture(t)

	records, err := f.cache.ListDates(context.Background(), ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, f.rootID, f.cache.Snapshot().RootFolderID)
}

func TestFolderCache_CreatesRootWhenMissing(t *testing.T) {
	store := testutil.NewMockStore(engineIdentity)
	cache := NewFolderCache(workerCategory(), store, nil, structures.RefreshConfig{Concurrency: 1}, &testutil.MockLogger{}, &testutil.MockMetrics{})

	meta, _, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.CallCount("CreateFolder"))
	assert.NotEmpty(t, meta.RootFolderID)

	_, _, err = cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, store.CallCount("FindFolders"))
	assert.Equal(t, 1, store.CallCount("CreateFolder"))
}

func TestFolderCache_RemoteUnavailable(t *testing.T) {
	f := newCacheFixture(t)
	f.store.FindErr = errors.New("connection reset")

	records, err := f.cache.ListDates(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Nil(t, records)
	assert.Nil(t, f.cache.Snapshot())
	assert.Equal(t, 1, f.metrics.Refreshes["worker:unavailable"])
}

func TestFolderCache_RecordReadFailureKeepsSnapshot(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/03/2026", true, "a.jpg")
	f.writeRecord("10/03/2026")
	ctx := context.Background()
	_, _, err := f.cache.Refresh(ctx)
	require.NoError(t, err)
	before := f.cache.Snapshot()

	f.store.ContentErr = errors.New("503 backend error")
	_, _, err = f.cache.Refresh(ctx)
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.Same(t, before, f.cache.Snapshot())
}

func TestFolderCache_RepairFailureOnlyDegradesThatFolder(t *testing.T) {
	f := newCacheFixture(t)
	broken := f.addDate("10/01/2026", false, "a.jpg", "b.jpg")
	f.addDate("10/02/2026", false, "c.jpg")
	f.addDate("10/03/2026", true, "d.jpg", "e.mp4")
	f.writeRecord("10/01/2026", "10/02/2026", "10/03/2026")
	f.store.PermissionErr[broken] = errors.New("403 rate limit exceeded")

	meta, report, err := f.cache.Refresh(context.Background())
	require.NoError(t, err)

	byKey := meta.DateFolders
	require.Len(t, byKey, 3)

	assert.False(t, byKey["2026-10-01"].Accessible)
	assert.Equal(t, 2, byKey["2026-10-01"].ImageCount)

	assert.True(t, byKey["2026-10-02"].Accessible)
	assert.Equal(t, 1, byKey["2026-10-02"].ImageCount)

	assert.True(t, byKey["2026-10-03"].Accessible)
	assert.Equal(t, 1, byKey["2026-10-03"].ImageCount)
	assert.Equal(t, 1, byKey["2026-10-03"].VideoCount)

	assert.Equal(t, 1, report.Repaired)
	require.Len(t, report.Degraded, 1)
	assert.Equal(t, IssuePermissionRepair, report.Degraded[0].Kind)
	assert.Equal(t, broken, report.Degraded[0].FolderID)
	assert.True(t, report.Partial())
	assert.Equal(t, 1, f.metrics.RepairFailures)
	assert.Equal(t, 1, f.metrics.Refreshes["worker:partial"])

	require.Len(t, f.store.Permissions, 1)
	assert.Equal(t, remote.RoleWriter, f.store.Permissions[0].Permission.Role)
	assert.Equal(t, engineIdentity, f.store.Permissions[0].Permission.EmailAddress)
	assert.False(t, f.store.Permissions[0].Notify)
}

func TestFolderCache_DetailFailureSkipsRepair(t *testing.T) {
	f := newCacheFixture(t)
	unreadable := f.addDate("10/01/2026", false, "a.jpg", "b.jpg")
	f.addDate("10/02/2026", true, "c.jpg")
	f.writeRecord("10/01/2026", "10/02/2026")
	f.store.GetFolderErr[unreadable] = errors.New("500 backend error")

	meta, report, err := f.cache.Refresh(context.Background())
	require.NoError(t, err)

	rec := meta.DateFolders["2026-10-01"]
	assert.False(t, rec.Accessible)
	assert.Equal(t, 2, rec.ImageCount)
	assert.True(t, meta.DateFolders["2026-10-02"].Accessible)

	assert.Equal(t, 0, report.Repaired)
	require.Len(t, report.Degraded, 1)
	assert.Equal(t, IssueFolderDetail, report.Degraded[0].Kind)
	assert.Equal(t, unreadable, report.Degraded[0].FolderID)
	assert.Empty(t, f.store.Permissions)
	assert.Equal(t, 0, f.store.CallCount("CreatePermission"))
}

// cancellableStore fails every read once its context is done, like a real remote.
type cancellableStore struct {
	*testutil.MockStore
}

func (s cancellableStore) FindFolders(ctx context.Context, name, parentID string) ([]remote.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MockStore.FindFolders(ctx, name, parentID)
}

func (s cancellableStore) GetFileContent(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MockStore.GetFileContent(ctx, id)
}

func (s cancellableStore) ListFiles(ctx context.Context, parentID string) ([]remote.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.MockStore.ListFiles(ctx, parentID)
}

func TestFolderCache_RefreshOutlivesCallerCancellation(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/03/2026", true, "a.jpg")
	f.writeRecord("10/03/2026")
	cache := NewFolderCache(workerCategory(), cancellableStore{f.store}, nil, structures.RefreshConfig{Concurrency: 1}, f.logger, f.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	meta, report, err := cache.Refresh(ctx)
	require.NoError(t, err)
	require.Len(t, meta.DateFolders, 1)
	assert.Equal(t, 1, meta.DateFolders["2026-10-03"].ImageCount)
	assert.False(t, report.Partial())
	assert.Same(t, meta, cache.Snapshot())
}

func TestFolderCache_RefreshTimeoutDefaults(t *testing.T) {
	store := testutil.NewMockStore(engineIdentity)
	cache := NewFolderCache(workerCategory(), store, nil, structures.RefreshConfig{}, &testutil.MockLogger{}, &testutil.MockMetrics{})
	assert.Equal(t, defaultRefreshTimeout, cache.timeout)
	assert.Equal(t, 1, cache.concurrency)

	cache = NewFolderCache(workerCategory(), store, nil, structures.RefreshConfig{Concurrency: 3, Timeout: time.Second}, &testutil.MockLogger{}, &testutil.MockMetrics{})
	assert.Equal(t, time.Second, cache.timeout)
	assert.Equal(t, 3, cache.concurrency)
}

func TestFolderCache_RefreshIsIdempotent(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/01/2026", false, "a_no-mask.jpg")
	f.addDate("10/02/2026", true, "b_no-gloves.jpg", "c.mp4")
	f.writeRecord("10/01/2026", "10/02/2026")
	ctx := context.Background()

	first, _, err := f.cache.Refresh(ctx)
	require.NoError(t, err)
	second, report, err := f.cache.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Sorted(), second.Sorted())
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Equal(t, 0, report.Repaired)
	assert.False(t, report.Partial())
}

func TestFolderCache_ListingFailureKeepsPreviousCounts(t *testing.T) {
	f := newCacheFixture(t)
	id := f.addDate("10/01/2026", true, "a_no-mask.jpg", "b.jpg")
	f.writeRecord("10/01/2026")
	ctx := context.Background()
	_, _, err := f.cache.Refresh(ctx)
	require.NoError(t, err)

	f.store.ListFilesErr[id] = errors.New("timeout")
	meta, report, err := f.cache.Refresh(ctx)
	require.NoError(t, err)

	rec := meta.DateFolders["2026-10-01"]
	assert.Equal(t, 2, rec.ImageCount)
	assert.Equal(t, 1, rec.SubTypeCounts["mask"])
	require.Len(t, report.Degraded, 1)
	assert.Equal(t, IssueFileListing, report.Degraded[0].Kind)
}

func TestFolderCache_MalformedRecordFallsBackAndKeepsFolders(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/01/2026", true, "a.jpg")
	f.addDate("10/02/2026", true, "b.jpg")
	f.writeRecord("10/01/2026", "10/02/2026")
	ctx := context.Background()
	_, err := f.cache.ListDates(ctx, ListOptions{})
	require.NoError(t, err)

	f.store.PutContent(f.rootID, workerCategory().MetadataFile, []byte(`{"root_folder_id": "x"}`))
	records, err := f.cache.ListDates(ctx, ListOptions{ForceRefresh: true})

	assert.ErrorIs(t, err, ErrConsistency)
	require.Len(t, records, 2)
	report := f.cache.LastReport()
	assert.NotEmpty(t, report.Malformed)
	assert.Equal(t, 2, report.Retained)
}

func TestFolderCache_MalformedRecordOnFirstLoad(t *testing.T) {
	f := newCacheFixture(t)
	f.store.PutContent(f.rootID, workerCategory().MetadataFile, []byte(`not json`))

	records, err := f.cache.ListDates(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, ErrConsistency)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestFolderCache_MissingDateRetainedUntilDeleted(t *testing.T) {
	f := newCacheFixture(t)
	f.addDate("10/01/2026", true, "a.jpg")
	gone := f.addDate("10/02/2026", true, "b.jpg")
	f.writeRecord("10/01/2026", "10/02/2026")
	ctx := context.Background()
	_, _, err := f.cache.Refresh(ctx)
	require.NoError(t, err)

	f.writeRecord("10/01/2026")
	meta, report, err := f.cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, meta.DateFolders, 2)
	assert.Equal(t, 1, report.Retained)

	f.store.TrashFolder(gone)
	meta, report, err = f.cache.Refresh(ctx)
	require.NoError(t, err)
	assert.Len(t, meta.DateFolders, 1)
	assert.Equal(t, 1, report.Dropped)
	assert.NotContains(t, meta.DateFolders, "2026-10-02")
}

func TestFolderCache_LegacyRecord(t *testing.T) {
	f := newCacheFixture(t)
	id := f.addDate("10/01/2026", true, "a.jpg")
	f.store.PutContent(f.rootID, workerCategory().MetadataFile,
		[]byte(fmt.Sprintf(`{"root_folder_id": %q, "date_folders": {"10/01/2026": %q}}`, f.rootID, id)))

	records, err := f.cache.ListDates(context.Background(), ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, id, records[0].FolderID)
	assert.Equal(t, 1, records[0].ImageCount)
}

func TestFolderCache_ConcurrentReadersSeeCompleteSnapshots(t *testing.T) {
	f := newCacheFixture(t)
	for d := 1; d <= 9; d++ {
		f.addDate(fmt.Sprintf("10/%02d/2026", d), true, "a.jpg", "b.jpg")
	}
	displays := make([]string, 0, len(f.folders))
	for d := range f.folders {
		displays = append(displays, d)
	}
	f.writeRecord(displays...)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			records, err := f.cache.ListDates(ctx, ListOptions{ForceRefresh: i%2 == 0})
			assert.NoError(t, err)
			assert.Len(t, records, 9)
		}()
	}
	wg.Wait()
}

func TestFolderCache_ShareRoot(t *testing.T) {
	f := newCacheFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.ShareRoot(ctx, " supervisor@plant.test "))
	require.Len(t, f.store.Permissions, 1)
	call := f.store.Permissions[0]
	assert.Equal(t, f.rootID, call.FileID)
	assert.Equal(t, "supervisor@plant.test", call.Permission.EmailAddress)
	assert.True(t, call.Notify)

	require.NoError(t, f.cache.ShareRoot(ctx, "supervisor@plant.test"))
	assert.Len(t, f.store.Permissions, 1)
	assert.Nil(t, f.cache.Snapshot())

	assert.Error(t, f.cache.ShareRoot(ctx, ""))
}
