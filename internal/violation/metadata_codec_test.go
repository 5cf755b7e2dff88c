package violation

import (
	"safetywatch/internal/models"
	"safetywatch/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCodec_DecodeCurrent(t *testing.T) {
	codec := NewMetadataCodec(&testutil.MockLogger{})
	rec, err := codec.Decode([]byte(`{
		"version": 2,
		"root_folder_id": "root-1",
		"date_folders": {"10/05/2026": {"folder_id": "f1", "display_date": "10/05/2026", "uploaded_by": "cam-3"}},
		"created_at": "2026-09-01T08:00:00Z"
	}`))
	require.NoError(t, err)

	assert.Equal(t, models.MetadataRecordVersion, rec.Version)
	assert.Equal(t, "root-1", rec.RootFolderID)
	assert.Equal(t, "2026-09-01T08:00:00Z", rec.CreatedAt)
	require.Contains(t, rec.DateFolders, "10/05/2026")
	assert.Equal(t, "f1", rec.DateFolders["10/05/2026"].FolderID)
}

func TestMetadataCodec_UpgradesLegacyEntries(t *testing.T) {
	logger := &testutil.MockLogger{}
	codec := NewMetadataCodec(logger)
	rec, err := codec.Decode([]byte(`{
		"root_folder_id": "root-1",
		"date_folders": {"10/04/2026": "f0", "10/05/2026": {"folder_id": "f1"}, "10/06/2026": 12345}
	}`))
	require.NoError(t, err)

	assert.Equal(t, models.MetadataRecordVersion, rec.Version)
	assert.Equal(t, &models.DateFolderEntry{FolderID: "f0", DisplayDate: "10/04/2026"}, rec.DateFolders["10/04/2026"])
	assert.Equal(t, "10/05/2026", rec.DateFolders["10/05/2026"].DisplayDate)
	assert.Equal(t, "12345", rec.DateFolders["10/06/2026"].FolderID)
	assert.Equal(t, 1, logger.Count("warn"))
}

func TestMetadataCodec_Malformed(t *testing.T) {
	codec := NewMetadataCodec(&testutil.MockLogger{})
	cases := map[string]string{
		"not json":          `{"date_folders":`,
		"no date_folders":   `{"root_folder_id": "root-1"}`,
		"entry without id":  `{"date_folders": {"10/05/2026": {"display_date": "10/05/2026"}}}`,
		"null entry":        `{"date_folders": {"10/05/2026": null}}`,
		"unsupported entry": `{"date_folders": {"10/05/2026": [1, 2]}}`,
	}
	for name, data := range cases {
		data := data
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decode([]byte(data))
			assert.ErrorIs(t, err, ErrConsistency)
		})
	}
}

func TestMetadataCodec_DatedEntries(t *testing.T) {
	logger := &testutil.MockLogger{}
	codec := NewMetadataCodec(logger)
	rec := &models.MetadataRecord{DateFolders: map[string]*models.DateFolderEntry{
		"10/05/2026": {FolderID: "a", DisplayDate: "10/05/2026"},
		"2026-10-05": {FolderID: "b", DisplayDate: "2026-10-05"},
		"garbage":    {FolderID: "c", DisplayDate: "someday"},
		"10/06/2026": {FolderID: "d", DisplayDate: ""},
	}}

	entries := codec.datedEntries(rec)

	require.Len(t, entries, 2)
	// "10/05/2026" sorts before "2026-10-05" and wins the duplicate date.
	assert.Equal(t, "a", entries["2026-10-05"].entry.FolderID)
	assert.Equal(t, time.Date(2026, time.October, 6, 0, 0, 0, 0, time.UTC), entries["2026-10-06"].date)
	assert.Equal(t, 2, logger.Count("warn"))
}
