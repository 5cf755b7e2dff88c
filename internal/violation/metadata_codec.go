package violation

import (
	"fmt"
	"safetywatch/internal/models"
	"safetywatch/internal/providers"
	"sort"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// MetadataCodec decodes persisted metadata records, upgrading older shapes
// to the current structured form.
type MetadataCodec struct {
	logger providers.Logger
}

func NewMetadataCodec(logger providers.Logger) *MetadataCodec {
	return &MetadataCodec{logger: logger}
}

type looseRecord struct {
	Version      int            `json:"version"`
	RootFolderID any            `json:"root_folder_id"`
	DateFolders  map[string]any `json:"date_folders"`
	CreatedAt    any            `json:"created_at"`
}

// Decode parses data into a current-version record. Any structural problem
// is reported as ErrConsistency.
func (c *MetadataCodec) Decode(data []byte) (*models.MetadataRecord, error) {
	var raw looseRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConsistency, err)
	}
	if raw.DateFolders == nil {
		return nil, fmt.Errorf("%w: date_folders missing", ErrConsistency)
	}

	rec := &models.MetadataRecord{
		Version:      models.MetadataRecordVersion,
		RootFolderID: cast.ToString(raw.RootFolderID),
		DateFolders:  make(map[string]*models.DateFolderEntry, len(raw.DateFolders)),
		CreatedAt:    cast.ToString(raw.CreatedAt),
	}

	legacy := 0
	for key, value := range raw.DateFolders {
		entry, wasLegacy, err := decodeEntry(key, value)
		if err != nil {
			return nil, fmt.Errorf("%w: date %q: %v", ErrConsistency, key, err)
		}
		if wasLegacy {
			legacy++
		}
		rec.DateFolders[key] = entry
	}

	if legacy > 0 {
		c.logger.Warnf(providers.TypeApp, "Metadata record v%d: upgraded %d plain date folder entries", raw.Version, legacy)
	}
	return rec, nil
}

func decodeEntry(key string, value any) (*models.DateFolderEntry, bool, error) {
	switch v := value.(type) {
	case map[string]any:
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, false, err
		}
		folderID := cast.ToString(m["folder_id"])
		if folderID == "" {
			return nil, false, fmt.Errorf("folder_id missing")
		}
		display := cast.ToString(m["display_date"])
		if display == "" {
			display = key
		}
		return &models.DateFolderEntry{FolderID: folderID, DisplayDate: display}, false, nil
	case nil:
		return nil, false, fmt.Errorf("empty entry")
	default:
		folderID, err := cast.ToStringE(v)
		if err != nil || folderID == "" {
			return nil, false, fmt.Errorf("unsupported entry %T", value)
		}
		return &models.DateFolderEntry{FolderID: folderID, DisplayDate: key}, true, nil
	}
}

type datedEntry struct {
	date  time.Time
	entry *models.DateFolderEntry
}

// datedEntries resolves the display date of every entry, keyed by DateKey.
// Entries whose date cannot be parsed are skipped with a warning. When two
// entries land on the same calendar date the lexically smaller record key wins.
func (c *MetadataCodec) datedEntries(rec *models.MetadataRecord) map[string]datedEntry {
	keys := make([]string, 0, len(rec.DateFolders))
	for k := range rec.DateFolders {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]datedEntry, len(keys))
	for _, k := range keys {
		entry := rec.DateFolders[k]
		date, err := models.ParseDisplayDate(entry.DisplayDate)
		if err != nil {
			date, err = models.ParseDisplayDate(k)
		}
		if err != nil {
			c.logger.Warnf(providers.TypeApp, "Skipping date folder %q: %s", k, err)
			continue
		}
		dk := models.DateKey(date)
		if _, dup := out[dk]; dup {
			c.logger.Warnf(providers.TypeApp, "Duplicate date folder for %s, ignoring %q", dk, k)
			continue
		}
		out[dk] = datedEntry{date: date, entry: entry}
	}
	return out
}
