package models

// MetadataRecordVersion is the schema written by current uploaders.
// Version 1 records stored date_folders values as a bare folder id.
const MetadataRecordVersion = 2

// DateFolderEntry is one date folder as listed in the persisted metadata record.
type DateFolderEntry struct {
	FolderID    string `json:"folder_id"`
	DisplayDate string `json:"display_date"`
}

// MetadataRecord is the JSON document kept next to a category's date folders in the store.
type MetadataRecord struct {
	Version      int                         `json:"version,omitempty"`
	RootFolderID string                      `json:"root_folder_id"`
	DateFolders  map[string]*DateFolderEntry `json:"date_folders"`
	CreatedAt    string                      `json:"created_at"`
}

func NewEmptyMetadataRecord(rootFolderID, createdAt string) *MetadataRecord {
	return &MetadataRecord{
		Version:      MetadataRecordVersion,
		RootFolderID: rootFolderID,
		DateFolders:  make(map[string]*DateFolderEntry),
		CreatedAt:    createdAt,
	}
}
