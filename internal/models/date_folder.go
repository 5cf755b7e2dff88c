package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Category string

// DisplayDateLayout is the date format used as key in metadata records.
const DisplayDateLayout = "01/02/2006"

// DateKeyLayout is the sortable form used for in-process map keys.
const DateKeyLayout = "2006-01-02"

var acceptedDateLayouts = []string{DisplayDateLayout, DateKeyLayout}

// DateOf drops the time component, keeping the calendar date of t in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

func ParseDisplayDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

type DateFolderRecord struct {
	DisplayDate   time.Time      `json:"display_date"`
	FolderID      string         `json:"folder_id"`
	FolderLink    string         `json:"folder_link,omitempty"`
	Accessible    bool           `json:"accessible"`
	ImageCount    int            `json:"image_count"`
	VideoCount    int            `json:"video_count"`
	SubTypeCounts map[string]int `json:"sub_type_counts,omitempty"`
	ItemCount     int            `json:"item_count"`
}

func (r DateFolderRecord) Key() string {
	return DateKey(r.DisplayDate)
}

// Clone returns a copy that shares no mutable state with r.
func (r DateFolderRecord) Clone() DateFolderRecord {
	out := r
	if r.SubTypeCounts != nil {
		out.SubTypeCounts = make(map[string]int, len(r.SubTypeCounts))
		for k, v := range r.SubTypeCounts {
			out.SubTypeCounts[k] = v
		}
	}
	return out
}

type CategoryMetadata struct {
	Category     Category                    `json:"category"`
	RootFolderID string                      `json:"root_folder_id"`
	DateFolders  map[string]DateFolderRecord `json:"date_folders"`
	CreatedAt    time.Time                   `json:"created_at"`
}

// Sorted returns the date folders, most recent first.
func (m *CategoryMetadata) Sorted() []DateFolderRecord {
	if m == nil {
		return nil
	}
	out := make([]DateFolderRecord, 0, len(m.DateFolders))
	for _, r := range m.DateFolders {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplayDate.After(out[j].DisplayDate)
	})
	return out
}
