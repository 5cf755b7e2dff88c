package violation

import "errors"

var (
	// ErrRemoteUnavailable means the store could not serve a primary read; retry the whole refresh.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
	// ErrConsistency means the metadata record was malformed; an empty record was used instead.
	ErrConsistency = errors.New("metadata record inconsistent")
	// ErrPermissionRepairFailed marks a date folder the engine could not grant itself access to.
	ErrPermissionRepairFailed = errors.New("permission repair failed")
	ErrUnknownCategory        = errors.New("unknown category")
)

type IssueKind string

const (
	IssuePermissionRepair IssueKind = "permission_repair"
	IssueFolderDetail     IssueKind = "folder_detail"
	IssueFileListing      IssueKind = "file_listing"
)

// RecordIssue is one best-effort operation that failed for a single date folder.
type RecordIssue struct {
	DateKey  string    `json:"date"`
	FolderID string    `json:"folder_id"`
	Kind     IssueKind `json:"kind"`
	Err      string    `json:"error"`
}

// RefreshReport collects the partial failures of one refresh.
type RefreshReport struct {
	Category  string        `json:"category"`
	Folders   int           `json:"folders"`
	Repaired  int           `json:"repaired"`
	Retained  int           `json:"retained"`
	Dropped   int           `json:"dropped"`
	Degraded  []RecordIssue `json:"degraded,omitempty"`
	Malformed string        `json:"malformed,omitempty"`
}

func (r *RefreshReport) Partial() bool {
	return len(r.Degraded) > 0 || r.Malformed != ""
}
