package violation

import (
	"safetywatch/internal/models"
	"safetywatch/internal/remote"
	"safetywatch/internal/structures"
	"strings"
)

// Classifier derives per-folder counts from a file listing using MIME prefixes and filename tags only.
type Classifier struct {
	subTypes []structures.SubTypeConfig
}

func NewClassifier(subTypes []structures.SubTypeConfig) *Classifier {
	normalized := make([]structures.SubTypeConfig, 0, len(subTypes))
	for _, st := range subTypes {
		normalized = append(normalized, structures.SubTypeConfig{
			Name: st.Name,
			Tag:  strings.ToLower(st.Tag),
		})
	}
	return &Classifier{subTypes: normalized}
}

// Apply sets the count fields of rec from files.
func (c *Classifier) Apply(rec *models.DateFolderRecord, files []remote.File) {
	rec.ImageCount = 0
	rec.VideoCount = 0
	rec.ItemCount = len(files)
	rec.SubTypeCounts = nil
	if len(c.subTypes) > 0 {
		rec.SubTypeCounts = make(map[string]int, len(c.subTypes))
		for _, st := range c.subTypes {
			rec.SubTypeCounts[st.Name] = 0
		}
	}

	for _, f := range files {
		mime := strings.ToLower(f.MimeType)
		switch {
		case strings.HasPrefix(mime, "image/"):
			rec.ImageCount++
		case strings.HasPrefix(mime, "video/"):
			rec.VideoCount++
		}

		name := strings.ToLower(f.Name)
		for _, st := range c.subTypes {
			if strings.Contains(name, st.Tag) {
				rec.SubTypeCounts[st.Name]++
			}
		}
	}
}
