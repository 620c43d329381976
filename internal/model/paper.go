package model

import "strings"

// Paper identifies the document being analyzed
type Paper struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Authors         []string `json:"authors"`
	Journal         string   `json:"journal,omitempty"`
	DOI             string   `json:"doi,omitempty"`
	Abstract        string   `json:"abstract,omitempty"`
	PublicationDate string   `json:"publicationDate,omitempty"`
	URL             string   `json:"url,omitempty"`
	Year            int      `json:"year,omitempty"`
	DocumentType    string   `json:"documentType,omitempty"` // From registry metadata when known
	Field           string   `json:"field,omitempty"`        // From registry metadata when known
	OpenAlexID      string   `json:"openAlexId,omitempty"`
}

// UploadPrefix marks papers that came from a local upload and are never cached
const UploadPrefix = "file-"

// IsUpload reports whether the paper came from a local file
func (p Paper) IsUpload() bool {
	return strings.HasPrefix(p.ID, UploadPrefix)
}
