// Package models defines the data structures shared by the cloudcast engine,
// its intake and its presentation layers.
package models

// UploadedImage is one accepted input file. The Data slice is shared with the
// engine for the duration of a run and must not be modified.
type UploadedImage struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Size returns the payload size in bytes.
func (u UploadedImage) Size() int {
	return len(u.Data)
}
