package device

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// FileResource describes a single file stored on the device. Instances are
// produced by decoding a /files/find response and are immutable afterwards.
type FileResource struct {
	ID              string
	ETag            string
	DownloadPath    string
	FileSize        int64
	TransferredSize int64
	Created         time.Time
	Modified        time.Time
	MimeType        string
	Completed       bool
}

// FilePage is one page of catalog results. NextPageToken is the continuation
// token for the following page; 0 means there are no further pages.
type FilePage struct {
	Items         []FileResource
	NextPageToken int
}

// The device marks every field of a file resource as mandatory, so decoding
// goes through pointer-typed shadows and rejects anything missing.
type fileResourceJSON struct {
	FileSize        *int64     `json:"fileSize"`
	ID              *string    `json:"id"`
	ETag            *string    `json:"etag"`
	DownloadPath    *string    `json:"downloadPath"`
	Created         *time.Time `json:"createdDate"`
	TransferredSize *int64     `json:"transferredSize"`
	Modified        *time.Time `json:"modifiedDate"`
	MimeType        *string    `json:"mimeType"`
	Completed       *bool      `json:"completed"`
}

func (r *FileResource) UnmarshalJSON(data []byte) error {
	var raw fileResourceJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "decode file resource")
	}

	for _, f := range []struct {
		name    string
		present bool
	}{
		{"fileSize", raw.FileSize != nil},
		{"id", raw.ID != nil},
		{"etag", raw.ETag != nil},
		{"downloadPath", raw.DownloadPath != nil},
		{"createdDate", raw.Created != nil},
		{"transferredSize", raw.TransferredSize != nil},
		{"modifiedDate", raw.Modified != nil},
		{"mimeType", raw.MimeType != nil},
		{"completed", raw.Completed != nil},
	} {
		if !f.present {
			return errors.Errorf("file resource missing required field %q", f.name)
		}
	}

	*r = FileResource{
		ID:              *raw.ID,
		ETag:            *raw.ETag,
		DownloadPath:    *raw.DownloadPath,
		FileSize:        *raw.FileSize,
		TransferredSize: *raw.TransferredSize,
		Created:         *raw.Created,
		Modified:        *raw.Modified,
		MimeType:        *raw.MimeType,
		Completed:       *raw.Completed,
	}
	return nil
}

func (p *FilePage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Items         *[]FileResource `json:"items"`
		NextPageToken *int            `json:"nextPageToken"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Items == nil {
		return errors.New(`file page missing required field "items"`)
	}
	if raw.NextPageToken == nil {
		return errors.New(`file page missing required field "nextPageToken"`)
	}

	// Server order of items is preserved as-is.
	*p = FilePage{
		Items:         *raw.Items,
		NextPageToken: *raw.NextPageToken,
	}
	return nil
}
