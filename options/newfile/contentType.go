package newfile

import "github.com/smartfs/smartfs/options"

const optionNameNewFileContentType = "newFileContentType"

// WithContentType returns ContentType implementation of NewFileOption
func WithContentType(contentType string) options.NewFileOption {
	ct := ContentType(contentType)
	return &ct
}

// ContentType represents the NewFileOption that is used to explicitly specify a content type on created files.
type ContentType string

// NewFileOptionName returns the name of ContentType option
func (ct *ContentType) NewFileOptionName() string {
	return optionNameNewFileContentType
}

// ContentTypeFrom extracts the content type from the given options, returning
// "" when none was supplied.
func ContentTypeFrom(opts []options.NewFileOption) string {
	for _, o := range opts {
		if ct, ok := o.(*ContentType); ok {
			return string(*ct)
		}
	}
	return ""
}
