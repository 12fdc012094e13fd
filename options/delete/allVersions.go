// Package delete provides options for deleting files in a virtual filesystem.
package delete

import "github.com/smartfs/smartfs/options"

const optionNameDeleteAllVersions = "deleteAllVersions"

// WithAllVersions returns AllVersions implementation of DeleteOption
func WithAllVersions() options.DeleteOption {
	return AllVersions{}
}

// AllVersions represents the DeleteOption that is used to remove all versions of files when deleted.
// This will remove all versions of files for the filesystems that support file versioning.
type AllVersions struct{}

// DeleteOptionName returns the name of AllVersions option
func (w AllVersions) DeleteOptionName() string {
	return optionNameDeleteAllVersions
}
