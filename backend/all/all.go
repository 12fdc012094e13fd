// Package all imports every backend so that a single blank import registers
// the full scheme set.
package all

import (
	_ "github.com/smartfs/smartfs/backend/ftp"  // register ftp backend
	_ "github.com/smartfs/smartfs/backend/gs"   // register gs backend
	_ "github.com/smartfs/smartfs/backend/mem"  // register mem backend
	_ "github.com/smartfs/smartfs/backend/os"   // register os backend
	_ "github.com/smartfs/smartfs/backend/s3"   // register s3 backend
	_ "github.com/smartfs/smartfs/backend/sftp" // register sftp backend
)
