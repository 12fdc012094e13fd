/*
Package os built-in os lib VFS implementation.

# Usage

Rely on github.com/smartfs/smartfs/backend/all to load the backend, or load it
directly:

	import _ "github.com/smartfs/smartfs/backend/os"

The backend resolves URIs of the form:

	file:///absolute/path/to/file.txt

The authority portion is always empty; paths are absolute on the local disk.

# Semantics

Writes go to a temporary file in the destination directory and are renamed
over the target on Close, so readers never observe a half-written file.
Rename falls back to copy+delete when source and target live on different
devices.
*/
package os
