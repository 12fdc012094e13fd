/*
Package mem built-in mem lib VFS implementation.

# Usage

Rely on github.com/smartfs/smartfs/backend/all to load the backend, or load it
directly:

	import _ "github.com/smartfs/smartfs/backend/mem"

The backend resolves URIs of the form:

	mem://volume/absolute/path/to/file.txt

Any number of named volumes may be used; a volume springs into existence the
first time something is written to it. All state lives in process memory and
is lost when the process exits, which makes this backend the natural double
for object-store backends in tests.

# Semantics

A file exists only once bytes (even zero bytes) have been committed to it via
Write+Close or Touch. Locations exist when at least one file lives at or
below them; the root location of a volume always exists.
*/
package mem
