/*
Package backend is the registry of filesystem backends.

Each backend lives in its own subpackage and registers a Factory for its URI
scheme in init(). Importing a backend package (usually blank-imported via
backend/all) makes its scheme resolvable:

	import (
		"github.com/smartfs/smartfs/backend"
		_ "github.com/smartfs/smartfs/backend/all" // register all backends
	)

	fs, err := backend.Resolve("s3", "mybucket")

Resolve caches one handle per (scheme, authority) pair. Concurrent resolves
of the same pair construct the handle exactly once; a failed construction is
not cached and is retried on the next call.

Options for a scheme (credentials, endpoints, transfer tuning) are set before
first resolution:

	backend.SetOptions("s3", s3.Options{Region: "us-west-2"})
*/
package backend
