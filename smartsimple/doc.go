// Package smartsimple is the convenience facade over the backend registry:
// every operation takes a URI string, resolves the backend handle for its
// scheme and authority, and delegates.
//
//	f, err := smartsimple.NewFile("s3://bucket/some/path/file.txt")
//	...
//	names, err := smartsimple.List(ctx, "sftp://user@host.com/logs/")
//	...
//	matches, err := smartsimple.Glob(ctx, "mem://vol/data/**/*.csv")
//
// Schemeless input is treated as a local path, so "some/dir/file.txt" works
// from a shell. Backends needing credentials must be configured first, either
// through the config package or backend.SetOptions.
package smartsimple
