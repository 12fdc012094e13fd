/*
Package gs Google Cloud Storage VFS implementation.

# Usage

Rely on github.com/smartfs/smartfs/backend/all to load the backend, or load it
directly:

	import _ "github.com/smartfs/smartfs/backend/gs"

The backend resolves URIs of the form:

	gs://bucket/path/to/file.txt

# Authentication

Authentication is handled by the google cloud storage client library.
By default it uses Application Default Credentials: the
GOOGLE_APPLICATION_CREDENTIALS environment variable, gcloud user
credentials, or the metadata server on GCE/GKE. A credential file, API key,
or custom endpoint (fake-gcs-server, emulators) may be supplied through
Options.

See https://cloud.google.com/docs/authentication/production for more auth
info.

# Semantics

Objects live in a flat key namespace; directories are emulated from common
key prefixes in listings. Reads are staged through a local temp file so Seek
works without re-issuing ranged requests; writes buffer locally and upload
on Close through the client's resumable writer. Copy between two gs paths
uses the server-side copier.
*/
package gs
