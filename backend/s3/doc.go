/*
Package s3 AWS S3 VFS implementation.

# Usage

Rely on github.com/smartfs/smartfs/backend/all to load the backend, or load it
directly:

	import _ "github.com/smartfs/smartfs/backend/s3"

The backend resolves URIs of the form:

	s3://bucket/path/to/file.txt

# Authentication

Authentication, by default, occurs automatically when the client is created.
It looks for credentials in the following order:

 1. StaticProvider - set of credentials which are set programmatically
 2. EnvProvider - credentials from the environment variables of the running
    process (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION, etc)
 3. SharedCredentialsProvider - profile in the shared credentials file
    ($HOME/.aws/credentials)
 4. RemoteCredProvider - credentials from the EC2 or ECS role attached to the
    running instance

Explicit credentials, an assumable role ARN, a custom endpoint (minio,
localstack), and path-style addressing may all be supplied through Options:

	backend.SetOptions(s3.Scheme, s3.Options{
	    AccessKeyID:     "key",
	    SecretAccessKey: "secret",
	    Region:          "us-west-2",
	})

# Semantics

Objects live in a flat key namespace; directories are emulated from common
key prefixes in listings. Uploads larger than one chunk go through the
multipart API with concurrent part transfers; a failed upload is aborted so
no partial object remains visible. Copy between two s3 paths uses the
server-side CopyObject call and never streams bytes through this process.
*/
package s3
