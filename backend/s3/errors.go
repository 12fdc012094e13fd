package s3

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/smartfs/smartfs"
)

// translateError maps aws-sdk API errors onto the backend-neutral sentinels
// so callers can use errors.Is without knowing which backend they hit.
func translateError(op, uri string, err error) error {
	if err == nil {
		return nil
	}

	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) || errors.As(err, &notFound) {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrNotExist)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound", "404":
			return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrNotExist)
		case "AccessDenied", "AccessDeniedException", "AllAccessDisabled", "Forbidden", "403":
			return fmt.Errorf("%s %s: %w: %s", op, uri, smartfs.ErrPermission, apiErr.ErrorMessage())
		case "InvalidBucketName":
			return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrInvalidLocation)
		}
	}
	return fmt.Errorf("%s %s: %w", op, uri, err)
}

// isNotFound reports whether err denotes a missing object or bucket.
func isNotFound(err error) bool {
	return smartfs.IsNotExist(translateError("", "", err))
}
