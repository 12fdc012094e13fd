package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/stream"
)

// multipartSink implements stream.ChunkSink over the s3 multipart upload
// API. The upload is created on the first chunk; Complete assembles the
// parts in part-number order. After Complete, Abort deletes the assembled
// object so an integrity failure leaves nothing behind at the destination.
type multipartSink struct {
	client      Client
	bucket      string
	key         string
	contentType string
	acl         types.ObjectCannedACL
	sse         bool

	mu        sync.Mutex
	uploadID  string
	parts     []types.CompletedPart
	completed bool
}

func (s *multipartSink) ensureUpload(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploadID != "" {
		return s.uploadID, nil
	}

	input := &awss3.CreateMultipartUploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		ACL:    s.acl,
	}
	if s.contentType != "" {
		input.ContentType = aws.String(s.contentType)
	}
	if s.sse {
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	}

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", err
	}
	s.uploadID = aws.ToString(out.UploadId)
	return s.uploadID, nil
}

// WriteChunk uploads one part. Replays of a failed part simply overwrite it;
// s3 keeps the last upload for a given part number.
func (s *multipartSink) WriteChunk(ctx context.Context, c stream.Chunk) error {
	uploadID, err := s.ensureUpload(ctx)
	if err != nil {
		return err
	}

	out, err := s.client.UploadPart(ctx, &awss3.UploadPartInput{
		Bucket:     aws.String(s.bucket),
		Key:        aws.String(s.key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(int32(c.Part)), //nolint:gosec
		Body:       bytes.NewReader(c.Data),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.parts = append(s.parts, types.CompletedPart{
		ETag:       out.ETag,
		PartNumber: aws.Int32(int32(c.Part)), //nolint:gosec
	})
	s.mu.Unlock()
	return nil
}

// Complete assembles the uploaded parts into the final object. A transfer
// that never produced a chunk becomes a zero-length put.
func (s *multipartSink) Complete(ctx context.Context) (string, error) {
	s.mu.Lock()
	uploadID := s.uploadID
	parts := make([]types.CompletedPart, len(s.parts))
	copy(parts, s.parts)
	s.mu.Unlock()

	if uploadID == "" {
		input := &awss3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
			Body:   bytes.NewReader(nil),
			ACL:    s.acl,
		}
		if s.contentType != "" {
			input.ContentType = aws.String(s.contentType)
		}
		if _, err := s.client.PutObject(ctx, input); err != nil {
			return "", err
		}
		s.mu.Lock()
		s.completed = true
		s.mu.Unlock()
		return "", nil
	}

	sort.Slice(parts, func(i, j int) bool {
		return aws.ToInt32(parts[i].PartNumber) < aws.ToInt32(parts[j].PartNumber)
	})

	_, err := s.client.CompleteMultipartUpload(ctx, &awss3.CompleteMultipartUploadInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(s.key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: parts},
	})
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.completed = true
	s.mu.Unlock()

	// the multipart etag is a hash-of-hashes, not a digest of the object
	// bytes, so no digest is reported for verification
	return "", nil
}

// Abort abandons an in-progress upload, or deletes the assembled object when
// Complete has already run.
func (s *multipartSink) Abort(ctx context.Context) error {
	s.mu.Lock()
	uploadID := s.uploadID
	completed := s.completed
	s.mu.Unlock()

	if completed {
		_, err := s.client.DeleteObject(ctx, &awss3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.key),
		})
		return err
	}

	if uploadID == "" {
		return nil
	}
	_, err := s.client.AbortMultipartUpload(ctx, &awss3.AbortMultipartUploadInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.key),
		UploadId: aws.String(uploadID),
	})
	return err
}

// objectSource implements stream.ChunkSource using ranged GetObject calls,
// so a restarted read costs one round trip, not a re-download.
type objectSource struct {
	client Client
	bucket string
	key    string
	uri    string
}

func (s *objectSource) ReadChunkAt(ctx context.Context, offset int64, p []byte) (int, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, offset+int64(len(p))-1)),
	})
	if err != nil {
		return 0, translateError("read", s.uri, err)
	}
	defer func() { _ = out.Body.Close() }()

	n, err := io.ReadFull(out.Body, p)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		// the range ran past end of object; the bytes read are still good
		return n, nil
	}
	return n, err
}

func (s *objectSource) Size(ctx context.Context) (int64, error) {
	out, err := s.client.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("read %s: %w", s.uri, smartfs.ErrNotExist)
		}
		return 0, translateError("read", s.uri, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}
