package gs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strconv"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/smartfs/smartfs"
	"github.com/smartfs/smartfs/backend"
	"github.com/smartfs/smartfs/options"
	"github.com/smartfs/smartfs/options/delete"
	"github.com/smartfs/smartfs/utils"
)

// File implements smartfs.File for Google Cloud Storage. Reads are staged
// through a local temp file; writes buffer locally and upload on Close.
type File struct {
	fileSystem  *FileSystem
	bucket      string
	key         string
	ctx         context.Context
	contentType string

	tempFile    *os.File
	writeBuffer *bytes.Buffer
}

// Close cleans up underlying mechanisms for reading from and writing to the
// file. Closes and removes the local temp file, and triggers an upload of
// the write buffer if one was created.
func (f *File) Close() error {
	if f.tempFile != nil {
		defer func() { _ = f.tempFile.Close() }()

		if err := os.Remove(f.tempFile.Name()); err != nil && !os.IsNotExist(err) {
			return err
		}
		f.tempFile = nil
	}

	if f.writeBuffer != nil {
		handle, err := f.objectHandle()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(f.ctx)
		defer cancel()

		w := handle.NewWriter(ctx)
		if f.fileSystem.options.ChunkSize > 0 {
			w.ChunkSize = f.fileSystem.options.ChunkSize
		}
		if f.contentType != "" {
			w.ContentType = f.contentType
		}

		buffer := make([]byte, utils.TouchCopyMinBufferSize)
		if _, err := io.CopyBuffer(w, f.writeBuffer, buffer); err != nil {
			// cancelling the context discards the partial upload
			cancel()
			f.writeBuffer = nil
			return translateError("write", f.URI(), err)
		}
		if err := w.Close(); err != nil {
			f.writeBuffer = nil
			return translateError("write", f.URI(), err)
		}
	}

	f.writeBuffer = nil
	return nil
}

// Read implements the standard for io.Reader. A temporary local copy of the
// object is created and reads work on that; it is removed by Close.
func (f *File) Read(p []byte) (int, error) {
	if err := f.checkTempFile(); err != nil {
		return 0, err
	}
	return f.tempFile.Read(p)
}

// Seek implements the standard for io.Seeker, acting on the same local copy
// reads use.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if err := f.checkTempFile(); err != nil {
		return 0, err
	}
	return f.tempFile.Seek(offset, whence)
}

// Write implements the standard for io.Writer. A buffer is added to with
// each subsequent write; Close uploads the buffered contents.
func (f *File) Write(data []byte) (int, error) {
	if f.writeBuffer == nil {
		f.writeBuffer = bytes.NewBuffer([]byte{})
	}
	return f.writeBuffer.Write(data)
}

// String returns the file URI string.
func (f *File) String() string {
	return f.URI()
}

// Exists returns a boolean of whether the object exists in GCS.
func (f *File) Exists() (bool, error) {
	_, err := f.objectAttrs()
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, translateError("stat", f.URI(), err)
	}
	return true, nil
}

// Stat returns the object's DirEntry built from its GCS attributes.
func (f *File) Stat() (smartfs.DirEntry, error) {
	attrs, err := f.objectAttrs()
	if err != nil {
		return smartfs.DirEntry{}, translateError("stat", f.URI(), err)
	}
	return entryFromAttrs(f.Name(), attrs), nil
}

// Location returns a Location instance for the file's current location.
func (f *File) Location() smartfs.Location {
	return &Location{
		fileSystem: f.fileSystem,
		bucket:     f.bucket,
		prefix:     utils.EnsureTrailingSlash(path.Dir(f.key)),
		ctx:        f.ctx,
	}
}

// CopyToLocation creates a copy of the file at the given location, keeping
// its name.
func (f *File) CopyToLocation(location smartfs.Location) (smartfs.File, error) {
	dest, err := location.NewFile(f.Name())
	if err != nil {
		return nil, err
	}
	if err := f.CopyToFile(dest); err != nil {
		return nil, err
	}
	return dest, nil
}

// CopyToFile puts the contents of the file into the target. Uses the GCS
// server-side copier when the target is also on GCS, otherwise the bytes
// stream through this process.
func (f *File) CopyToFile(file smartfs.File) error {
	if err := backend.ValidateCopySeekPosition(f); err != nil {
		return err
	}

	if tf, ok := file.(*File); ok {
		return f.copyWithin(tf)
	}

	if err := utils.TouchCopyBuffered(file, f, f.fileSystem.options.FileBufferSize); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return f.Close()
}

func (f *File) copyWithin(target *File) error {
	srcHandle, err := f.objectHandle()
	if err != nil {
		return err
	}
	dstHandle, err := target.objectHandle()
	if err != nil {
		return err
	}

	copier := dstHandle.CopierFrom(srcHandle)
	if attrs, err := f.objectAttrs(); err == nil {
		copier.ContentType = attrs.ContentType
	}

	if _, err := copier.Run(f.ctx); err != nil {
		return translateError("copy", f.URI(), err)
	}
	return nil
}

// MoveToLocation moves the file to the given location, keeping its name.
func (f *File) MoveToLocation(location smartfs.Location) (smartfs.File, error) {
	newFile, err := f.CopyToLocation(location)
	if err != nil {
		return nil, err
	}
	return newFile, f.Delete()
}

// MoveToFile moves the file to target as copy followed by delete; gs has no
// native rename.
func (f *File) MoveToFile(file smartfs.File) error {
	if err := f.CopyToFile(file); err != nil {
		return err
	}
	return f.Delete()
}

// Delete removes the object. Deleting a non-existent object is not an
// error. With delete.WithAllVersions, noncurrent generations left behind by
// a versioned bucket are removed as well.
func (f *File) Delete(opts ...options.DeleteOption) error {
	f.writeBuffer = nil
	if err := f.Close(); err != nil {
		return err
	}

	handle, err := f.objectHandle()
	if err != nil {
		return err
	}
	if err := handle.Delete(f.ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return translateError("delete", f.URI(), err)
	}

	for _, o := range opts {
		if _, ok := o.(delete.AllVersions); ok {
			return f.deleteAllGenerations(handle)
		}
	}
	return nil
}

func (f *File) deleteAllGenerations(handle *storage.ObjectHandle) error {
	client, err := f.fileSystem.Client()
	if err != nil {
		return err
	}

	key := utils.RemoveLeadingSlash(f.key)
	it := client.Bucket(f.bucket).Objects(f.ctx, &storage.Query{Prefix: key, Versions: true})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return translateError("delete", f.URI(), err)
		}
		if attrs.Name != key {
			continue
		}
		if err := handle.Generation(attrs.Generation).Delete(f.ctx); err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return translateError("delete", f.URI(), err)
		}
	}
}

// Touch creates a zero-length object if none exists, otherwise refreshes
// the object's metadata so its update time moves forward.
func (f *File) Touch() error {
	exists, err := f.Exists()
	if err != nil {
		return err
	}

	if !exists {
		if _, err := f.Write(nil); err != nil {
			return err
		}
		return f.Close()
	}

	handle, err := f.objectHandle()
	if err != nil {
		return err
	}
	_, err = handle.Update(f.ctx, storage.ObjectAttrsToUpdate{
		Metadata: map[string]string{"touched": strconv.FormatInt(time.Now().UnixNano(), 10)},
	})
	return translateError("touch", f.URI(), err)
}

// LastModified returns the 'Updated' property from the GCS attributes.
func (f *File) LastModified() (*time.Time, error) {
	attrs, err := f.objectAttrs()
	if err != nil {
		return nil, translateError("stat", f.URI(), err)
	}
	return &attrs.Updated, nil
}

// Size returns the 'Size' property from the GCS attributes.
func (f *File) Size() (uint64, error) {
	attrs, err := f.objectAttrs()
	if err != nil {
		return 0, translateError("stat", f.URI(), err)
	}
	return uint64(attrs.Size), nil //nolint:gosec
}

// Path returns full path with leading slash of the GCS file key.
func (f *File) Path() string {
	return f.key
}

// Name returns the file name.
func (f *File) Name() string {
	return path.Base(f.key)
}

// URI returns a full GCS URI string of the file.
func (f *File) URI() string {
	return utils.GetFileURI(f)
}

func (f *File) checkTempFile() error {
	if f.tempFile == nil {
		localTempFile, err := f.copyToLocalTempReader()
		if err != nil {
			return err
		}
		f.tempFile = localTempFile
	}
	return nil
}

func (f *File) copyToLocalTempReader() (*os.File, error) {
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("%s.%d", f.Name(), time.Now().UnixNano()))
	if err != nil {
		return nil, err
	}

	handle, err := f.objectHandle()
	if err != nil {
		return nil, err
	}

	outputReader, err := handle.NewReader(f.ctx)
	if err != nil {
		_ = tmpFile.Close()
		return nil, translateError("read", f.URI(), err)
	}

	buffer := make([]byte, utils.TouchCopyMinBufferSize)
	if _, err := io.CopyBuffer(tmpFile, outputReader, buffer); err != nil {
		_ = tmpFile.Close()
		return nil, err
	}
	if err := outputReader.Close(); err != nil {
		_ = tmpFile.Close()
		return nil, err
	}

	// return cursor to the beginning of the new temp file
	if _, err := tmpFile.Seek(0, io.SeekStart); err != nil {
		_ = tmpFile.Close()
		return nil, err
	}
	return tmpFile, nil
}

func (f *File) objectHandle() (*storage.ObjectHandle, error) {
	client, err := f.fileSystem.Client()
	if err != nil {
		return nil, err
	}
	return client.Bucket(f.bucket).Object(utils.RemoveLeadingSlash(f.key)), nil
}

func (f *File) objectAttrs() (*storage.ObjectAttrs, error) {
	handle, err := f.objectHandle()
	if err != nil {
		return nil, err
	}
	return handle.Attrs(f.ctx)
}

// translateError maps storage client errors onto the backend-neutral
// sentinels.
func translateError(op, uri string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fmt.Errorf("%s %s: %w", op, uri, smartfs.ErrNotExist)
	}
	return fmt.Errorf("%s %s: %w", op, uri, err)
}

func entryFromAttrs(name string, attrs *storage.ObjectAttrs) smartfs.DirEntry {
	updated := attrs.Updated
	entry := smartfs.DirEntry{
		Name:         name,
		Size:         uint64(attrs.Size), //nolint:gosec
		LastModified: &updated,
		Metadata:     map[string]string{},
	}
	if attrs.Etag != "" {
		entry.Metadata["etag"] = attrs.Etag
	}
	if attrs.ContentType != "" {
		entry.Metadata["content-type"] = attrs.ContentType
	}
	if attrs.StorageClass != "" {
		entry.Metadata["storage-class"] = attrs.StorageClass
	}
	return entry
}
