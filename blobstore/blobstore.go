// Package blobstore houses the logic for storing flower images in GCS.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"flowerpress/gallery"

	"cloud.google.com/go/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// Store fronts a single GCS bucket holding flower and background images.
//
// Implements gallery.BlobStore.
type Store struct {
	gcs    *storage.Client
	bucket string
}

func New(gcs *storage.Client, bucket string) *Store {
	return &Store{
		gcs:    gcs,
		bucket: bucket,
	}
}

// Put writes data to the named object and returns its public URI.  Errors
// from authorization failures wrap gallery.ErrPermissionDenied so callers
// can phrase them distinctly.
func (s *Store) Put(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	tracer := otel.Tracer("flowerpress/blobstore")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.Put")
	defer span.End()

	span.SetAttributes(attribute.String("object", object))

	w := s.gcs.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{
		"uploadedAt": time.Now().UTC().Format(time.RFC3339),
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		err = s.classify(fmt.Errorf("while writing object %q: %w", object, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if err := w.Close(); err != nil {
		err = s.classify(fmt.Errorf("while finalizing object %q: %w", object, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetStatus(codes.Ok, "")
	return publicURLPrefix + s.bucket + "/" + object, nil
}

// Delete removes the object behind a URI previously returned by Put.
// Objects that are already gone are not an error.
func (s *Store) Delete(ctx context.Context, uri string) error {
	tracer := otel.Tracer("flowerpress/blobstore")
	var span trace.Span
	ctx, span = tracer.Start(ctx, "Store.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("uri", uri))

	bucket, object, err := parseObjectURI(uri)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	if err := s.gcs.Bucket(bucket).Object(object).Delete(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			span.SetStatus(codes.Ok, "")
			return nil
		}
		err = s.classify(fmt.Errorf("while deleting object %q: %w", object, err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// classify folds authorization failures into gallery.ErrPermissionDenied.
func (s *Store) classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == 401 || gerr.Code == 403) {
		return fmt.Errorf("%w: %v", gallery.ErrPermissionDenied, err)
	}
	return err
}

// parseObjectURI recovers (bucket, object) from a public GCS URL.
func parseObjectURI(uri string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(uri, publicURLPrefix)
	if rest == uri {
		return "", "", fmt.Errorf("URI %q is not a GCS object URL", uri)
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("URI %q does not name a bucket and object", uri)
	}
	return parts[0], parts[1], nil
}
