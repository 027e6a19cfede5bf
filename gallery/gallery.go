// Package gallery implements the query engine behind a user's flower
// gallery: paginated listing, client-side search and stage filtering, and
// the add/update/delete workflows that coordinate the record store with the
// blob store.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"flowerpress/dbtypes"
	"flowerpress/pressing"
)

// DefaultPageSize is how many flowers one gallery page holds.
const DefaultPageSize = 20

// uploadAttempts bounds the blob-upload retry loop.
const uploadAttempts = 3

var (
	ErrNotSignedIn = errors.New("user is not signed in")

	// ErrPermissionDenied should be wrapped by BlobStore implementations
	// when an upload fails for authorization reasons, so upload failures
	// can be phrased distinctly for the user.
	ErrPermissionDenied = errors.New("permission denied")
)

// ListQuery describes one fetch against the record store.  Results are
// always scoped to UserID and ordered by dateTaken descending.
type ListQuery struct {
	UserID string

	// Category, when non-empty, constrains the query server-side.
	Category dbtypes.Category

	Limit int

	// Cursor continues a previous listing.  Empty starts from the top.
	Cursor string
}

// RecordStore is the document-database collaborator.
type RecordStore interface {
	// ListFlowers returns up to q.Limit records and an opaque cursor that
	// continues the listing.  The cursor is empty when no records were
	// returned.
	ListFlowers(ctx context.Context, q ListQuery) (records []*dbtypes.Flower, nextCursor string, err error)

	CreateFlower(ctx context.Context, flower *dbtypes.Flower) (id string, err error)
	UpdateFlower(ctx context.Context, userID, id string, patch FlowerPatch) error
	DeleteFlower(ctx context.Context, userID, id string) error
}

// BlobStore is the object-storage collaborator.
type BlobStore interface {
	Put(ctx context.Context, object string, data []byte, contentType string) (uri string, err error)
	Delete(ctx context.Context, uri string) error
}

// FlowerPatch is a partial update to a flower record.  Nil fields are left
// untouched.
type FlowerPatch struct {
	Note        *string
	Category    *dbtypes.Category
	DateTaken   *time.Time
	ImageURL    *string
	Background  *dbtypes.Background
	AspectRatio *float64
}

// Upload is a file the user submitted alongside a flower.
type Upload struct {
	Name        string
	ContentType string
	Data        []byte
}

// LoadOptions selects what a Load fetches.
type LoadOptions struct {
	// Search switches the engine to search mode: an over-fetched batch is
	// filtered client-side to records whose note or category contains the
	// text, case-insensitively.
	Search string

	// Category constrains the store query server-side.
	Category dbtypes.Category

	// Stage filters client-side against the pressing stage computed at
	// load time.
	Stage *pressing.Stage

	// Reset discards the current items and cursor before loading.
	Reset bool
}

// Options tune a Session.  The zero value gets sensible defaults.
type Options struct {
	PageSize    int
	BackoffUnit time.Duration
	Now         func() time.Time
}

// Session is one user's gallery view.  It is not safe for concurrent use;
// callers gate repeated loads on the Loading flag.
type Session struct {
	store  RecordStore
	blobs  BlobStore
	userID string

	pageSize    int
	backoffUnit time.Duration
	now         func() time.Time

	// Items holds the currently displayed flowers, ordered by dateTaken
	// descending as returned by the store.
	Items []*dbtypes.Flower

	Loading bool

	// Err is the human-readable message of the last failed load, empty
	// after a successful one.
	Err string

	HasMore bool

	cursor string

	// gen tags each Load so a slow response that was superseded by a
	// newer Load is discarded instead of repopulating stale state.
	gen uint64

	search   string
	category dbtypes.Category
	stage    *pressing.Stage
}

// New creates a gallery session for userID.  An empty userID yields a
// session whose loads are no-ops with cleared state.
func New(store RecordStore, blobs BlobStore, userID string, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = 1 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{
		store:       store,
		blobs:       blobs,
		userID:      userID,
		pageSize:    opts.PageSize,
		backoffUnit: opts.BackoffUnit,
		now:         opts.Now,
	}
}

func (s *Session) clear() {
	s.Items = nil
	s.Loading = false
	s.Err = ""
	s.HasMore = false
	s.cursor = ""
}

// Load fetches gallery content per opts.  Store errors are reported through
// the Err field; previously loaded items are preserved.
func (s *Session) Load(ctx context.Context, opts LoadOptions) {
	if s.userID == "" {
		s.clear()
		return
	}

	s.gen++
	gen := s.gen

	s.search = strings.TrimSpace(opts.Search)
	s.category = opts.Category
	s.stage = opts.Stage

	if opts.Reset {
		s.Items = nil
		s.cursor = ""
		s.HasMore = true
	}

	s.Loading = true
	s.Err = ""

	if s.search != "" || s.stage != nil {
		s.loadFiltered(ctx, gen)
		return
	}

	s.loadPage(ctx, gen, opts.Reset)
}

// LoadMore fetches the next page.  It is a no-op when there is nothing
// more, a load is in flight, or nobody is signed in.
func (s *Session) LoadMore(ctx context.Context) {
	if !s.HasMore || s.Loading || s.userID == "" {
		return
	}
	s.Load(ctx, LoadOptions{
		Search:   s.search,
		Category: s.category,
		Stage:    s.stage,
		Reset:    false,
	})
}

// loadFiltered handles search mode and stage filtering: over-fetch twice the
// page size, filter client-side, truncate.  These modes never paginate, so
// matches beyond the fetch window are not found.
func (s *Session) loadFiltered(ctx context.Context, gen uint64) {
	records, _, err := s.store.ListFlowers(ctx, ListQuery{
		UserID:   s.userID,
		Category: s.category,
		Limit:    2 * s.pageSize,
	})
	if s.gen != gen {
		// A newer Load superseded this one.
		return
	}
	if err != nil {
		s.Err = fmt.Sprintf("Failed to load flowers: %v", err)
		s.Loading = false
		return
	}

	matched := make([]*dbtypes.Flower, 0, len(records))
	needle := strings.ToLower(s.search)
	for _, f := range records {
		if needle != "" &&
			!strings.Contains(strings.ToLower(f.Note), needle) &&
			!strings.Contains(strings.ToLower(string(f.Category)), needle) {
			continue
		}
		if s.stage != nil && pressing.ClassifyStage(pressing.DaysElapsed(s.now(), f.DateTaken)) != *s.stage {
			continue
		}
		matched = append(matched, f)
	}
	if len(matched) > s.pageSize {
		matched = matched[:s.pageSize]
	}

	s.Items = matched
	s.HasMore = false
	s.cursor = ""
	s.Loading = false
}

func (s *Session) loadPage(ctx context.Context, gen uint64, reset bool) {
	cursor := s.cursor
	if reset {
		cursor = ""
	}

	records, nextCursor, err := s.store.ListFlowers(ctx, ListQuery{
		UserID:   s.userID,
		Category: s.category,
		Limit:    s.pageSize,
		Cursor:   cursor,
	})
	if s.gen != gen {
		return
	}
	if err != nil {
		s.Err = fmt.Sprintf("Failed to load flowers: %v", err)
		s.Loading = false
		return
	}

	if reset {
		s.Items = records
	} else {
		s.Items = append(s.Items, records...)
	}

	// A short page signals exhaustion.
	s.HasMore = len(records) == s.pageSize
	if nextCursor != "" {
		s.cursor = nextCursor
	}
	s.Loading = false
}

// AddFlower uploads any provided files, creates the record, and reloads the
// gallery from the top so the new flower lands at its dateTaken-ordered
// position (which may be anywhere, since dateTaken can be backdated).
func (s *Session) AddFlower(ctx context.Context, flower *dbtypes.Flower, image, background *Upload) (string, error) {
	if s.userID == "" {
		return "", ErrNotSignedIn
	}

	flower.UserID = s.userID

	if image != nil {
		uri, err := s.uploadWithRetry(ctx, s.flowerImageObject(image.Name), image)
		if err != nil {
			return "", err
		}
		flower.ImageURL = uri
	}

	// A custom background without an accompanying file keeps whatever
	// value the caller supplied.
	if flower.Background.Type == dbtypes.BackgroundCustom && background != nil {
		uri, err := s.blobs.Put(ctx, s.backgroundImageObject(background.Name), background.Data, background.ContentType)
		if err != nil {
			return "", fmt.Errorf("while uploading background image: %w", err)
		}
		flower.Background.Value = uri
	}

	id, err := s.store.CreateFlower(ctx, flower)
	if err != nil {
		return "", fmt.Errorf("while creating flower record: %w", err)
	}

	s.Load(ctx, LoadOptions{
		Search:   s.search,
		Category: s.category,
		Stage:    s.stage,
		Reset:    true,
	})

	return id, nil
}

// UpdateFlower applies a partial update, optionally replacing the image
// first, and patches the loaded items in place.
func (s *Session) UpdateFlower(ctx context.Context, id string, patch FlowerPatch, newImage *Upload) error {
	if s.userID == "" {
		return ErrNotSignedIn
	}

	if newImage != nil {
		uri, err := s.uploadWithRetry(ctx, s.flowerImageObject(newImage.Name), newImage)
		if err != nil {
			return err
		}
		patch.ImageURL = &uri
	}

	if err := s.store.UpdateFlower(ctx, s.userID, id, patch); err != nil {
		return fmt.Errorf("while updating flower record: %w", err)
	}

	for _, f := range s.Items {
		if f.ID == id {
			applyPatch(f, patch)
			break
		}
	}

	return nil
}

// DeleteFlower deletes the record, then best-effort deletes its image blob,
// then removes the flower from the loaded items without a full reload.
func (s *Session) DeleteFlower(ctx context.Context, id string) error {
	if s.userID == "" {
		return ErrNotSignedIn
	}

	var deleted *dbtypes.Flower
	for _, f := range s.Items {
		if f.ID == id {
			deleted = f
			break
		}
	}

	if err := s.store.DeleteFlower(ctx, s.userID, id); err != nil {
		return fmt.Errorf("while deleting flower record: %w", err)
	}

	if deleted != nil && isRemoteBlob(deleted.ImageURL) {
		if err := s.blobs.Delete(ctx, deleted.ImageURL); err != nil {
			// Blob deletion failure must not block record deletion.
			slog.ErrorContext(ctx, "Failed to delete flower image blob",
				slog.String("imageUrl", deleted.ImageURL),
				slog.Any("err", err))
		}
	}

	for i, f := range s.Items {
		if f.ID == id {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			break
		}
	}

	return nil
}

// isRemoteBlob reports whether url points at the blob store, as opposed to
// a local placeholder asset.
func isRemoteBlob(url string) bool {
	return url != "" && !strings.HasPrefix(url, "/") && !strings.Contains(url, "placeholder")
}

func (s *Session) uploadWithRetry(ctx context.Context, object string, up *Upload) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		uri, err := s.blobs.Put(ctx, object, up.Data, up.ContentType)
		if err == nil {
			return uri, nil
		}
		lastErr = err

		slog.ErrorContext(ctx, "Image upload attempt failed",
			slog.Int("attempt", attempt),
			slog.Any("err", err))

		if attempt < uploadAttempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoffUnit):
			}
		}
	}

	if errors.Is(lastErr, ErrPermissionDenied) {
		return "", fmt.Errorf("upload failed due to permissions: %w", lastErr)
	}
	return "", fmt.Errorf("upload failed after %d attempts: %w", uploadAttempts, lastErr)
}

func (s *Session) flowerImageObject(name string) string {
	return fmt.Sprintf("flower-images/%s/%d_%s", s.userID, s.now().UnixNano(), sanitizeName(name))
}

func (s *Session) backgroundImageObject(name string) string {
	return fmt.Sprintf("background-images/%s/%d_%s", s.userID, s.now().UnixNano(), sanitizeName(name))
}

// sanitizeName keeps uploaded file names from smuggling path separators
// into object names.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	if name == "" {
		name = "upload"
	}
	return name
}

func applyPatch(f *dbtypes.Flower, patch FlowerPatch) {
	if patch.Note != nil {
		f.Note = *patch.Note
	}
	if patch.Category != nil {
		f.Category = *patch.Category
	}
	if patch.DateTaken != nil {
		f.DateTaken = *patch.DateTaken
	}
	if patch.ImageURL != nil {
		f.ImageURL = *patch.ImageURL
	}
	if patch.Background != nil {
		f.Background = *patch.Background
	}
	if patch.AspectRatio != nil {
		f.AspectRatio = *patch.AspectRatio
	}
}
