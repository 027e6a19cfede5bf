package gallery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"flowerpress/dbtypes"
	"flowerpress/pressing"

	"github.com/google/go-cmp/cmp"
)

// memStore is an in-memory RecordStore ordered by dateTaken descending,
// with ID-based cursors.
type memStore struct {
	flowers []*dbtypes.Flower
	nextID  int

	listCalls int
	listErr   error
	listHook  func()

	lastQuery ListQuery
}

func (m *memStore) add(f *dbtypes.Flower) string {
	m.nextID++
	f.ID = fmt.Sprintf("flower-%04d", m.nextID)
	m.flowers = append(m.flowers, f)
	sort.SliceStable(m.flowers, func(i, j int) bool {
		return m.flowers[i].DateTaken.After(m.flowers[j].DateTaken)
	})
	return f.ID
}

func (m *memStore) ListFlowers(ctx context.Context, q ListQuery) ([]*dbtypes.Flower, string, error) {
	m.listCalls++
	m.lastQuery = q
	if m.listHook != nil {
		m.listHook()
	}
	if m.listErr != nil {
		return nil, "", m.listErr
	}

	scoped := []*dbtypes.Flower{}
	for _, f := range m.flowers {
		if f.UserID != q.UserID {
			continue
		}
		if q.Category != "" && f.Category != q.Category {
			continue
		}
		scoped = append(scoped, f)
	}

	start := 0
	if q.Cursor != "" {
		for i, f := range scoped {
			if f.ID == q.Cursor {
				start = i + 1
				break
			}
		}
	}

	end := start + q.Limit
	if end > len(scoped) {
		end = len(scoped)
	}
	page := scoped[start:end]

	// Copy so engine-side mutation doesn't alias the store.
	out := make([]*dbtypes.Flower, len(page))
	for i, f := range page {
		c := *f
		out[i] = &c
	}

	next := ""
	if len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

func (m *memStore) CreateFlower(ctx context.Context, f *dbtypes.Flower) (string, error) {
	c := *f
	return m.add(&c), nil
}

func (m *memStore) UpdateFlower(ctx context.Context, userID, id string, patch FlowerPatch) error {
	for _, f := range m.flowers {
		if f.ID == id && f.UserID == userID {
			applyPatch(f, patch)
			return nil
		}
	}
	return errors.New("not found")
}

func (m *memStore) DeleteFlower(ctx context.Context, userID, id string) error {
	for i, f := range m.flowers {
		if f.ID == id && f.UserID == userID {
			m.flowers = append(m.flowers[:i], m.flowers[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

// memBlobs is an in-memory BlobStore that can be told to fail.
type memBlobs struct {
	puts    int
	deletes int

	failPuts      int
	permissionErr bool
	deleteErr     error
}

func (m *memBlobs) Put(ctx context.Context, object string, data []byte, contentType string) (string, error) {
	m.puts++
	if m.failPuts > 0 || m.permissionErr {
		if m.failPuts > 0 {
			m.failPuts--
		}
		if m.permissionErr {
			return "", fmt.Errorf("storing %q: %w", object, ErrPermissionDenied)
		}
		return "", errors.New("storage unavailable")
	}
	return "https://blobs.example.com/" + object, nil
}

func (m *memBlobs) Delete(ctx context.Context, uri string) error {
	m.deletes++
	return m.deleteErr
}

var testNow = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return testNow }

func newTestSession(store *memStore, blobs *memBlobs, userID string) *Session {
	return New(store, blobs, userID, Options{
		BackoffUnit: time.Microsecond,
		Now:         fixedNow,
	})
}

// seedFlowers adds n flowers for userID, one per day counting back from
// testNow.
func seedFlowers(store *memStore, userID string, n int) {
	for i := 0; i < n; i++ {
		store.add(&dbtypes.Flower{
			UserID:    userID,
			Note:      fmt.Sprintf("flower number %d", i),
			Category:  dbtypes.CategoryGarden,
			DateTaken: testNow.AddDate(0, 0, -i),
			ImageURL:  fmt.Sprintf("https://blobs.example.com/flower-images/%s/%d", userID, i),
		})
	}
}

func TestPaginationExhaustsStore(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 45)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	if s.Err != "" {
		t.Fatalf("Load reported error: %s", s.Err)
	}
	if len(s.Items) != 20 {
		t.Fatalf("After first page: len(Items) = %d, want 20", len(s.Items))
	}
	if !s.HasMore {
		t.Fatal("After first full page: HasMore = false, want true")
	}

	s.LoadMore(ctx)
	if len(s.Items) != 40 {
		t.Fatalf("After second page: len(Items) = %d, want 40", len(s.Items))
	}
	if !s.HasMore {
		t.Fatal("After second full page: HasMore = false, want true")
	}

	s.LoadMore(ctx)
	if len(s.Items) != 45 {
		t.Fatalf("After third page: len(Items) = %d, want 45", len(s.Items))
	}
	if s.HasMore {
		t.Fatal("After short page: HasMore = true, want false")
	}

	calls := store.listCalls
	s.LoadMore(ctx)
	if store.listCalls != calls {
		t.Errorf("LoadMore after exhaustion hit the store: %d calls, want %d", store.listCalls, calls)
	}
	if len(s.Items) != 45 {
		t.Errorf("LoadMore after exhaustion changed items: len = %d, want 45", len(s.Items))
	}
}

func TestPaginationOrdering(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 25)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	s.LoadMore(ctx)

	for i := 1; i < len(s.Items); i++ {
		if s.Items[i].DateTaken.After(s.Items[i-1].DateTaken) {
			t.Fatalf("Items out of order at %d: %v after %v", i, s.Items[i].DateTaken, s.Items[i-1].DateTaken)
		}
	}
}

func TestLoadScopesToOwner(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 3)
	seedFlowers(store, "mallory", 3)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	for _, f := range s.Items {
		if f.UserID != "alice" {
			t.Errorf("Loaded flower %s owned by %q, want alice", f.ID, f.UserID)
		}
	}
	if len(s.Items) != 3 {
		t.Errorf("len(Items) = %d, want 3", len(s.Items))
	}
}

func TestLoadWithoutUserClearsState(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 3)
	s := newTestSession(store, &memBlobs{}, "")

	s.Load(ctx, LoadOptions{Reset: true})
	if len(s.Items) != 0 || s.HasMore || s.Loading || s.Err != "" {
		t.Errorf("Load without user left state populated: %+v", s)
	}
	if store.listCalls != 0 {
		t.Errorf("Load without user hit the store %d times", store.listCalls)
	}
}

func TestSearchModeNeverPaginates(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 60)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Search: "flower", Reset: true})
	if s.HasMore {
		t.Error("Search mode set HasMore = true")
	}
	if len(s.Items) != 20 {
		t.Errorf("Search mode returned %d items, want page size 20", len(s.Items))
	}
	if store.lastQuery.Limit != 40 {
		t.Errorf("Search mode fetched %d records, want 2x page size = 40", store.lastQuery.Limit)
	}
}

func TestSearchMatchesNoteAndCategory(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	store.add(&dbtypes.Flower{UserID: "alice", Note: "Sunny DAISY from the park", Category: dbtypes.CategoryWild, DateTaken: testNow})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "rose", Category: dbtypes.CategoryGarden, DateTaken: testNow.AddDate(0, 0, -1)})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "thyme", Category: dbtypes.CategoryHerbs, DateTaken: testNow.AddDate(0, 0, -2)})
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Search: "daisy", Reset: true})
	if len(s.Items) != 1 || !strings.Contains(s.Items[0].Note, "DAISY") {
		t.Errorf("Search %q matched %d items, want the daisy note", "daisy", len(s.Items))
	}

	s.Load(ctx, LoadOptions{Search: "herb", Reset: true})
	if len(s.Items) != 1 || s.Items[0].Category != dbtypes.CategoryHerbs {
		t.Errorf("Search %q matched %d items, want the herbs record", "herb", len(s.Items))
	}
}

func TestCategoryFilterIsServerSide(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	store.add(&dbtypes.Flower{UserID: "alice", Note: "rose", Category: dbtypes.CategoryGarden, DateTaken: testNow})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "poppy", Category: dbtypes.CategoryWild, DateTaken: testNow.AddDate(0, 0, -1)})
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Category: dbtypes.CategoryWild, Reset: true})
	if store.lastQuery.Category != dbtypes.CategoryWild {
		t.Errorf("Store query category = %q, want %q", store.lastQuery.Category, dbtypes.CategoryWild)
	}
	if len(s.Items) != 1 || s.Items[0].Category != dbtypes.CategoryWild {
		t.Errorf("Category filter yielded %d items, want 1 wild flower", len(s.Items))
	}
}

func TestStageFilterIsClientSide(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	store.add(&dbtypes.Flower{UserID: "alice", Note: "fresh cut", Category: dbtypes.CategoryGarden, DateTaken: testNow.AddDate(0, 0, -2)})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "mid press", Category: dbtypes.CategoryGarden, DateTaken: testNow.AddDate(0, 0, -14)})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "flat now", Category: dbtypes.CategoryGarden, DateTaken: testNow.AddDate(0, 0, -45)})
	store.add(&dbtypes.Flower{UserID: "alice", Note: "keepsake", Category: dbtypes.CategoryGarden, DateTaken: testNow.AddDate(0, 0, -180)})
	s := newTestSession(store, &memBlobs{}, "alice")

	stage := pressing.Pressed
	s.Load(ctx, LoadOptions{Stage: &stage, Reset: true})

	if len(s.Items) != 1 || s.Items[0].Note != "flat now" {
		t.Fatalf("Stage filter yielded %d items, want just the 45-day flower", len(s.Items))
	}
	if s.HasMore {
		t.Error("Stage-filtered load set HasMore = true")
	}
	// The stage must not have been pushed into the store query.
	if store.lastQuery.Limit != 40 {
		t.Errorf("Stage filter fetched %d records, want over-fetch of 40", store.lastQuery.Limit)
	}
}

func TestLoadErrorPreservesItems(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 5)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	if len(s.Items) != 5 {
		t.Fatalf("Seed load failed: %d items", len(s.Items))
	}

	store.listErr = errors.New("firestore unavailable")
	s.Load(ctx, LoadOptions{})
	if s.Err == "" {
		t.Error("Load after store failure left Err empty")
	}
	if !strings.Contains(s.Err, "firestore unavailable") {
		t.Errorf("Err = %q, want it to mention the store failure", s.Err)
	}
	if len(s.Items) != 5 {
		t.Errorf("Store failure changed items: len = %d, want 5", len(s.Items))
	}
	if s.Loading {
		t.Error("Loading still true after failed load")
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 30)
	s := newTestSession(store, &memBlobs{}, "alice")

	// The first load's store call triggers a superseding reset load before
	// returning, emulating a slow response that arrives after a reset.
	triggered := false
	store.listHook = func() {
		if triggered {
			return
		}
		triggered = true
		s.Load(ctx, LoadOptions{Search: "number 3", Reset: true})
	}

	s.Load(ctx, LoadOptions{Reset: true})

	// The inner search load wins; the outer page must not repopulate.
	if s.HasMore {
		t.Error("Stale page load overwrote HasMore from superseding search load")
	}
	for _, f := range s.Items {
		if !strings.Contains(f.Note, "number 3") {
			t.Fatalf("Stale page results leaked into items: %q", f.Note)
		}
	}
}

func TestAddFlowerUploadsAndReloads(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 2)
	blobs := &memBlobs{}
	s := newTestSession(store, blobs, "alice")

	id, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:      "backdated lily",
		Category:  dbtypes.CategoryGarden,
		DateTaken: testNow.AddDate(0, 0, -10),
	}, &Upload{Name: "lily.jpg", ContentType: "image/jpeg", Data: []byte("jpegdata")}, nil)
	if err != nil {
		t.Fatalf("AddFlower: %v", err)
	}
	if id == "" {
		t.Fatal("AddFlower returned empty id")
	}
	if blobs.puts != 1 {
		t.Errorf("AddFlower made %d uploads, want 1", blobs.puts)
	}

	// The reload places the backdated flower at its ordered position, not
	// at the front.
	if len(s.Items) != 3 {
		t.Fatalf("After AddFlower reload: len(Items) = %d, want 3", len(s.Items))
	}
	if s.Items[len(s.Items)-1].ID != id {
		t.Errorf("Backdated flower at index %d, want last", indexOf(s.Items, id))
	}
	if !strings.HasPrefix(s.Items[len(s.Items)-1].ImageURL, "https://blobs.example.com/flower-images/alice/") {
		t.Errorf("Stored imageUrl = %q, want uploaded blob URI", s.Items[len(s.Items)-1].ImageURL)
	}
}

func indexOf(items []*dbtypes.Flower, id string) int {
	for i, f := range items {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func TestAddFlowerCustomBackgroundWithoutFile(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	blobs := &memBlobs{}
	s := newTestSession(store, blobs, "alice")

	_, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:      "violet",
		Category:  dbtypes.CategoryWild,
		DateTaken: testNow,
		ImageURL:  "/placeholder.svg",
		Background: dbtypes.Background{
			Type:  dbtypes.BackgroundCustom,
			Value: "https://blobs.example.com/background-images/alice/existing",
		},
	}, nil, nil)
	if err != nil {
		t.Fatalf("AddFlower: %v", err)
	}

	if blobs.puts != 0 {
		t.Errorf("AddFlower without files made %d uploads, want 0", blobs.puts)
	}
	if got, want := store.flowers[0].Background.Value, "https://blobs.example.com/background-images/alice/existing"; got != want {
		t.Errorf("Background value = %q, want unchanged %q", got, want)
	}
}

func TestAddFlowerCustomBackgroundUpload(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	blobs := &memBlobs{}
	s := newTestSession(store, blobs, "alice")

	_, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:       "violet",
		Category:   dbtypes.CategoryWild,
		DateTaken:  testNow,
		ImageURL:   "/placeholder.svg",
		Background: dbtypes.Background{Type: dbtypes.BackgroundCustom},
	}, nil, &Upload{Name: "bg.png", ContentType: "image/png", Data: []byte("pngdata")})
	if err != nil {
		t.Fatalf("AddFlower: %v", err)
	}

	if blobs.puts != 1 {
		t.Errorf("AddFlower made %d uploads, want 1 for the background", blobs.puts)
	}
	if !strings.HasPrefix(store.flowers[0].Background.Value, "https://blobs.example.com/background-images/alice/") {
		t.Errorf("Background value = %q, want uploaded blob URI", store.flowers[0].Background.Value)
	}
}

func TestUploadRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	blobs := &memBlobs{failPuts: 2}
	s := newTestSession(store, blobs, "alice")

	_, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:      "stubborn upload",
		Category:  dbtypes.CategoryGarden,
		DateTaken: testNow,
	}, &Upload{Name: "f.jpg", ContentType: "image/jpeg", Data: []byte("x")}, nil)
	if err != nil {
		t.Fatalf("AddFlower with transient failures: %v", err)
	}
	if blobs.puts != 3 {
		t.Errorf("Upload attempted %d times, want 3", blobs.puts)
	}
}

func TestUploadGivesUpAfterThreeAttempts(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	blobs := &memBlobs{failPuts: 100}
	s := newTestSession(store, blobs, "alice")

	_, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:      "doomed upload",
		Category:  dbtypes.CategoryGarden,
		DateTaken: testNow,
	}, &Upload{Name: "f.jpg", ContentType: "image/jpeg", Data: []byte("x")}, nil)
	if err == nil {
		t.Fatal("AddFlower succeeded despite persistent upload failure")
	}
	if blobs.puts != 3 {
		t.Errorf("Upload attempted %d times, want 3", blobs.puts)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("Error = %q, want mention of attempt count", err)
	}
	if len(store.flowers) != 0 {
		t.Errorf("Record created despite upload failure")
	}
}

func TestUploadPermissionFailureIsDistinguished(t *testing.T) {
	ctx := context.Background()
	blobs := &memBlobs{permissionErr: true}
	s := newTestSession(&memStore{}, blobs, "alice")

	_, err := s.AddFlower(ctx, &dbtypes.Flower{
		Note:      "forbidden upload",
		Category:  dbtypes.CategoryGarden,
		DateTaken: testNow,
	}, &Upload{Name: "f.jpg", ContentType: "image/jpeg", Data: []byte("x")}, nil)
	if err == nil {
		t.Fatal("AddFlower succeeded despite permission failure")
	}
	if !strings.Contains(err.Error(), "permissions") {
		t.Errorf("Error = %q, want permission-specific message", err)
	}
	if !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Error does not wrap ErrPermissionDenied: %v", err)
	}
}

func TestDeleteFlowerRemovesOneAndDeletesBlobOnce(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 5)
	blobs := &memBlobs{}
	s := newTestSession(store, blobs, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	victim := s.Items[2].ID

	if err := s.DeleteFlower(ctx, victim); err != nil {
		t.Fatalf("DeleteFlower: %v", err)
	}

	if len(s.Items) != 4 {
		t.Errorf("len(Items) = %d after delete, want 4", len(s.Items))
	}
	if indexOf(s.Items, victim) != -1 {
		t.Error("Deleted flower still present in items")
	}
	if blobs.deletes != 1 {
		t.Errorf("Blob delete called %d times, want 1", blobs.deletes)
	}
	if len(store.flowers) != 4 {
		t.Errorf("Store still holds %d flowers, want 4", len(store.flowers))
	}
}

func TestDeleteFlowerSkipsPlaceholderBlob(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	id := store.add(&dbtypes.Flower{
		UserID:    "alice",
		Note:      "no real image",
		Category:  dbtypes.CategoryGarden,
		DateTaken: testNow,
		ImageURL:  "/placeholder.svg",
	})
	blobs := &memBlobs{}
	s := newTestSession(store, blobs, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	if err := s.DeleteFlower(ctx, id); err != nil {
		t.Fatalf("DeleteFlower: %v", err)
	}
	if blobs.deletes != 0 {
		t.Errorf("Blob delete called %d times for a placeholder image, want 0", blobs.deletes)
	}
}

func TestDeleteFlowerSwallowsBlobError(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 1)
	blobs := &memBlobs{deleteErr: errors.New("object is gone")}
	s := newTestSession(store, blobs, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	if err := s.DeleteFlower(ctx, s.Items[0].ID); err != nil {
		t.Fatalf("DeleteFlower surfaced blob-delete failure: %v", err)
	}
	if len(s.Items) != 0 {
		t.Errorf("len(Items) = %d after delete, want 0", len(s.Items))
	}
}

func TestUpdateFlowerPatchesItemsInPlace(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	seedFlowers(store, "alice", 3)
	s := newTestSession(store, &memBlobs{}, "alice")

	s.Load(ctx, LoadOptions{Reset: true})
	target := s.Items[1].ID
	before := *s.Items[1]

	note := "renamed to peony"
	category := dbtypes.CategoryHerbs
	err := s.UpdateFlower(ctx, target, FlowerPatch{Note: &note, Category: &category}, nil)
	if err != nil {
		t.Fatalf("UpdateFlower: %v", err)
	}

	want := before
	want.Note = note
	want.Category = category
	if diff := cmp.Diff(*s.Items[1], want); diff != "" {
		t.Errorf("Item not patched in place; diff (-got +want):\n%s", diff)
	}

	for _, f := range store.flowers {
		if f.ID == target && f.Note != note {
			t.Errorf("Store record note = %q, want %q", f.Note, note)
		}
	}
}

func TestWriteOpsRequireSignIn(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(&memStore{}, &memBlobs{}, "")

	if _, err := s.AddFlower(ctx, &dbtypes.Flower{}, nil, nil); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("AddFlower error = %v, want ErrNotSignedIn", err)
	}
	if err := s.UpdateFlower(ctx, "x", FlowerPatch{}, nil); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("UpdateFlower error = %v, want ErrNotSignedIn", err)
	}
	if err := s.DeleteFlower(ctx, "x"); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("DeleteFlower error = %v, want ErrNotSignedIn", err)
	}
}
