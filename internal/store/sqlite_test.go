package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/eldtechnologies/fileshare/internal/ids"
	"github.com/eldtechnologies/fileshare/internal/models"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func testBatch(title string, createdAt time.Time, files ...models.FileRef) *models.Batch {
	return &models.Batch{
		ID:        ids.NewBatchID(),
		Title:     title,
		Files:     files,
		CreatedBy: 42,
		CreatedAt: createdAt.UTC(),
	}
}

func TestSQLiteBatchLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	files := []models.FileRef{
		{ArchiveMessageID: 11, Kind: models.KindPhoto},
		{ArchiveMessageID: 12, Kind: models.KindPhoto},
		{ArchiveMessageID: 13, Kind: models.KindDocument},
	}
	batch := testBatch("Lecture 3", time.Now(), files...)
	if err := s.CreateBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetBatch(ctx, batch.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected batch, got nil")
	}
	if got.Title != "Lecture 3" || got.Views != 0 || got.CreatedBy != 42 {
		t.Fatalf("unexpected batch %+v", got)
	}
	if len(got.Files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(got.Files))
	}
	for i := range files {
		if got.Files[i] != files[i] {
			t.Fatalf("file %d: expected %+v, got %+v", i, files[i], got.Files[i])
		}
	}

	if err := s.UpdateBatchTitle(ctx, batch.ID, "Lecture 3 (revised)"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.GetBatch(ctx, batch.ID)
	if got.Title != "Lecture 3 (revised)" {
		t.Fatalf("title not updated: %q", got.Title)
	}

	if err := s.DeleteBatch(ctx, batch.ID); err != nil {
		t.Fatal(err)
	}
	got, err = s.GetBatch(ctx, batch.ID)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil after delete; got %+v, %v", got, err)
	}

	if err := s.DeleteBatch(ctx, batch.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateBatchTitle(ctx, batch.ID, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteCreateBatchRejectsEmptyFiles(t *testing.T) {
	s := newTestSQLiteStore(t)
	batch := testBatch("empty", time.Now())

	if err := s.CreateBatch(context.Background(), batch); !errors.Is(err, models.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if got, _ := s.GetBatch(context.Background(), batch.ID); got != nil {
		t.Fatal("no batch should be stored")
	}
}

func TestSQLiteConcurrentViews(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	batch := testBatch("popular", time.Now(), models.FileRef{ArchiveMessageID: 1, Kind: models.KindVideo})
	batch.Views = 5
	if err := s.CreateBatch(ctx, batch); err != nil {
		t.Fatal(err)
	}

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementViews(ctx, batch.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}

	got, _ := s.GetBatch(ctx, batch.ID)
	if got.Views != 5+n {
		t.Fatalf("expected %d views, got %d", 5+n, got.Views)
	}

	if _, err := s.IncrementViews(ctx, ids.NewBatchID()); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown batch, got %v", err)
	}
}

func TestSQLiteRecentAndSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	base := time.Now().Add(-time.Hour)
	titles := []string{"Physics 101", "Chemistry notes", "physics lab", "100% done_list"}
	for i, title := range titles {
		b := testBatch(title, base.Add(time.Duration(i)*time.Minute), models.FileRef{ArchiveMessageID: i + 1, Kind: models.KindAudio})
		if err := s.CreateBatch(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := s.ListRecentBatches(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].Title != "100% done_list" || recent[1].Title != "physics lab" {
		t.Fatalf("unexpected recent order: %+v", recent)
	}

	found, err := s.SearchBatches(ctx, "PHYSICS", 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(found))
	}

	found, _ = s.SearchBatches(ctx, "%", 20)
	if len(found) != 1 || found[0].Title != "100% done_list" {
		t.Fatalf("wildcards must match literally, got %+v", found)
	}
}

func TestSQLiteRequiredGroups(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for _, id := range []int64{-1001, -1002, -1001} {
		if err := s.AddRequiredGroup(ctx, id); err != nil {
			t.Fatal(err)
		}
	}

	groups, err := s.ListRequiredGroups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	if err := s.RemoveRequiredGroup(ctx, -1001); err != nil {
		t.Fatal(err)
	}
	if err := s.RemoveRequiredGroup(ctx, -1001); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteOwnerCannotBeRemoved(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.UpsertAdmin(ctx, models.Admin{UserID: 1, IsOwner: true}); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertAdmin(ctx, models.Admin{UserID: 2}); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveAdmin(ctx, 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("owner removal should match nothing, got %v", err)
	}
	if err := s.RemoveAdmin(ctx, 2); err != nil {
		t.Fatal(err)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 1 || !admins[0].IsOwner || admins[0].UserID != 1 {
		t.Fatalf("unexpected admins %+v", admins)
	}

	a, err := s.GetAdmin(ctx, 2)
	if err != nil || a != nil {
		t.Fatalf("expected nil, nil for revoked admin; got %+v, %v", a, err)
	}
}

func TestSQLiteSetOwnerDemotesPrevious(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	if err := s.SetOwner(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetOwner(ctx, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.SetOwner(ctx, 7); err != nil {
		t.Fatal(err)
	}

	admins, err := s.ListAdmins(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(admins) != 2 || admins[0].UserID != 7 || !admins[0].IsOwner || admins[1].IsOwner {
		t.Fatalf("unexpected admins %+v", admins)
	}
	if err := s.RemoveAdmin(ctx, 1); err != nil {
		t.Fatalf("demoted owner should be removable: %v", err)
	}
}

func TestSQLiteUsersAndStats(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	created, err := s.UpsertUser(ctx, models.User{UserID: 7, FirstName: "A", LastActive: time.Now().UTC()})
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	created, err = s.UpsertUser(ctx, models.User{UserID: 7, FirstName: "B", LastActive: time.Now().UTC()})
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}
	if _, err := s.UpsertUser(ctx, models.User{UserID: 3, LastActive: time.Now().UTC()}); err != nil {
		t.Fatal(err)
	}

	userIDs, err := s.ListUserIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(userIDs) != 2 || userIDs[0] != 3 || userIDs[1] != 7 {
		t.Fatalf("unexpected ids %v", userIDs)
	}

	_ = s.CreateBatch(ctx, testBatch("a", time.Now(),
		models.FileRef{ArchiveMessageID: 1, Kind: models.KindPhoto},
		models.FileRef{ArchiveMessageID: 2, Kind: models.KindPhoto}))
	_ = s.CreateBatch(ctx, testBatch("b", time.Now(), models.FileRef{ArchiveMessageID: 3, Kind: models.KindVideo}))
	_ = s.AddRequiredGroup(ctx, -100)
	_ = s.UpsertAdmin(ctx, models.Admin{UserID: 1, IsOwner: true})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := models.Stats{Users: 2, Batches: 2, Files: 3, Groups: 1, Admins: 1}
	if *stats != want {
		t.Fatalf("expected %+v, got %+v", want, *stats)
	}
}

func TestLikePattern(t *testing.T) {
	tests := map[string]string{
		"abc":  "%abc%",
		"50%":  `%50\%%`,
		"a_b":  `%a\_b%`,
		`c:\d`: `%c:\\d%`,
	}
	for in, want := range tests {
		if got := likePattern(in); got != want {
			t.Errorf("likePattern(%q) = %q, want %q", in, got, want)
		}
	}
}
