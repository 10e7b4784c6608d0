package jobstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"eraser/internal/jobstore"
	"eraser/internal/testsupport"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	if store.Path() != cfg.DatabasePath() {
		t.Fatalf("unexpected database path %q", store.Path())
	}

	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	reopened, err := jobstore.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db, err := sql.Open("sqlite", cfg.DatabasePath())
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 7"); err != nil {
		t.Fatalf("stamp version: %v", err)
	}
	db.Close()

	store, err := jobstore.Open(cfg)
	if err == nil {
		store.Close()
		t.Fatal("expected schema mismatch")
	}
	if !errors.Is(err, jobstore.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestCreateAndUpdateJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := &jobstore.Job{
		ID:         "0f8fad5b-d9cb-469f-a165-70867728950e",
		InputPath:  "/videos/input.mp4",
		RegionKind: "box",
		Quality:    "standard",
		User:       "alice",
	}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("CreateJob failed: %v", err)
	}
	if job.State != jobstore.StateValidating {
		t.Fatalf("expected default state validating, got %q", job.State)
	}

	job.State = jobstore.StateStreaming
	job.FramesTotal = 300
	job.FramesDone = 150
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched == nil || fetched.State != jobstore.StateStreaming || fetched.FramesDone != 150 {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
	if fetched.Progress() != 0.5 {
		t.Fatalf("expected progress 0.5, got %v", fetched.Progress())
	}
	if fetched.FinishedAt != nil {
		t.Fatal("running job must not have a finish time")
	}

	job.State = jobstore.StateFailed
	job.ErrorKind = "decode"
	job.ErrorMessage = "decode error: streaming: decode: frame 150"
	if err := store.UpdateJob(ctx, job); err != nil {
		t.Fatalf("UpdateJob failed: %v", err)
	}
	fetched, err = store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched.FinishedAt == nil {
		t.Fatal("expected finish time for failed job")
	}
	if fetched.ErrorKind != "decode" || fetched.User != "alice" || fetched.RegionKind != "box" {
		t.Fatalf("unexpected failed job: %#v", fetched)
	}
}

func TestCreateJobRequiresID(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if err := store.CreateJob(context.Background(), &jobstore.Job{InputPath: "x.mp4"}); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestUpdateMissingJob(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	err := store.UpdateJob(context.Background(), &jobstore.Job{ID: "missing", State: jobstore.StateDone})
	if err == nil {
		t.Fatal("expected error updating unknown job")
	}
}

func TestGetJobMissingReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	job, err := store.GetJob(context.Background(), "nope")
	if err != nil || job != nil {
		t.Fatalf("expected nil, nil; got %#v, %v", job, err)
	}
}

func TestListJobsNewestFirstWithFilter(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	ids := []string{"aaaa-1", "bbbb-2", "cccc-3"}
	for i, id := range ids {
		job := &jobstore.Job{ID: id, InputPath: "in.mp4"}
		if err := store.CreateJob(ctx, job); err != nil {
			t.Fatalf("CreateJob %s: %v", id, err)
		}
		if i == 1 {
			job.State = jobstore.StateDone
			if err := store.UpdateJob(ctx, job); err != nil {
				t.Fatalf("UpdateJob: %v", err)
			}
		}
	}

	all, err := store.ListJobs(ctx, 0)
	if err != nil {
		t.Fatalf("ListJobs failed: %v", err)
	}
	if len(all) != 3 || all[0].ID != "cccc-3" || all[2].ID != "aaaa-1" {
		t.Fatalf("unexpected order: %v", jobIDs(all))
	}

	limited, err := store.ListJobs(ctx, 2)
	if err != nil || len(limited) != 2 {
		t.Fatalf("expected 2 jobs, got %d (%v)", len(limited), err)
	}

	done, err := store.ListJobs(ctx, 0, jobstore.StateDone)
	if err != nil {
		t.Fatalf("ListJobs filtered failed: %v", err)
	}
	if len(done) != 1 || done[0].ID != "bbbb-2" {
		t.Fatalf("unexpected filtered jobs: %v", jobIDs(done))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[jobstore.StateValidating] != 2 || stats[jobstore.StateDone] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}

func TestFindJobByPrefix(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, id := range []string{"abc123", "abd456", "x_y"} {
		if err := store.CreateJob(ctx, &jobstore.Job{ID: id, InputPath: "in.mp4"}); err != nil {
			t.Fatalf("CreateJob: %v", err)
		}
	}

	job, err := store.FindJob(ctx, "abc")
	if err != nil || job == nil || job.ID != "abc123" {
		t.Fatalf("expected abc123, got %#v (%v)", job, err)
	}
	if _, err := store.FindJob(ctx, "ab"); !errors.Is(err, jobstore.ErrAmbiguousID) {
		t.Fatalf("expected ambiguous id error, got %v", err)
	}
	job, err = store.FindJob(ctx, "x_")
	if err != nil || job == nil || job.ID != "x_y" {
		t.Fatalf("expected literal underscore match, got %#v (%v)", job, err)
	}
	job, err = store.FindJob(ctx, "zzz")
	if err != nil || job != nil {
		t.Fatalf("expected no match, got %#v (%v)", job, err)
	}
}

func TestUsers(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	if err := store.PutUser(ctx, "bob", "hash-1"); err != nil {
		t.Fatalf("PutUser failed: %v", err)
	}
	if err := store.PutUser(ctx, "bob", "hash-2"); err != nil {
		t.Fatalf("PutUser replace failed: %v", err)
	}
	hash, ok, err := store.PasswordHash(ctx, "bob")
	if err != nil || !ok || hash != "hash-2" {
		t.Fatalf("unexpected hash lookup: %q %v %v", hash, ok, err)
	}
	if _, ok, _ := store.PasswordHash(ctx, "carol"); ok {
		t.Fatal("unknown user must not be found")
	}
	if err := store.PutUser(ctx, " ", "hash"); err == nil {
		t.Fatal("expected error for blank user name")
	}

	users, err := store.Users(ctx)
	if err != nil || len(users) != 1 || users[0].Name != "bob" {
		t.Fatalf("unexpected users: %#v (%v)", users, err)
	}
	removed, err := store.RemoveUser(ctx, "bob")
	if err != nil || !removed {
		t.Fatalf("RemoveUser: %v %v", removed, err)
	}
	removed, _ = store.RemoveUser(ctx, "bob")
	if removed {
		t.Fatal("second removal should report false")
	}
}

func TestParseState(t *testing.T) {
	if state, ok := jobstore.ParseState(" Done "); !ok || state != jobstore.StateDone {
		t.Fatalf("unexpected parse: %q %v", state, ok)
	}
	if _, ok := jobstore.ParseState("paused"); ok {
		t.Fatal("unknown state must not parse")
	}
}

func jobIDs(jobs []*jobstore.Job) []string {
	ids := make([]string, len(jobs))
	for i, job := range jobs {
		ids[i] = job.ID
	}
	return ids
}
