package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// testCollection returns a collection name unique to one test run so shared
// databases never see leftovers from an earlier run.
func testCollection(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

// toggleMembership flips sid in field "likedBy" and moves "likes" with it,
// retrying when a concurrent writer changed membership first.
func toggleMembership(ctx context.Context, s Store, coll, id, sid string) error {
	for attempt := 0; attempt < 20; attempt++ {
		doc, err := s.Get(ctx, coll, id)
		if err != nil {
			return err
		}
		if containsValue(AsSlice(doc.Fields["likedBy"]), sid) {
			_, err = s.Update(ctx, coll, id,
				[]Op{Increment("likes", -1), ArrayRemove("likedBy", sid)},
				ArrayContains("likedBy", sid))
		} else {
			_, err = s.Update(ctx, coll, id,
				[]Op{Increment("likes", 1), ArrayUnion("likedBy", sid)},
				ArrayNotContains("likedBy", sid))
		}
		if errors.Is(err, ErrConditionFailed) {
			continue
		}
		return err
	}
	return fmt.Errorf("toggle %s: too much contention", sid)
}

func likesAndMembers(t *testing.T, s Store, coll, id string) (int64, []any) {
	t.Helper()
	doc, err := s.Get(context.Background(), coll, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	n, ok := AsInt64(doc.Fields["likes"])
	if !ok {
		t.Fatalf("likes is not numeric: %#v", doc.Fields["likes"])
	}
	return n, AsSlice(doc.Fields["likedBy"])
}

// runStoreConformance exercises the Update contract every backend shares.
func runStoreConformance(t *testing.T, s Store, coll string) {
	ctx := context.Background()

	t.Run("UpdateOps", func(t *testing.T) {
		d, err := s.Create(ctx, coll, map[string]any{"likes": 0, "likedBy": []any{}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := s.Update(ctx, coll, d.ID, []Op{
			Increment("likes", 1),
			ArrayUnion("likedBy", "s1"),
			Set("title", "x"),
		})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if n, _ := AsInt64(got.Fields["likes"]); n != 1 {
			t.Fatalf("expected likes 1, got %v", got.Fields["likes"])
		}
		if diff := cmp.Diff([]any{"s1"}, AsSlice(got.Fields["likedBy"])); diff != "" {
			t.Fatalf("likedBy (-want +got):\n%s", diff)
		}
		if got.Fields["title"] != "x" {
			t.Fatalf("expected title set, got %v", got.Fields["title"])
		}

		got, err = s.Update(ctx, coll, d.ID, []Op{ArrayUnion("likedBy", "s1", "s2")})
		if err != nil {
			t.Fatalf("union: %v", err)
		}
		if diff := cmp.Diff([]any{"s1", "s2"}, AsSlice(got.Fields["likedBy"])); diff != "" {
			t.Fatalf("union is not a set operation (-want +got):\n%s", diff)
		}

		got, err = s.Update(ctx, coll, d.ID, []Op{ArrayRemove("likedBy", "s1"), Increment("likes", -1)})
		if err != nil {
			t.Fatalf("remove: %v", err)
		}
		if diff := cmp.Diff([]any{"s2"}, AsSlice(got.Fields["likedBy"])); diff != "" {
			t.Fatalf("likedBy after remove (-want +got):\n%s", diff)
		}
		if n, _ := AsInt64(got.Fields["likes"]); n != 0 {
			t.Fatalf("expected likes 0, got %v", got.Fields["likes"])
		}

		got, err = s.Update(ctx, coll, d.ID, []Op{Increment("views", 3), ArrayUnion("tags", "ink")})
		if err != nil {
			t.Fatalf("update missing fields: %v", err)
		}
		if n, _ := AsInt64(got.Fields["views"]); n != 3 {
			t.Fatalf("expected increment of a missing field to start at 0, got %v", got.Fields["views"])
		}
		if diff := cmp.Diff([]any{"ink"}, AsSlice(got.Fields["tags"])); diff != "" {
			t.Fatalf("union into a missing field (-want +got):\n%s", diff)
		}
	})

	t.Run("UpdateConditions", func(t *testing.T) {
		d, err := s.Create(ctx, coll, map[string]any{"likes": 1, "likedBy": []any{"s1"}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		_, err = s.Update(ctx, coll, d.ID,
			[]Op{Increment("likes", 1), ArrayUnion("likedBy", "s1")}, ArrayNotContains("likedBy", "s1"))
		if !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed, got %v", err)
		}
		if n, members := likesAndMembers(t, s, coll, d.ID); n != 1 || len(members) != 1 {
			t.Fatalf("failed condition must not write: likes=%d likedBy=%v", n, members)
		}

		if _, err := s.Update(ctx, coll, d.ID,
			[]Op{Increment("likes", -1), ArrayRemove("likedBy", "s1")}, ArrayContains("likedBy", "s1")); err != nil {
			t.Fatalf("expected condition to hold: %v", err)
		}
		if _, err := s.Update(ctx, coll, d.ID,
			[]Op{Increment("likes", -1), ArrayRemove("likedBy", "s1")}, ArrayContains("likedBy", "s1")); !errors.Is(err, ErrConditionFailed) {
			t.Fatalf("expected ErrConditionFailed on second unlike, got %v", err)
		}
		if _, err := s.Update(ctx, coll, "missing-"+uuid.NewString(), []Op{Set("a", 1)}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ConcurrentSessionsKeepCountInSync", func(t *testing.T) {
		d, err := s.Create(ctx, coll, map[string]any{"likes": 0, "likedBy": []any{}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		const sessions = 16
		var wg sync.WaitGroup
		errs := make(chan error, sessions)
		for i := 0; i < sessions; i++ {
			wg.Add(1)
			go func(sid string) {
				defer wg.Done()
				// like, unlike, like: ends liked
				for k := 0; k < 3; k++ {
					if err := toggleMembership(ctx, s, coll, d.ID, sid); err != nil {
						errs <- err
						return
					}
				}
			}(fmt.Sprintf("s%02d", i))
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatal(err)
		}
		n, members := likesAndMembers(t, s, coll, d.ID)
		if n != sessions || len(members) != sessions {
			t.Fatalf("expected %d likes and members, got likes=%d likedBy=%d", sessions, n, len(members))
		}
	})

	t.Run("SameSessionRaceIsIdempotent", func(t *testing.T) {
		d, err := s.Create(ctx, coll, map[string]any{"likes": 0, "likedBy": []any{}})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		var wg sync.WaitGroup
		errs := make(chan error, 2)
		for g := 0; g < 2; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 5; k++ {
					if err := toggleMembership(ctx, s, coll, d.ID, "same"); err != nil {
						errs <- err
						return
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatal(err)
		}
		// ten toggles in total return the document to its start state
		if n, members := likesAndMembers(t, s, coll, d.ID); n != 0 || len(members) != 0 {
			t.Fatalf("expected likes=0 and no members, got likes=%d likedBy=%v", n, members)
		}
	})
}

func TestMemoryStore_Conformance(t *testing.T) {
	runStoreConformance(t, NewMemoryStore(), testCollection("memory"))
}
