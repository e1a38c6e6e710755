package bucket_test

import (
	"context"
	"testing"

	"github.com/waynerigley/migslist/core/bucket"
	"github.com/waynerigley/migslist/core/member"
	inmemdb "github.com/waynerigley/migslist/storage/database/inmem"
)

func Test_Service_softDeleteFreesNumber(t *testing.T) {
	db := inmemdb.Open()
	svc := bucket.NewService(inmemdb.NewBucketRepository(db))
	ctx := context.Background()

	b, err := svc.Create(ctx, "un1", bucket.NewBucket{Number: 1, Name: "Hotel One"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	if _, err = svc.Create(ctx, "un1", bucket.NewBucket{Number: 1, Name: "Duplicate"}); err == nil {
		t.Fatal("Create() reused a live number")
	}
	// same number in another union is fine
	if _, err = svc.Create(ctx, "un2", bucket.NewBucket{Number: 1, Name: "Elsewhere"}); err != nil {
		t.Fatalf("Create() in another union failed: %v", err)
	}

	if err = svc.SoftDelete(ctx, b.ID); err != nil {
		t.Fatalf("SoftDelete() failed: %v", err)
	}
	if _, err = svc.Get(ctx, b.ID); err != bucket.ErrNotFound {
		t.Errorf("Get() after soft delete = %v; want %v", err, bucket.ErrNotFound)
	}
	if _, err = svc.GetAny(ctx, b.ID); err != nil {
		t.Errorf("GetAny() after soft delete failed: %v", err)
	}

	// a soft deleted bucket releases its number
	replacement, err := svc.Create(ctx, "un1", bucket.NewBucket{Number: 1, Name: "Replacement"})
	if err != nil {
		t.Fatalf("Create() with released number failed: %v", err)
	}

	// the old bucket cannot come back while the number is taken
	if _, err = svc.Restore(ctx, b.ID); err == nil {
		t.Fatal("Restore() succeeded despite the number conflict")
	}

	if err = svc.HardDelete(ctx, replacement.ID); err != nil {
		t.Fatalf("HardDelete() failed: %v", err)
	}
	restored, err := svc.Restore(ctx, b.ID)
	if err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}
	if restored.IsDeleted() {
		t.Error("bucket still marked deleted after restore")
	}
}

func Test_Service_cleanupOrphans(t *testing.T) {
	db := inmemdb.Open()
	svc := bucket.NewService(inmemdb.NewBucketRepository(db))
	memberSvc := member.NewService(inmemdb.NewMemberRepository(db))
	ctx := context.Background()

	keep, err := svc.Create(ctx, "un1", bucket.NewBucket{Number: 1, Name: "Keep"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	doomed, err := svc.Create(ctx, "un1", bucket.NewBucket{Number: 2, Name: "Doomed"})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}

	for _, bucketID := range []string{keep.ID, doomed.ID, doomed.ID} {
		if _, err = memberSvc.Create(ctx, bucketID, member.NewMember{FirstName: "Some", LastName: "Member"}); err != nil {
			t.Fatalf("memberSvc.Create() failed: %v", err)
		}
	}

	if err = svc.SoftDelete(ctx, doomed.ID); err != nil {
		t.Fatalf("SoftDelete() failed: %v", err)
	}

	// members of the deleted bucket linger as orphans until cleanup
	if n, _ := svc.CountOrphanedMembers(ctx); n != 2 {
		t.Errorf("CountOrphanedMembers() = %d; want 2", n)
	}

	members, buckets, err := svc.CleanupOrphans(ctx)
	if err != nil {
		t.Fatalf("CleanupOrphans() failed: %v", err)
	}
	if members != 2 || buckets != 1 {
		t.Errorf("CleanupOrphans() = (%d, %d); want (2, 1)", members, buckets)
	}

	if n, _ := svc.CountOrphanedMembers(ctx); n != 0 {
		t.Errorf("CountOrphanedMembers() after cleanup = %d; want 0", n)
	}
	if _, err = svc.GetAny(ctx, doomed.ID); err != bucket.ErrNotFound {
		t.Errorf("GetAny() after cleanup = %v; want %v", err, bucket.ErrNotFound)
	}
	remaining, err := memberSvc.QueryByBucket(ctx, keep.ID)
	if err != nil {
		t.Fatalf("QueryByBucket() failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Errorf("surviving bucket has %d members; want 1", len(remaining))
	}
}
