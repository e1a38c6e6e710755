package main

import (
	"context"
	"fmt"
)

// cleanupOrphans purges members stranded by soft deleted buckets, then the
// soft deleted buckets themselves. Meant for a periodic cron.
func (cli *commandLine) cleanupOrphans() error {
	ctx := context.Background()

	before, err := cli.bucketSvc.CountOrphanedMembers(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d orphaned member(s) found\n", before)

	members, buckets, err := cli.bucketSvc.CleanupOrphans(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("removed %d member(s) and %d bucket(s)\n", members, buckets)
	return nil
}
