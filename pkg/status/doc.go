// Package status persists link status snapshots.
//
// A [Status] records the counters of one link session and the running
// totals across sessions. The CLI saves one on exit so operators can see how
// noisy a link has been without keeping a process attached.
//
// # Usage
//
//	repo := status.NewFileRepository("/var/lib/b42/status.json")
//
//	prev, err := repo.Load(ctx)
//	if err != nil {
//	    return err
//	}
//	// ... run the link ...
//	s := status.Snapshot("/dev/ttyUSB0", h, startedAt).Merge(prev)
//	if err := repo.Save(ctx, s); err != nil {
//	    return err
//	}
//
// The file is JSON with snake_case field names and is replaced atomically.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package status
