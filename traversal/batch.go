package traversal

import (
	"time"

	"github.com/nexusfs/engine/types"
)

// batchChannel coalesces entries into Batch values bounded by count (n) or
// time (interval), whichever fires first, per the Batcher's policy. It
// always emits exactly one terminal Batch{Done: true} when entries closes,
// after draining errc for the traversal's terminal error (if any).
func batchChannel(generation types.Generation, entries <-chan types.FileEntry, errc <-chan error, n int, interval time.Duration) <-chan Batch {
	out := make(chan Batch)

	go func() {
		defer close(out)

		buf := make([]types.FileEntry, 0, n)
		timer := time.NewTimer(interval)
		if !timer.Stop() {
			<-timer.C
		}
		timerArmed := false

		flush := func() {
			if len(buf) == 0 {
				return
			}
			out <- Batch{Generation: generation, Entries: buf}
			buf = make([]types.FileEntry, 0, n)
		}

		for {
			select {
			case e, ok := <-entries:
				if !ok {
					flush()
					var ferr *types.Error
					if err, hasErr := <-errc; hasErr && err != nil {
						ferr = types.Classify("", err)
					}
					if timerArmed && !timer.Stop() {
						<-timer.C
					}
					out <- Batch{Generation: generation, Done: true, Err: ferr}
					return
				}
				if len(buf) == 0 {
					timer.Reset(interval)
					timerArmed = true
				}
				buf = append(buf, e)
				if len(buf) >= n {
					if timerArmed {
						if !timer.Stop() {
							<-timer.C
						}
						timerArmed = false
					}
					flush()
				}
			case <-timer.C:
				timerArmed = false
				flush()
			}
		}
	}()

	return out
}
