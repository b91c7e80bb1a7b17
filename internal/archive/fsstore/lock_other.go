//go:build !unix

package fsstore

import (
	"context"
	"errors"
	"os"
	"time"
)

const lockPollInterval = 50 * time.Millisecond

// acquireLock creates path exclusively, waiting until ctx is done. A lock
// file left by a crashed process has to be removed by hand.
func acquireLock(ctx context.Context, path string) (func(), error) {
	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// directories cannot be synced on these platforms.
func syncDir(string) error {
	return nil
}
