package hub

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// lockedDownload downloads url to filePath.
//
// If filePath exists it is assumed to have been correctly downloaded and the
// call returns immediately. Otherwise the body is written to
// filePath+".downloading" and atomically renamed into place, under a
// filePath+".lock" file lock so that multiple processes pulling the same
// artifact do exactly one download between them.
func lockedDownload(ctx context.Context, url, filePath string) error {
	if fileExists(filePath) {
		return nil
	}

	// Don't bother locking if the context is already gone.
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(path.Dir(filePath), DefaultDirCreationPerm); err != nil {
		return errors.Wrapf(err, "failed to create directory for file %q", filePath)
	}

	lockPath := filePath + ".lock"
	var mainErr error
	errLock := execOnFileLock(ctx, lockPath, func() {
		if fileExists(filePath) {
			// A concurrent process (or goroutine) won the race and the
			// artifact is already in place.
			return
		}

		tmpPath := filePath + ".downloading"
		mainErr = downloadToFile(ctx, url, tmpPath)
		if mainErr != nil {
			mainErr = errors.WithMessagef(mainErr, "while downloading %q to %q", url, tmpPath)
			return
		}
		if err := os.Rename(tmpPath, filePath); err != nil {
			mainErr = errors.Wrapf(err, "failed to move downloaded file %q to %q", tmpPath, filePath)
			return
		}

		// The artifact exists now, so the lock file has served its purpose.
		if err := os.Remove(lockPath); err != nil {
			klog.Warningf("error removing lock file %q: %v", lockPath, err)
		}
	})
	if mainErr != nil {
		return mainErr
	}
	if errLock != nil {
		return errors.WithMessagef(errLock, "while locking %q to download %q", lockPath, url)
	}
	return nil
}

// downloadToFile streams url into tmpPath, removing the partial file on any
// failure path.
func downloadToFile(ctx context.Context, url, tmpPath string) (err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrapf(err, "building request for %q", url)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "requesting %q", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %q: %s", url, resp.Status)
	}

	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for download in %q", tmpPath)
	}
	defer func() {
		if closeErr := tmpFile.Close(); closeErr != nil && err == nil {
			err = errors.Wrapf(closeErr, "closing temporary download file %q", tmpPath)
		}
		if err != nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
				klog.Warningf("failed removing temporary file %q: %v", tmpPath, rmErr)
			}
		}
	}()

	klog.V(1).Infof("downloading %q", url)
	n, err := io.Copy(tmpFile, resp.Body)
	if err != nil {
		return errors.Wrapf(err, "downloading %q", url)
	}
	klog.V(1).Infof("downloaded %q (%d bytes)", url, n)
	return nil
}

// execOnFileLock opens lockPath (creating it if needed), locks it, and runs
// fn. If the lock is held elsewhere it polls every 1 to 2 seconds (randomly)
// until it acquires the lock or the context ends. The lock file is not
// removed; fn may remove it itself once no further callers are expected.
func execOnFileLock(ctx context.Context, lockPath string, fn func()) (err error) {
	fileLock := flock.New(lockPath)
	for {
		locked, err := fileLock.TryLock()
		if err != nil {
			return errors.Wrapf(err, "while trying to lock %q", lockPath)
		}
		if locked {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * time.Duration(1000+rand.Intn(1000))):
		}
	}

	// Unlock in a deferred function so it happens even if fn panics.
	defer func() {
		if unlockErr := fileLock.Unlock(); unlockErr != nil {
			if err == nil {
				err = errors.Wrapf(unlockErr, "unlocking file %q", lockPath)
			} else {
				klog.Warningf("error unlocking file %q: %v", lockPath, unlockErr)
			}
		}
	}()

	fn()
	return
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
