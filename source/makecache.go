package source

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/repodata"
)

const lockTimeout = 10 * time.Minute

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// MakeCacheArgs returns the command line refreshing the cache of repos
// under root.
func MakeCacheArgs(dnf bool, repos, opts []string, root string) ([]string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cmd := "yum"
	if dnf {
		cmd = "dnf"
	}
	args := []string{cmd, "makecache", "--installroot", absRoot, "--disablerepo", "*"}
	for _, r := range repos {
		args = append(args, "--enablerepo", r)
	}
	return append(args, opts...), nil
}

// LockPath returns the lock file serializing makecache runs for root. Users
// other than root lock in their own cache directory.
func LockPath(root string) (string, error) {
	if os.Getuid() != 0 {
		return xdg.CacheFile(filepath.Join("fleure-db", "makecache.lock"))
	}
	dir := filepath.Join(root, repodata.NativeCacheDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, "makecache.lock"), nil
}

// WithLock runs fn while holding the makecache lock of root.
func WithLock(ctx context.Context, root string, fn func() error) error {
	lockPath, err := LockPath(root)
	if err != nil {
		return fmt.Errorf("unable to get lock path: %w", err)
	}

	fileLock := flock.New(lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock: timeout after %v", lockTimeout)
	}
	defer fileLock.Unlock()

	return fn()
}

// MakeCache runs dnf (or yum) makecache for repos under root.
func MakeCache(ctx context.Context, runner Runner, repos, opts []string, root string) error {
	args, err := MakeCacheArgs(repodata.IsDNFAvailable(), repos, opts, root)
	if err != nil {
		return err
	}

	return WithLock(ctx, root, func() error {
		dblog.L.Info("Running: %v", args)
		out, err := runner.Run(ctx, args[0], args[1:]...)
		if err != nil {
			return fmt.Errorf("%s makecache failed: %w: %s", args[0], err, out)
		}
		dblog.L.Debug("%s", out)
		return nil
	})
}
