package repodata

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/fleure/fleure-db/compression"
)

// ErrNotFound is returned when no cached updateinfo exists for a repo.
var ErrNotFound = errors.New("updateinfo not found")

// NativeCacheDir is where the native makecache stores repodata, relative to
// the root.
const NativeCacheDir = "var/cache/fleure-db"

// IsDNFAvailable reports whether dnf is used instead of yum.
func IsDNFAvailable() bool {
	_, err := os.Stat("/etc/dnf")
	return err == nil
}

// Finder locates the updateinfo files yum or dnf cached under Root:
//
//	yum:        <root>/var/cache/yum/<arch>/<ver>/<repo>/<checksum>-updateinfo.xml.gz
//	dnf (root): <root>/var/cache/dnf/<repo>-*/repodata/<checksum>-updateinfo.xml.gz
//	dnf (user): <root>/var/tmp/dnf-<user>-*/<repo>-*/repodata/<checksum>-updateinfo.xml.gz
//	native:     <root>/var/cache/fleure-db/<repo>/repodata/<checksum>-updateinfo.xml.gz
type Finder struct {
	Root string
	DNF  bool
	UID  int
	User string
}

// NewFinder returns a Finder for the running user.
func NewFinder(root string) Finder {
	f := Finder{Root: root, DNF: IsDNFAvailable(), UID: os.Getuid()}
	if u, err := user.Current(); err == nil {
		f.User = u.Username
	} else {
		f.User = strconv.Itoa(f.UID)
	}
	return f
}

// Patterns returns the glob patterns searched for repo, without the
// compression suffix.
func (f Finder) Patterns(repo string) []string {
	var dirs []string
	if f.DNF {
		if f.UID == 0 {
			dirs = append(dirs, filepath.Join(f.Root, "var/cache/dnf", repo+"-*", "repodata"))
		} else {
			dirs = append(dirs, filepath.Join(f.Root, "var/tmp", "dnf-"+f.User+"-*", repo+"-*", "repodata"))
		}
	} else {
		dirs = append(dirs, filepath.Join(f.Root, "var/cache/yum/*/*", repo))
	}
	dirs = append(dirs, filepath.Join(f.Root, NativeCacheDir, repo, "repodata"))

	patterns := make([]string, 0, len(dirs))
	for _, d := range dirs {
		patterns = append(patterns, filepath.Join(d, "*-updateinfo.xml"))
	}
	return patterns
}

// Find returns the most recently modified updateinfo file cached for repo.
func (f Finder) Find(repo string) (string, error) {
	type candidate struct {
		path  string
		mtime int64
	}
	var found []candidate

	for _, pattern := range f.Patterns(repo) {
		for _, suffix := range append([]string{""}, compression.Suffixes()...) {
			matches, err := filepath.Glob(pattern + suffix)
			if err != nil {
				return "", err
			}
			for _, m := range matches {
				fi, err := os.Stat(m)
				if err != nil {
					continue
				}
				found = append(found, candidate{path: m, mtime: fi.ModTime().UnixNano()})
			}
		}
	}

	if len(found) == 0 {
		return "", fmt.Errorf("%w: repo=%s, root=%s", ErrNotFound, repo, f.Root)
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].mtime > found[j].mtime })
	return found[0].path, nil
}
