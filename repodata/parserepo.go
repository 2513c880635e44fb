package repodata

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/fleure/fleure-db/dblog"
)

// RepoConfig represents the structure of a YUM repo configuration
type RepoConfig struct {
	ID       string
	Name     string
	BaseURL  string
	Enabled  bool
	GPGCheck bool
}

func reposDir(root string) string {
	return filepath.Join(root, "etc", "yum.repos.d")
}

// getVerAndArch returns VERSION_ID of <root>/etc/os-release and the rpm arch
// of the running binary.
func getVerAndArch(root string) (release, arch string) {
	arch = archMap[runtime.GOARCH]

	file, err := os.Open(filepath.Join(root, "etc", "os-release"))
	if err != nil {
		dblog.L.Debug("Error opening os-release: %v", err)
		return "", arch
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VERSION_ID=") {
			release = strings.Trim(strings.TrimPrefix(line, "VERSION_ID="), `"`)
			break
		}
	}

	if err := scanner.Err(); err != nil {
		dblog.L.Warn("Error reading os-release: %v", err)
	}
	return release, arch
}

// GetRepos loads every section of <root>/etc/yum.repos.d/*.repo.
func GetRepos(root string) (map[string]RepoConfig, error) {
	repoConfigs := make(map[string]RepoConfig)
	release, arch := getVerAndArch(root)

	paths, err := filepath.Glob(filepath.Join(reposDir(root), "*.repo"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	for _, path := range paths {
		dblog.L.Debug("loading repo file: %s", path)
		cfg, err := ini.Load(path)
		if err != nil {
			dblog.L.Warn("skipping broken repo file %s: %v", path, err)
			continue
		}

		for _, section := range cfg.Sections() {
			if section.Name() == ini.DefaultSection {
				continue
			}

			rc := RepoConfig{
				ID:       section.Name(),
				Name:     section.Key("name").String(),
				BaseURL:  section.Key("baseurl").String(),
				Enabled:  section.Key("enabled").MustBool(true),
				GPGCheck: section.Key("gpgcheck").MustBool(false),
			}

			rc.BaseURL = strings.ReplaceAll(rc.BaseURL, "$releasever", release)
			rc.BaseURL = strings.ReplaceAll(rc.BaseURL, "$basearch", arch)
			// baseurl may list mirrors, one per line.
			if fields := strings.Fields(rc.BaseURL); len(fields) > 0 {
				rc.BaseURL = fields[0]
			}
			repoConfigs[rc.ID] = rc
		}
	}

	for key, rc := range repoConfigs {
		dblog.L.Debug("repo: %s enabled=%v url=%s", key, rc.Enabled, rc.BaseURL)
	}

	return repoConfigs, nil
}

// EnabledRepoIDs returns the sorted ids of enabled repos under root.
func EnabledRepoIDs(root string) ([]string, error) {
	repos, err := GetRepos(root)
	if err != nil {
		return nil, fmt.Errorf("loading repo files: %w", err)
	}

	var ids []string
	for id, rc := range repos {
		if rc.Enabled {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
