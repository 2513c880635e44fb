// Package updateinfo parses updateinfo.xml and normalizes its advisories
// into the records stored by fleure-db.
package updateinfo

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/fleure/fleure-db/compression"
	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/evr"
)

// ErrCorruptUpdate is returned for updates lacking the data every update
// must carry.
var ErrCorruptUpdate = errors.New("corrupt update info")

type Package struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Epoch    string `json:"epoch"`
	Version  string `json:"version"`
	Release  string `json:"release"`
	Arch     string `json:"arch"`
	Src      string `json:"src,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func (p Package) NEVRA() evr.NEVRA {
	return evr.NEVRA{Name: p.Name, Epoch: p.Epoch, Version: p.Version, Release: p.Release, Arch: p.Arch}
}

type Reference struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
	Type  string `json:"type,omitempty"`
	Href  string `json:"href,omitempty"`
}

type Repo struct {
	ID   string `json:"repo_id"`
	Name string `json:"repo_name"`
}

type Update struct {
	ID              int64       `json:"id"`
	Advisory        string      `json:"advisory"`
	Type            string      `json:"type"`
	Title           string      `json:"title"`
	Summary         string      `json:"summary,omitempty"`
	Description     string      `json:"description,omitempty"`
	Solution        string      `json:"solution,omitempty"`
	Issued          string      `json:"issued,omitempty"`
	Updated         string      `json:"updated,omitempty"`
	Release         string      `json:"release,omitempty"`
	Severity        string      `json:"severity,omitempty"`
	URL             string      `json:"url,omitempty"`
	RebootSuggested bool        `json:"reboot_suggested"`
	From            string      `json:"from,omitempty"`
	Status          string      `json:"status,omitempty"`
	Packages        []Package   `json:"pkglist"`
	References      []Reference `json:"references"`
	Repos           []Repo      `json:"repos"`
}

// PackageNames returns the sorted, unique names of the update's packages.
func (u Update) PackageNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, p := range u.Packages {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}

// ReferencesOf returns references of the given type, e.g. "cve".
func (u Update) ReferencesOf(refType string) []Reference {
	var refs []Reference
	for _, r := range u.References {
		if r.Type == refType {
			refs = append(refs, r)
		}
	}
	return refs
}

// HasRepo reports whether the update is already known in repoID.
func (u Update) HasRepo(repoID string) bool {
	for _, r := range u.Repos {
		if r.ID == repoID {
			return true
		}
	}
	return false
}

// Normalize turns a raw update loaded for repo into an Update.
func Normalize(raw RawUpdate, repo string) (Update, error) {
	if raw.ID == "" {
		return Update{}, fmt.Errorf("%w: update without id", ErrCorruptUpdate)
	}
	if len(raw.Collections) == 0 {
		return Update{}, fmt.Errorf("%w: %s has no pkglist collection", ErrCorruptUpdate, raw.ID)
	}

	upd := Update{
		ID:              AdvisoryID(raw.ID),
		Advisory:        raw.ID,
		Type:            raw.Type,
		Title:           strings.TrimSpace(raw.Title),
		Summary:         strings.TrimSpace(raw.Summary),
		Description:     strings.TrimSpace(raw.Description),
		Solution:        strings.TrimSpace(raw.Solution),
		Issued:          raw.Issued.Date,
		Updated:         raw.Updated.Date,
		Release:         raw.Release,
		Severity:        raw.Severity,
		RebootSuggested: isTrue(raw.RebootSuggested),
		From:            raw.From,
		Status:          raw.Status,
		URL:             urlOf(raw.References),
		Packages:        []Package{},
		References:      []Reference{},
	}

	first := raw.Collections[0]
	repoID := first.Short
	if repoID == "" {
		repoID = repo
	}
	upd.Repos = []Repo{{ID: repoID, Name: first.Name}}

	for _, c := range raw.Collections {
		for _, p := range c.Packages {
			if isTrue(p.RebootSuggested) {
				upd.RebootSuggested = true
			}
			upd.Packages = append(upd.Packages, Package{
				ID:       GenID(p.Name, p.Epoch, p.Version, p.Release, p.Arch),
				Name:     p.Name,
				Epoch:    p.Epoch,
				Version:  p.Version,
				Release:  p.Release,
				Arch:     p.Arch,
				Src:      p.Src,
				Filename: p.Filename,
			})
		}
	}

	// Keep cve, bugzilla and the like; the self reference is the url.
	for _, r := range raw.References {
		if r.ID == "" || r.Type == "self" {
			continue
		}
		upd.References = append(upd.References, Reference{ID: r.ID, Title: r.Title, Type: r.Type, Href: r.Href})
	}

	return upd, nil
}

func urlOf(refs []RawReference) string {
	for _, r := range refs {
		if r.Type == "self" && r.Href != "" {
			return r.Href
		}
	}
	if len(refs) > 0 {
		return refs[0].Href
	}
	return ""
}

func isTrue(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// NormalizeAll normalizes every update of raw. Corrupt updates are logged
// and skipped.
func NormalizeAll(raw *RawUpdates, repo string) []Update {
	updates := make([]Update, 0, len(raw.Updates))
	for _, ru := range raw.Updates {
		upd, err := Normalize(ru, repo)
		if err != nil {
			dblog.L.Warn("skipping update of %s: %v", repo, err)
			continue
		}
		updates = append(updates, upd)
	}
	return updates
}

// Load reads and parses the (possibly compressed) updateinfo file at path.
func Load(path string) (*RawUpdates, error) {
	r, err := compression.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer r.Close()

	raw, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return raw, nil
}
