// Package analysis computes statistics of errata: security errata by
// severity, bug errata by keywords and core RPMs, errata of higher CVSS
// scores and similar errata by their descriptions.
package analysis

import (
	"sort"
	"strings"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/evr"
	"github.com/fleure/fleure-db/updateinfo"
)

// Errata kinds.
const (
	Security    = "security"
	Bugfix      = "bugfix"
	Enhancement = "enhancement"
)

// CVE is a cve reference of an erratum with its CVSS base metrics, if known.
type CVE struct {
	ID       string  `json:"cve"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Score    float64 `json:"score,omitempty"`
	Metrics  string  `json:"metrics,omitempty"`
	HasScore bool    `json:"-"`
}

// Bugzilla is a bugzilla reference of an erratum.
type Bugzilla struct {
	ID      string `json:"id"`
	Summary string `json:"summary,omitempty"`
	URL     string `json:"url"`
}

// Erratum is an update with the data the analysis adds to it.
type Erratum struct {
	updateinfo.Update
	PackageNamesList []string   `json:"update_names"`
	CVEs             []CVE      `json:"cves,omitempty"`
	Bugzillas        []Bugzilla `json:"bzs,omitempty"`
	Keywords         []string   `json:"keywords,omitempty"`
}

// NewErrata wraps updates. scores, possibly nil, gives CVSS data of CVEs.
func NewErrata(updates []updateinfo.Update, scores CVSSScores) []Erratum {
	ers := make([]Erratum, 0, len(updates))
	for _, u := range updates {
		e := Erratum{Update: u, PackageNamesList: u.PackageNames()}
		for _, r := range u.ReferencesOf("cve") {
			cve := CVE{ID: r.ID, Title: r.Title, URL: r.Href}
			if cve.Title == "" {
				cve.Title = r.ID
			}
			if s, ok := scores[r.ID]; ok {
				cve.Score, cve.Metrics, cve.HasScore = s.Score, s.Metrics, true
			}
			e.CVEs = append(e.CVEs, cve)
		}
		for _, r := range u.ReferencesOf("bugzilla") {
			e.Bugzillas = append(e.Bugzillas, Bugzilla{ID: r.ID, Summary: r.Title, URL: r.Href})
		}
		ers = append(ers, e)
	}
	return ers
}

// Kind returns Security, Bugfix or Enhancement. Updates without a known
// type are classified by their advisory, e.g. RHSA-2016:2872.
func Kind(u updateinfo.Update) string {
	switch u.Type {
	case Security, Bugfix, Enhancement:
		return u.Type
	}
	if len(u.Advisory) > 2 {
		switch u.Advisory[2] {
		case 'S':
			return Security
		case 'B':
			return Bugfix
		case 'E':
			return Enhancement
		}
	}
	return u.Type
}

// ErrataKeywords returns the keywords applied to errata of packages names:
// the global keywords plus the package specific ones, sorted and unique.
func ErrataKeywords(names, keywords []string, pkeywords map[string][]string) []string {
	set := make(map[string]bool)
	for _, k := range keywords {
		set[k] = true
	}
	for _, n := range names {
		for _, k := range pkeywords[n] {
			set[k] = true
		}
	}
	kwds := make([]string, 0, len(set))
	for k := range set {
		kwds = append(kwds, k)
	}
	sort.Strings(kwds)
	return kwds
}

// ErrataOfKeywords returns the errata whose description contains any of
// the keywords, with Keywords set to the matched ones. With stemming,
// "hangs" matches "hang".
func ErrataOfKeywords(ers []Erratum, keywords []string, pkeywords map[string][]string, stemming bool) []Erratum {
	m := matcher{stemming: stemming}

	var res []Erratum
	for _, e := range ers {
		kwds := ErrataKeywords(e.PackageNamesList, keywords, pkeywords)
		matched := m.match(e.Description, kwds)
		if len(matched) == 0 {
			continue
		}
		dblog.L.Debug("%s matched: keywords=%s", e.Advisory, strings.Join(matched, ", "))
		e.Keywords = matched
		res = append(res, e)
	}
	return res
}

// ErrataOfRPMs returns the errata updating any of rpms.
func ErrataOfRPMs(ers []Erratum, rpms []string) []Erratum {
	want := makeSet(rpms)

	var res []Erratum
	for _, e := range ers {
		for _, n := range e.PackageNamesList {
			if want[n] {
				res = append(res, e)
				break
			}
		}
	}
	return res
}

// UpdateErrata pairs a package name with the advisories updating it.
type UpdateErrata struct {
	Name       string   `json:"name"`
	Advisories []string `json:"advisories"`
}

// NameCount is a label with a number, e.g. a package and its errata count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// UpdateErrataPairs lists, for each package name, the advisories updating
// it, newest advisory first. Pairs are sorted by name.
func UpdateErrataPairs(ers []Erratum) []UpdateErrata {
	byName := make(map[string]map[string]bool)
	for _, e := range ers {
		for _, p := range e.Packages {
			if byName[p.Name] == nil {
				byName[p.Name] = make(map[string]bool)
			}
			byName[p.Name][e.Advisory] = true
		}
	}

	pairs := make([]UpdateErrata, 0, len(byName))
	for name, advs := range byName {
		ue := UpdateErrata{Name: name}
		for a := range advs {
			ue.Advisories = append(ue.Advisories, a)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(ue.Advisories)))
		pairs = append(pairs, ue)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Name < pairs[j].Name })
	return pairs
}

// UpdatesByNumOfErrata counts the advisories of each pair, most first.
func UpdatesByNumOfErrata(pairs []UpdateErrata) []NameCount {
	counts := make([]NameCount, 0, len(pairs))
	for _, p := range pairs {
		counts = append(counts, NameCount{Name: p.Name, Count: len(p.Advisories)})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// LatestErrataByUpdates groups errata by the set of packages they update
// and keeps the latest issued erratum of each group.
func LatestErrataByUpdates(ers []Erratum) []Erratum {
	groups := make(map[string]Erratum)
	var keys []string
	for _, e := range ers {
		key := strings.Join(e.PackageNamesList, " ")
		prev, ok := groups[key]
		if !ok {
			keys = append(keys, key)
		}
		if !ok || prev.Issued <= e.Issued {
			groups[key] = e
		}
	}

	sort.Strings(keys)
	res := make([]Erratum, 0, len(keys))
	for _, k := range keys {
		res = append(res, groups[k])
	}
	return res
}

// UpdatesFromErrata returns the newest package of each name updated by
// errata, sorted by name.
func UpdatesFromErrata(ers []Erratum) []updateinfo.Package {
	latest := make(map[string]updateinfo.Package)
	for _, e := range ers {
		for _, p := range e.Packages {
			prev, ok := latest[p.Name]
			if !ok || evr.Compare(p.NEVRA(), prev.NEVRA()) > 0 {
				latest[p.Name] = p
			}
		}
	}

	pkgs := make([]updateinfo.Package, 0, len(latest))
	for _, p := range latest {
		pkgs = append(pkgs, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs
}

// HigherScoreCVEErrata returns errata having a CVE whose CVSS score is
// score or higher. CVEs without a score are ignored.
func HigherScoreCVEErrata(ers []Erratum, score float64) []Erratum {
	var res []Erratum
	for _, e := range ers {
		for _, c := range e.CVEs {
			if c.HasScore && c.Score >= score {
				res = append(res, e)
				break
			}
		}
	}
	return res
}

func ofKind(ers []Erratum, kind string) []Erratum {
	var res []Erratum
	for _, e := range ers {
		if Kind(e.Update) == kind {
			res = append(res, e)
		}
	}
	return res
}

func ofSeverity(ers []Erratum, severity string) []Erratum {
	var res []Erratum
	for _, e := range ers {
		if e.Severity == severity {
			res = append(res, e)
		}
	}
	return res
}
