package analysis

import (
	"sort"
	"strings"

	"github.com/fleure/fleure-db/updateinfo"
)

// Severities of security errata, most severe first.
var Severities = []string{"Critical", "Important", "Moderate", "Low"}

type Options struct {
	// Score is the lowest CVSS score of errata listed by score; 0 disables
	// the CVSS analysis.
	Score           float64
	Keywords        []string
	PackageKeywords map[string][]string
	CoreRPMs        []string
	Stemming        bool
}

type SecurityAnalysis struct {
	List                   []Erratum            `json:"list"`
	Critical               []Erratum            `json:"list_critical"`
	Important              []Erratum            `json:"list_important"`
	LatestCritical         []Erratum            `json:"list_latest_critical"`
	LatestImportant        []Erratum            `json:"list_latest_important"`
	CriticalUpdates        []updateinfo.Package `json:"list_critical_updates"`
	ImportantUpdates       []updateinfo.Package `json:"list_important_updates"`
	RateBySeverity         []NameCount          `json:"rate_by_sev"`
	NumByPackages          []NameCount          `json:"list_n_by_pnames"`
	NumCriticalByPackages  []NameCount          `json:"list_n_cri_by_pnames"`
	NumImportantByPackages []NameCount          `json:"list_n_imp_by_pnames"`
	ByPackages             []UpdateErrata       `json:"list_by_packages"`
	HigherCVSS             []Erratum            `json:"list_higher_cvss_score"`
	HigherCVSSUpdates      []updateinfo.Package `json:"list_higher_cvss_updates"`
}

type BugAnalysis struct {
	List                 []Erratum            `json:"list"`
	ByKeywords           []Erratum            `json:"list_by_kwds"`
	OfCoreRPMs           []Erratum            `json:"list_of_core_rpms"`
	LatestOfCoreRPMs     []Erratum            `json:"list_latests_of_core_rpms"`
	ByKeywordsOfCoreRPMs []Erratum            `json:"list_by_kwds_of_core_rpms"`
	UpdatesByKeywords    []updateinfo.Package `json:"list_updates_by_kwds"`
	NumByPackages        []NameCount          `json:"list_n_by_pnames"`
	ByPackages           []UpdateErrata       `json:"list_by_packages"`
	HigherCVSS           []Erratum            `json:"list_higher_cvss_score"`
	HigherCVSSUpdates    []updateinfo.Package `json:"list_higher_cvss_updates"`
}

type EnhancementAnalysis struct {
	List       []Erratum      `json:"list"`
	ByPackages []UpdateErrata `json:"list_by_packages"`
}

// Result is the outcome of AnalyzeErrata.
type Result struct {
	Security    SecurityAnalysis    `json:"rhsa"`
	Bug         BugAnalysis         `json:"rhba"`
	Enhancement EnhancementAnalysis `json:"rhea"`
	RateByType  []NameCount         `json:"rate_by_type"`
}

func numByPackages(ers []Erratum) []NameCount {
	return UpdatesByNumOfErrata(UpdateErrataPairs(ers))
}

// AnalyzeSecurity computes statistics of security errata.
func AnalyzeSecurity(ers []Erratum) SecurityAnalysis {
	critical := ofSeverity(ers, "Critical")
	important := ofSeverity(ers, "Important")

	rate := make([]NameCount, 0, len(Severities))
	for _, sev := range Severities {
		rate = append(rate, NameCount{Name: sev, Count: len(ofSeverity(ers, sev))})
	}

	pairs := UpdateErrataPairs(ers)
	return SecurityAnalysis{
		List:                   ers,
		Critical:               critical,
		Important:              important,
		LatestCritical:         LatestErrataByUpdates(critical),
		LatestImportant:        LatestErrataByUpdates(important),
		CriticalUpdates:        UpdatesFromErrata(critical),
		ImportantUpdates:       UpdatesFromErrata(important),
		RateBySeverity:         rate,
		NumByPackages:          UpdatesByNumOfErrata(pairs),
		NumCriticalByPackages:  numByPackages(critical),
		NumImportantByPackages: numByPackages(important),
		ByPackages:             pairs,
	}
}

// byKeywordsFirst orders errata by number of matched keywords, issue date
// and package names, all descending.
func byKeywordsFirst(ers []Erratum) {
	sort.SliceStable(ers, func(i, j int) bool {
		a, b := ers[i], ers[j]
		if len(a.Keywords) != len(b.Keywords) {
			return len(a.Keywords) > len(b.Keywords)
		}
		if a.Issued != b.Issued {
			return a.Issued > b.Issued
		}
		return compareNames(a.PackageNamesList, b.PackageNamesList) > 0
	})
}

func compareNames(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// AnalyzeBug computes statistics of bug errata.
func AnalyzeBug(ers []Erratum, opts Options) BugAnalysis {
	byKwds := ErrataOfKeywords(ers, opts.Keywords, opts.PackageKeywords, opts.Stemming)
	byKeywordsFirst(byKwds)

	byKwdsOfCore := ErrataOfRPMs(byKwds, opts.CoreRPMs)
	byKeywordsFirst(byKwdsOfCore)

	ofCore := ErrataOfRPMs(ers, opts.CoreRPMs)
	sort.SliceStable(ofCore, func(i, j int) bool {
		return compareNames(ofCore[i].PackageNamesList, ofCore[j].PackageNamesList) > 0
	})

	pairs := UpdateErrataPairs(ers)
	return BugAnalysis{
		List:                 ers,
		ByKeywords:           byKwds,
		OfCoreRPMs:           ofCore,
		LatestOfCoreRPMs:     LatestErrataByUpdates(ofCore),
		ByKeywordsOfCoreRPMs: byKwdsOfCore,
		UpdatesByKeywords:    UpdatesFromErrata(byKwds),
		NumByPackages:        UpdatesByNumOfErrata(pairs),
		ByPackages:           pairs,
	}
}

// AnalyzeErrata splits errata by kind and analyzes each kind.
func AnalyzeErrata(ers []Erratum, opts Options) Result {
	rhsa := ofKind(ers, Security)
	rhba := ofKind(ers, Bugfix)
	rhea := ofKind(ers, Enhancement)

	res := Result{
		Security:    AnalyzeSecurity(rhsa),
		Bug:         AnalyzeBug(rhba, opts),
		Enhancement: EnhancementAnalysis{List: rhea, ByPackages: UpdateErrataPairs(rhea)},
		RateByType: []NameCount{
			{Name: "Security", Count: len(rhsa)},
			{Name: "Bug", Count: len(rhba)},
			{Name: "Enhancement", Count: len(rhea)},
		},
	}

	if opts.Score > 0 {
		res.Security.HigherCVSS = HigherScoreCVEErrata(rhsa, opts.Score)
		res.Security.HigherCVSSUpdates = UpdatesFromErrata(res.Security.HigherCVSS)
		res.Bug.HigherCVSS = HigherScoreCVEErrata(rhba, opts.Score)
		res.Bug.HigherCVSSUpdates = UpdatesFromErrata(res.Bug.HigherCVSS)
	}
	return res
}
