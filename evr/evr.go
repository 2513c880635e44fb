// Package evr compares RPM package versions.
package evr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cavaliergopher/rpm"
)

// ErrMismatch is returned when packages of different names or archs are
// compared.
var ErrMismatch = errors.New("packages are not comparable")

// NEVRA identifies one build of a package.
type NEVRA struct {
	Name    string
	Epoch   string
	Version string
	Release string
	Arch    string
}

func (p NEVRA) String() string {
	if e := ParseEpoch(p.Epoch); e != 0 {
		return fmt.Sprintf("%s-%d:%s-%s.%s", p.Name, e, p.Version, p.Release, p.Arch)
	}
	return fmt.Sprintf("%s-%s-%s.%s", p.Name, p.Version, p.Release, p.Arch)
}

// ParseEpoch treats "", "(none)" and garbage as epoch 0.
func ParseEpoch(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || s == "(none)" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// version adapts NEVRA to rpm.Version.
type version struct {
	epoch   int
	version string
	release string
}

func (v version) Epoch() int      { return v.epoch }
func (v version) Version() string { return v.version }
func (v version) Release() string { return v.release }

func toVersion(p NEVRA) version {
	return version{epoch: ParseEpoch(p.Epoch), version: p.Version, release: p.Release}
}

// Compare returns -1, 0 or 1 comparing epoch, version and release of a and
// b with rpmvercmp semantics. Names and archs are ignored.
func Compare(a, b NEVRA) int {
	return rpm.Compare(toVersion(a), toVersion(b))
}

// ComparePackages is Compare for packages known to be the same name and arch.
func ComparePackages(a, b NEVRA) (int, error) {
	if a.Name != b.Name {
		return 0, fmt.Errorf("%w: different names: %s, %s", ErrMismatch, a, b)
	}
	if a.Arch != b.Arch {
		return 0, fmt.Errorf("%w: different archs: %s, %s", ErrMismatch, a, b)
	}
	return Compare(a, b), nil
}

// Latest returns the newest package per name, sorted by name.
func Latest(pkgs []NEVRA) []NEVRA {
	latest := make(map[string]NEVRA)
	for _, p := range pkgs {
		cur, ok := latest[p.Name]
		if !ok || Compare(p, cur) > 0 {
			latest[p.Name] = p
		}
	}

	res := make([]NEVRA, 0, len(latest))
	for _, p := range latest {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
