// Package installed lists the RPMs installed on a system, or found in a
// directory, and selects the updates applicable to them.
package installed

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cavaliergopher/rpm"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/evr"
	"github.com/fleure/fleure-db/source"
	"github.com/fleure/fleure-db/updateinfo"
)

// DefaultVendor is the vendor of packages not counted as from others.
const DefaultVendor = "Red Hat, Inc."

type Package struct {
	evr.NEVRA
	Vendor    string
	SourceRPM string
}

const queryFormat = `%{NAME}\t%{EPOCH}\t%{VERSION}\t%{RELEASE}\t%{ARCH}\t%{VENDOR}\t%{SOURCERPM}\n`

// List returns the packages of the rpm database under root, as reported
// by rpm -qa.
func List(ctx context.Context, runner source.Runner, root string) ([]Package, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	out, err := runner.Run(ctx, "rpm", "-qa", "--root", absRoot, "--qf", queryFormat)
	if err != nil {
		return nil, fmt.Errorf("rpm -qa failed: %w: %s", err, out)
	}
	return parseQueryOutput(out)
}

func parseQueryOutput(out []byte) ([]Package, error) {
	var pkgs []Package
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 5 {
			return nil, fmt.Errorf("malformed rpm output: %q", line)
		}
		for len(fields) < 7 {
			fields = append(fields, "")
		}
		if fields[5] == "(none)" {
			fields[5] = ""
		}
		pkgs = append(pkgs, Package{
			NEVRA: evr.NEVRA{
				Name:    fields[0],
				Epoch:   strconv.Itoa(evr.ParseEpoch(fields[1])),
				Version: fields[2],
				Release: fields[3],
				Arch:    fields[4],
			},
			Vendor:    fields[5],
			SourceRPM: fields[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sortPackages(pkgs)
	return pkgs, nil
}

// ScanDir reads the headers of the *.rpm files in dir.
func ScanDir(dir string) ([]Package, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.rpm"))
	if err != nil {
		return nil, err
	}

	pkgs := make([]Package, 0, len(paths))
	for _, path := range paths {
		p, err := rpm.Open(path)
		if err != nil {
			dblog.L.Warn("skipping %s: %v", path, err)
			continue
		}
		pkgs = append(pkgs, Package{
			NEVRA: evr.NEVRA{
				Name:    p.Name(),
				Epoch:   strconv.Itoa(p.Epoch()),
				Version: p.Version(),
				Release: p.Release(),
				Arch:    p.Architecture(),
			},
			Vendor:    p.Vendor(),
			SourceRPM: p.SourceRPM(),
		})
	}
	sortPackages(pkgs)
	return pkgs, nil
}

func sortPackages(pkgs []Package) {
	sort.SliceStable(pkgs, func(i, j int) bool {
		if pkgs[i].Name != pkgs[j].Name {
			return pkgs[i].Name < pkgs[j].Name
		}
		return pkgs[i].Arch < pkgs[j].Arch
	})
}

// FromOthers returns the packages not built by vendor.
func FromOthers(pkgs []Package, vendor string) []Package {
	var res []Package
	for _, p := range pkgs {
		if p.Vendor != vendor {
			res = append(res, p)
		}
	}
	return res
}

// newer reports whether up updates ip: same name, same arch unless one of
// them is noarch, and a higher EVR.
func newer(up, ip evr.NEVRA) bool {
	if up.Arch == "noarch" || ip.Arch == "noarch" {
		up.Arch = ip.Arch
	}
	c, err := evr.ComparePackages(up, ip)
	return err == nil && c > 0
}

// Applicable returns the updates carrying a package newer than an
// installed package of the same name and a compatible arch.
func Applicable(updates []updateinfo.Update, pkgs []Package) []updateinfo.Update {
	byName := make(map[string][]Package)
	for _, p := range pkgs {
		byName[p.Name] = append(byName[p.Name], p)
	}

	var res []updateinfo.Update
	for _, u := range updates {
		if isApplicable(u, byName) {
			res = append(res, u)
		}
	}
	return res
}

func isApplicable(u updateinfo.Update, byName map[string][]Package) bool {
	for _, up := range u.Packages {
		for _, ip := range byName[up.Name] {
			if newer(up.NEVRA(), ip.NEVRA) {
				return true
			}
		}
	}
	return false
}

// UpdatePackages returns the packages of updates that would update pkgs:
// the newest one per name.
func UpdatePackages(updates []updateinfo.Update, pkgs []Package) []evr.NEVRA {
	byName := make(map[string][]Package)
	for _, p := range pkgs {
		byName[p.Name] = append(byName[p.Name], p)
	}

	var candidates []evr.NEVRA
	for _, u := range updates {
		for _, up := range u.Packages {
			for _, ip := range byName[up.Name] {
				if newer(up.NEVRA(), ip.NEVRA) {
					candidates = append(candidates, up.NEVRA())
					break
				}
			}
		}
	}
	return evr.Latest(candidates)
}
