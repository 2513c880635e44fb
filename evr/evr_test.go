package evr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComparePackages(t *testing.T) {
	base := NEVRA{Name: "kernel", Epoch: "0", Version: "3.10.0", Release: "514.el7", Arch: "x86_64"}

	tests := []struct {
		name  string
		other NEVRA
		want  int
	}{
		{"same", base, 0},
		{"newer release", NEVRA{"kernel", "0", "3.10.0", "514.2.2.el7", "x86_64"}, -1},
		{"older version", NEVRA{"kernel", "", "3.9.9", "999.el7", "x86_64"}, 1},
		{"numeric not lexical", NEVRA{"kernel", "0", "3.10.0", "99.el7", "x86_64"}, 1},
		{"epoch wins", NEVRA{"kernel", "1", "2.6.32", "1.el6", "x86_64"}, -1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComparePackages(base, tc.other)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestComparePackagesMismatch(t *testing.T) {
	a := NEVRA{Name: "glibc", Version: "2.17", Release: "1", Arch: "x86_64"}

	_, err := ComparePackages(a, NEVRA{Name: "bash", Version: "2.17", Release: "1", Arch: "x86_64"})
	assert.True(t, errors.Is(err, ErrMismatch))

	_, err = ComparePackages(a, NEVRA{Name: "glibc", Version: "2.17", Release: "1", Arch: "i686"})
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestParseEpoch(t *testing.T) {
	assert.Equal(t, 0, ParseEpoch(""))
	assert.Equal(t, 0, ParseEpoch("(none)"))
	assert.Equal(t, 2, ParseEpoch("2"))
	assert.Equal(t, 0, ParseEpoch("x"))
}

func TestLatest(t *testing.T) {
	pkgs := []NEVRA{
		{"openssl", "1", "1.0.1e", "60.el7", "x86_64"},
		{"bash", "0", "4.2.46", "20.el7", "x86_64"},
		{"openssl", "1", "1.0.2k", "8.el7", "x86_64"},
		{"bash", "0", "4.2.46", "19.el7", "x86_64"},
	}

	got := Latest(pkgs)
	require.Len(t, got, 2)
	assert.Equal(t, "bash-4.2.46-20.el7.x86_64", got[0].String())
	assert.Equal(t, "openssl-1:1.0.2k-8.el7.x86_64", got[1].String())
}
