package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleure/fleure-db/evr"
	"github.com/fleure/fleure-db/installed"
)

func TestSaveAndListInstalled(t *testing.T) {
	s := openTestStore(t)
	ctx := t.Context()

	pkgs := []installed.Package{
		{NEVRA: evr.NEVRA{Name: "kernel", Epoch: "0", Version: "3.10.0", Release: "514.el7", Arch: "x86_64"}, Vendor: "Red Hat, Inc."},
		{NEVRA: evr.NEVRA{Name: "kernel-tools", Epoch: "0", Version: "3.10.0", Release: "514.el7", Arch: "x86_64"}, Vendor: "Red Hat, Inc."},
		{NEVRA: evr.NEVRA{Name: "bash", Epoch: "0", Version: "4.2.46", Release: "20.el7_2", Arch: "x86_64"}, Vendor: "Red Hat, Inc."},
	}
	require.NoError(t, s.SaveInstalled(ctx, pkgs))

	tests := []struct {
		name   string
		query  string
		strict bool
		want   []string
	}{
		{name: "all", want: []string{"bash", "kernel", "kernel-tools"}},
		{name: "strict", query: "kernel", strict: true, want: []string{"kernel"}},
		{name: "like", query: "kernel%", want: []string{"kernel", "kernel-tools"}},
		{name: "no match", query: "zsh", strict: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListInstalled(ctx, tt.query, tt.strict)
			require.NoError(t, err)
			var names []string
			for _, p := range got {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}

	// Saving again replaces the previous set.
	require.NoError(t, s.SaveInstalled(ctx, pkgs[:1]))
	got, err := s.ListInstalled(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pkgs[0], got[0])
}
