package diskspace

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
)

func TestFree(t *testing.T) {
	t.Parallel()

	free, err := Free(t.TempDir())
	require.NoError(t, err)
	assert.Positive(t, free)

	_, err = Free(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestEnsure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tests := []struct {
		name    string
		dir     string
		need    uint64
		wantErr bool
	}{
		{name: "nothing needed", dir: dir, need: 0},
		{name: "one byte", dir: dir, need: 1},
		{name: "more than any disk", dir: dir, need: math.MaxUint64, wantErr: true},
		{name: "missing directory", dir: filepath.Join(dir, "nope"), need: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Ensure(tt.dir, tt.need)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, errors.CategorySystem))
		})
	}
}
