package lumimask

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karma-hep/trigweight/weight"
)

func TestLoad_Contains(t *testing.T) {
	// GIVEN the certified blocks of three runs
	m, err := Load(filepath.Join("testdata", "golden.json"))
	require.NoError(t, err)

	tests := []struct {
		run  weight.RunID
		lumi weight.LumiID
		want bool
	}{
		{273158, 1, true},
		{273158, 1279, true},
		{273158, 1280, false},
		{273158, 0, false},
		{273302, 459, true},
		{273302, 460, false},
		{273302, 461, true},
		{273302, 500, true},
		{273302, 501, false},
		{273402, 99, false},
		{273402, 100, true},
		{999999, 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Contains(tt.run, tt.lumi), "run %d lumi %d", tt.run, tt.lumi)
	}
}

func TestParse_UnsortedRanges(t *testing.T) {
	m, err := Parse([]byte(`{"1": [[20, 30], [1, 5]]}`))
	require.NoError(t, err)
	assert.True(t, m.Contains(1, 3))
	assert.True(t, m.Contains(1, 25))
	assert.False(t, m.Contains(1, 10))
}

func TestParse_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"not json":        `{"1": [[1, 2]]`,
		"run not numeric": `{"abc": [[1, 2]]}`,
		"short range":     `{"1": [[1]]}`,
		"reversed range":  `{"1": [[5, 2]]}`,
		"overlap":         `{"1": [[1, 10], [10, 20]]}`,
		"negative lumi":   `{"1": [[-1, 2]]}`,
	} {
		_, err := Parse([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
