package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karma-hep/trigweight/weight/period"
)

func writeJobFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJobConfig_Defaults(t *testing.T) {
	cfg, err := loadJobConfig(newSettings(), nil)
	require.NoError(t, err)

	assert.True(t, cfg.Global.IsData)
	assert.Equal(t, defaultHLTProcess, cfg.Global.HLTProcessName)
	assert.Equal(t, defaultFamily, cfg.Global.PrimaryFamily)
	assert.Empty(t, cfg.Global.Patterns)
	assert.Empty(t, cfg.Global.FamilyPatterns)
	assert.Equal(t, period.Reference, cfg.Period)
	assert.Equal(t, 1, cfg.Streams)
	assert.Empty(t, cfg.Records)
}

func TestLoadJobConfig_Overrides(t *testing.T) {
	v := newSettings()
	v.Set(isDataKey, false)
	v.Set(patternsKey, []string{`^HLT_Mu50_v[0-9]+$`})
	v.Set(streamsKey, 4)
	v.Set(requireFiredKey, true)

	cfg, err := loadJobConfig(v, nil)
	require.NoError(t, err)

	assert.False(t, cfg.Global.IsData)
	assert.Equal(t, []string{`^HLT_Mu50_v[0-9]+$`}, cfg.Global.Patterns)
	assert.Equal(t, 4, cfg.Streams)
	assert.True(t, cfg.RequireFired)
}

func TestLoadJobConfig_Invalid(t *testing.T) {
	t.Run("no process", func(t *testing.T) {
		v := newSettings()
		v.Set(hltProcessKey, "")
		_, err := loadJobConfig(v, nil)
		assert.Error(t, err)
	})
	t.Run("no streams", func(t *testing.T) {
		v := newSettings()
		v.Set(streamsKey, 0)
		_, err := loadJobConfig(v, nil)
		assert.Error(t, err)
	})
	t.Run("malformed family pattern", func(t *testing.T) {
		for _, arg := range []string{"HLT_PFJet99", "=HLT_PFJet99", "ak4="} {
			_, err := loadJobConfig(newSettings(), []string{arg})
			assert.Error(t, err, arg)
		}
	})
}

func TestLoadJobConfig_FamilyPatterns(t *testing.T) {
	// GIVEN family patterns from the config file and from the command line
	v := newSettings()
	path := writeJobFile(t, "job:\n  family_patterns:\n    ak4: [HLT_PFJet99]\n")
	require.NoError(t, readConfig(v, path))

	// WHEN the job configuration is loaded
	cfg, err := loadJobConfig(v, []string{"ak4=HLT_PFJet15", "dijetave=HLT_DiPFJetAve15"})
	require.NoError(t, err)

	// THEN both sources are attached to their family
	assert.Equal(t, map[string][]string{
		"ak4":      {"HLT_PFJet99", "HLT_PFJet15"},
		"dijetave": {"HLT_DiPFJetAve15"},
	}, cfg.Global.FamilyPatterns)

	// AND a second load starts from the file again
	again, err := loadJobConfig(v, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"ak4": {"HLT_PFJet99"}}, again.Global.FamilyPatterns)
}

func TestReadConfig_File(t *testing.T) {
	// GIVEN a job configuration file
	path := writeJobFile(t, "job:\n  hlt_process: HLT2\n  family: dijetave\nrun:\n  streams: 3\n")
	v := newSettings()

	// WHEN it is read
	require.NoError(t, readConfig(v, path))
	cfg, err := loadJobConfig(v, nil)
	require.NoError(t, err)

	// THEN its values reach the job configuration
	assert.Equal(t, "HLT2", cfg.Global.HLTProcessName)
	assert.Equal(t, "dijetave", cfg.Global.PrimaryFamily)
	assert.Equal(t, 3, cfg.Streams)
}

func TestReadConfig_FileAfterOverride(t *testing.T) {
	// GIVEN settings where the process and stream count were overridden
	overridden := newSettings()
	overridden.Set(hltProcessKey, "")
	overridden.Set(streamsKey, 0)
	_, err := loadJobConfig(overridden, nil)
	require.Error(t, err)

	// WHEN a config file is read into fresh settings
	v := newSettings()
	require.NoError(t, readConfig(v, writeJobFile(t, "job:\n  hlt_process: HLT2\nrun:\n  streams: 3\n")))
	cfg, err := loadJobConfig(v, nil)

	// THEN the file values win and nothing of the override leaks
	require.NoError(t, err)
	assert.Equal(t, "HLT2", cfg.Global.HLTProcessName)
	assert.Equal(t, 3, cfg.Streams)
	assert.Equal(t, defaultHLTProcess, settings.GetString(hltProcessKey))
}

func TestReadConfig_MissingFile(t *testing.T) {
	t.Run("explicit", func(t *testing.T) {
		assert.Error(t, readConfig(newSettings(), filepath.Join(t.TempDir(), "missing.yaml")))
	})
	t.Run("default", func(t *testing.T) {
		t.Chdir(t.TempDir())
		assert.NoError(t, readConfig(newSettings(), ""))
	})
}

func TestConfigureLogging(t *testing.T) {
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		logrus.SetLevel(logrus.InfoLevel)
	})

	t.Run("invalid level", func(t *testing.T) {
		v := newSettings()
		v.Set(logLevelKey, "chatty")
		assert.Error(t, configureLogging(v, &bytes.Buffer{}))
	})

	t.Run("rotating file", func(t *testing.T) {
		// GIVEN a log file next to stderr
		file := filepath.Join(t.TempDir(), "trigweight.log")
		v := newSettings()
		v.Set(logLevelKey, "debug")
		v.Set(logFileKey, file)
		var stderr bytes.Buffer

		// WHEN logging is configured and a message logged
		require.NoError(t, configureLogging(v, &stderr))
		logrus.Debug("resolved 3 paths")

		// THEN the message reaches both sinks
		assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
		assert.Contains(t, stderr.String(), "resolved 3 paths")
		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.Contains(t, string(data), "resolved 3 paths")
	})
}
