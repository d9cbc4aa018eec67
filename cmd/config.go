package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/karma-hep/trigweight/weight/period"
	"github.com/karma-hep/trigweight/weight/scope"
)

const (
	configBaseName = "trigweight"
	envPrefix      = "TRIGWEIGHT"

	isDataKey         = "job.is_data"
	hltProcessKey     = "job.hlt_process"
	periodKey         = "job.period"
	familyKey         = "job.family"
	patternsKey       = "job.patterns"
	familyPatternsKey = "job.family_patterns"
	lumiMaskKey       = "job.lumi_mask"
	requireFiredKey   = "job.require_fired"
	streamsKey        = "run.streams"
	recordsKey        = "output.records"

	logLevelKey      = "log.level"
	logFileKey       = "log.file"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultHLTProcess    = "HLT"
	defaultFamily        = "ak4"
	defaultStreams       = 1
	defaultLogLevel      = "info"
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
)

// settings holds the job configuration read by the CLI commands.
var settings = newSettings()

// newSettings returns a viper instance with the job defaults, the config
// file lookup and the TRIGWEIGHT_* environment binding.
func newSettings() *viper.Viper {
	v := viper.New()
	v.SetConfigName(configBaseName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault(isDataKey, true)
	v.SetDefault(hltProcessKey, defaultHLTProcess)
	v.SetDefault(periodKey, period.Reference)
	v.SetDefault(familyKey, defaultFamily)
	v.SetDefault(patternsKey, []string{})
	v.SetDefault(familyPatternsKey, map[string][]string{})
	v.SetDefault(lumiMaskKey, "")
	v.SetDefault(requireFiredKey, false)
	v.SetDefault(streamsKey, defaultStreams)
	v.SetDefault(recordsKey, "")

	v.SetDefault(logLevelKey, defaultLogLevel)
	v.SetDefault(logFileKey, "")
	v.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	v.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	v.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	v.SetDefault(logCompressKey, true)
	return v
}

// readConfig loads the job configuration file. A missing default file is
// fine; a missing explicit file is not.
func readConfig(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	logrus.Debugf("using config file %s", v.ConfigFileUsed())
	return nil
}

// configureLogging sets the logrus level and, if a log file is configured,
// tees log output into a rotating file.
func configureLogging(v *viper.Viper, stderr io.Writer) error {
	level, err := logrus.ParseLevel(v.GetString(logLevelKey))
	if err != nil {
		return fmt.Errorf("invalid log level %q", v.GetString(logLevelKey))
	}
	logrus.SetLevel(level)

	file := strings.TrimSpace(v.GetString(logFileKey))
	if file == "" {
		logrus.SetOutput(stderr)
		return nil
	}
	logrus.SetOutput(io.MultiWriter(stderr, &lumberjack.Logger{
		Filename:   file,
		MaxSize:    v.GetInt(logMaxSizeKey),
		MaxBackups: v.GetInt(logMaxBackupsKey),
		MaxAge:     v.GetInt(logMaxAgeKey),
		Compress:   v.GetBool(logCompressKey),
	}))
	return nil
}

// jobConfig is the resolved job-level configuration of a run.
type jobConfig struct {
	Global       scope.GlobalConfig
	Period       string
	LumiMask     string
	RequireFired bool
	Streams      int
	Records      string
}

// loadJobConfig reads the job settings from viper (flags, env, config file).
func loadJobConfig(v *viper.Viper, familyPatternArgs []string) (jobConfig, error) {
	cfg := jobConfig{
		Global: scope.GlobalConfig{
			IsData:         v.GetBool(isDataKey),
			HLTProcessName: v.GetString(hltProcessKey),
			PrimaryFamily:  v.GetString(familyKey),
			Patterns:       v.GetStringSlice(patternsKey),
			FamilyPatterns: make(map[string][]string),
		},
		Period:       v.GetString(periodKey),
		LumiMask:     v.GetString(lumiMaskKey),
		RequireFired: v.GetBool(requireFiredKey),
		Streams:      v.GetInt(streamsKey),
		Records:      v.GetString(recordsKey),
	}
	if cfg.Global.HLTProcessName == "" {
		return cfg, fmt.Errorf("%s must not be empty", hltProcessKey)
	}
	if cfg.Streams < 1 {
		return cfg, fmt.Errorf("%s must be >= 1, got %d", streamsKey, cfg.Streams)
	}
	for family, patterns := range v.GetStringMapStringSlice(familyPatternsKey) {
		cfg.Global.FamilyPatterns[family] = append([]string(nil), patterns...)
	}
	if err := addFamilyPatterns(cfg.Global.FamilyPatterns, familyPatternArgs); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// addFamilyPatterns parses "family=pattern" arguments into patterns.
func addFamilyPatterns(patterns map[string][]string, args []string) error {
	for _, arg := range args {
		family, pattern, ok := strings.Cut(arg, "=")
		family = strings.TrimSpace(family)
		if !ok || family == "" || pattern == "" {
			return fmt.Errorf("family pattern %q: want family=pattern", arg)
		}
		patterns[family] = append(patterns[family], pattern)
	}
	return nil
}

// stderrWriter is swapped in tests.
var stderrWriter io.Writer = os.Stderr
