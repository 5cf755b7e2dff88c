package providers

import (
	"fmt"
	"path/filepath"
	"safetywatch/internal/structures"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")

	v.SetDefault("monitor.interval", 30*time.Second)
	v.SetDefault("repair.perSecond", 2.0)
	v.SetDefault("repair.burst", 1)
	v.SetDefault("refresh.concurrency", 4)
	v.SetDefault("refresh.timeout", 2*time.Minute)
	v.SetDefault("store.timeout", 30*time.Second)

	v.BindEnv("logger.level", "SW_LOG_LEVEL")
	v.BindEnv("monitor.interval", "SW_MONITOR_INTERVAL")
	v.BindEnv("store.credentialsFile", "SW_CREDENTIALS_FILE")
	v.BindEnv("cache.enabled", "SW_CACHE_ENABLED")
	v.BindEnv("cache.size", "SW_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if len(conf.Categories) == 0 {
		conf.Categories = structures.DefaultCategories()
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "SafetyWatch"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
