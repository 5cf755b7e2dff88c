package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Method  string
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode       uint32 `yaml:"mode" validate:"required|uint"`
	Dir        string `yaml:"dir" validate:"required|unixPath"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
}

type StoreConfig struct {
	CredentialsFile string        `yaml:"credentialsFile" validate:"required"`
	BaseURL         string        `yaml:"baseURL"`
	Timeout         time.Duration `yaml:"timeout"`
}

type MonitorConfig struct {
	Interval time.Duration `yaml:"interval" validate:"required|min:1"`
}

type RepairConfig struct {
	PerSecond float64 `yaml:"perSecond"`
	Burst     int     `yaml:"burst"`
}

type RefreshConfig struct {
	Concurrency int `yaml:"concurrency"`
	// Timeout bounds one full category refresh, independent of who asked for it.
	Timeout time.Duration `yaml:"timeout"`
}

type SubTypeConfig struct {
	Name string `yaml:"name" validate:"required"`
	Tag  string `yaml:"tag" validate:"required"`
}

type CategoryConfig struct {
	Name         string          `yaml:"name" validate:"required"`
	Title        string          `yaml:"title"`
	RootFolder   string          `yaml:"rootFolder" validate:"required"`
	MetadataFile string          `yaml:"metadataFile" validate:"required"`
	SubTypes     []SubTypeConfig `yaml:"subTypes"`
	Series       []string        `yaml:"series"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName    string
	Debug      bool
	Path       string
	WebServer  Server           `yaml:"webServer"`
	Logger     LoggerConfig     `yaml:"logger"`
	Store      StoreConfig      `yaml:"store"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Repair     RepairConfig     `yaml:"repair"`
	Refresh    RefreshConfig    `yaml:"refresh"`
	Categories []CategoryConfig `yaml:"categories"`
	Cache      CacheConfig      `yaml:"cache"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// DefaultCategories mirrors the three folder trees the camera pipeline uploads into.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name:         "worker",
			Title:        "Worker Safety",
			RootFolder:   "Safety_Violation_System1",
			MetadataFile: "violation_metadata.json",
			SubTypes: []SubTypeConfig{
				{Name: "mask", Tag: "no-mask"},
				{Name: "gloves", Tag: "no-gloves"},
			},
			Series: []string{"mask", "gloves"},
		},
		{
			Name:         "fallen",
			Title:        "Fallen Objects",
			RootFolder:   "Fallen_Objects_System",
			MetadataFile: "fallen_metadata.json",
			Series:       []string{"images"},
		},
		{
			Name:         "empty",
			Title:        "Empty Bottles",
			RootFolder:   "Empty_Bottles_System",
			MetadataFile: "empty_bottles_metadata.json",
			Series:       []string{"images"},
		},
	}
}
