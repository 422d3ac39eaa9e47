package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/orgchart/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the given env files. Relative names missing from the working directory are
// looked up in the nearest parent that holds a go.mod, so tests run from package dirs see them.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	root := moduleRoot()
	for _, file := range envFiles {
		if fileExists(file) {
			existingFiles = append(existingFiles, file)
			continue
		}
		if root != "" && !filepath.IsAbs(file) {
			if candidate := filepath.Join(root, file); fileExists(candidate) {
				existingFiles = append(existingFiles, candidate)
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type HierarchyOptions struct {
	SeedPath       string `env:"HIERARCHY_SEED_PATH" envDefault:"config/hierarchy/seed.yaml"`
	SearchMode     string `env:"HIERARCHY_SEARCH_MODE" envDefault:"substring"`
	DefaultCascade bool   `env:"HIERARCHY_DEFAULT_CASCADE" envDefault:"false"`
	// ExpandDepth is the level down to which the tree starts expanded; 0 starts collapsed.
	ExpandDepth int `env:"HIERARCHY_EXPAND_DEPTH" envDefault:"1"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"true"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type CORSOptions struct {
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

type Configuration struct {
	Hierarchy  HierarchyOptions
	Prometheus PrometheusOptions
	CORS       CORSOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	// Empty logs to stdout only.
	LogPath string `env:"LOG_PATH"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Parse builds a configuration from an explicit environment without touching env files,
// the process environment or the log file.
func Parse(environ map[string]string) (*Configuration, error) {
	c := &Configuration{}
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return nil, err
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.normalize(); err != nil {
		return err
	}
	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger
	return nil
}

func (c *Configuration) normalize() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	if err := c.validateHierarchy(); err != nil {
		return err
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid PORT=%d", c.ServerPort)
	}
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	origins := c.CORS.AllowedOrigins[:0]
	for _, o := range c.CORS.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.AllowedOrigins = origins
	return nil
}

func (c *Configuration) validateLogLevel() error {
	level := strings.ToLower(strings.TrimSpace(c.LogLevel))
	if level == "" {
		level = "info"
	}
	switch level {
	case "silent", "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid LOG_LEVEL=%q (expected silent|error|warn|info|debug)", c.LogLevel)
	}
	c.LogLevel = level
	return nil
}

func (c *Configuration) validateHierarchy() error {
	mode := strings.ToLower(strings.TrimSpace(c.Hierarchy.SearchMode))
	if mode == "" {
		mode = "substring"
	}
	switch mode {
	case "substring", "fuzzy":
	default:
		return fmt.Errorf("invalid HIERARCHY_SEARCH_MODE=%q (expected substring|fuzzy)", c.Hierarchy.SearchMode)
	}
	c.Hierarchy.SearchMode = mode

	if c.Hierarchy.ExpandDepth < 0 {
		return fmt.Errorf("invalid HIERARCHY_EXPAND_DEPTH=%d (must be non-negative)", c.Hierarchy.ExpandDepth)
	}
	c.Hierarchy.SeedPath = strings.TrimSpace(c.Hierarchy.SeedPath)
	if c.Hierarchy.SeedPath == "" {
		return fmt.Errorf("HIERARCHY_SEED_PATH is required")
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
