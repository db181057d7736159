// Package config loads the nextdeploy.yaml project configuration.
package config

import (
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dosanma1/nextdeploy/internal/builder"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/platform"
	"github.com/dosanma1/nextdeploy/internal/stager"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// FileName is the configuration file looked up in the project directory.
const FileName = "nextdeploy.yaml"

// Defaults.
const (
	DefaultPlatform = "aws"
	DefaultRegion   = "us-east-1"
	DefaultLocalDir = ".nextdeploy/local"
)

// namePattern matches valid kebab-case names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Config represents the nextdeploy.yaml configuration file.
type Config struct {
	// Name names the deployed function, bucket and distribution
	Name string `yaml:"name"`

	// Platform selects the provider (aws, minio, local)
	Platform string `yaml:"platform"`
	Region   string `yaml:"region,omitempty"`

	Build   BuildConfig   `yaml:"build"`
	Paths   PathsConfig   `yaml:"paths"`
	Backend BackendConfig `yaml:"backend,omitempty"`
	Storage StorageConfig `yaml:"storage"`
	CDN     CDNConfig     `yaml:"cdn,omitempty"`
	Local   LocalConfig   `yaml:"local,omitempty"`

	// dir is the directory the file was loaded from.
	dir string
}

// BuildConfig holds the framework build settings.
type BuildConfig struct {
	Enabled *bool             `yaml:"enabled,omitempty"`
	Command []string          `yaml:"command,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// PathsConfig holds project-relative paths.
type PathsConfig struct {
	Pages  string `yaml:"pages"`
	Output string `yaml:"output"`
	Shim   string `yaml:"shim"`
}

// BackendConfig holds compute function settings.
type BackendConfig struct {
	Runtime string `yaml:"runtime,omitempty"`
	Handler string `yaml:"handler,omitempty"`
	Memory  int32  `yaml:"memory,omitempty"`
	Timeout int32  `yaml:"timeout,omitempty"`
	Role    string `yaml:"role,omitempty"`
}

// StorageConfig holds asset bucket settings. Credentials come from the
// environment, never from the file.
type StorageConfig struct {
	Bucket      string `yaml:"bucket"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	PublicURL   string `yaml:"public_url,omitempty"`
	UseSSL      bool   `yaml:"use_ssl,omitempty"`
	Concurrency int    `yaml:"concurrency,omitempty"`

	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// CDNConfig holds distribution settings.
type CDNConfig struct {
	DistributionID       string    `yaml:"distribution_id,omitempty"`
	OriginAccessIdentity string    `yaml:"origin_access_identity,omitempty"`
	PriceClass           string    `yaml:"price_class,omitempty"`
	TTL                  TTLConfig `yaml:"ttl,omitempty"`

	// Origins seed the cloudFrontOrigins block of the staged manifest.
	Origins OriginsConfig `yaml:"origins,omitempty"`
}

// TTLConfig holds cache lifetimes in seconds.
type TTLConfig struct {
	Static  *int64 `yaml:"static,omitempty"`
	Default *int64 `yaml:"default,omitempty"`
}

// OriginsConfig holds known origin URLs from a previous deployment.
type OriginsConfig struct {
	Backend string `yaml:"backend,omitempty"`
	Bucket  string `yaml:"bucket,omitempty"`
}

// LocalConfig holds settings for the local provider.
type LocalConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Load reads nextdeploy.yaml from dir, overlays the environment and
// validates the result.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Configf("config file not found: %s (run `nextdeploy init`)", path)
		}
		return nil, errs.Internal("read config", err)
	}

	config, err := Parse(data)
	if err != nil {
		return nil, err
	}
	config.dir = filepath.Dir(path)

	env, err := Environ(config.dir)
	if err != nil {
		return nil, err
	}
	config.applyEnv(env)

	// Apply defaults
	config.applyDefaults()

	// Validate
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Parse decodes YAML without defaults or validation.
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errs.Configf("failed to parse config: %v", err)
	}
	return &config, nil
}

// Default returns a configuration with defaults for name.
func Default(dir, name string) *Config {
	c := &Config{Name: name, dir: dir}
	c.applyDefaults()
	return c
}

// Save writes the config to a file atomically.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errs.Internal("marshal config", err)
	}
	if err := xos.WriteFile(path, data, 0644); err != nil {
		return errs.Internal("write config", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Name == "" {
		return errs.Configf("name is required")
	}
	if !namePattern.MatchString(c.Name) {
		return errs.Configf("invalid name %q: must be kebab-case (lowercase letters, numbers, and hyphens only, starting with a letter)", c.Name)
	}
	if c.Platform == "" {
		return errs.Configf("platform is required")
	}
	if c.Storage.Bucket == "" {
		return errs.Configf("storage.bucket is required")
	}
	if c.Storage.Concurrency < 0 {
		return errs.Configf("storage.concurrency must not be negative")
	}
	if c.Backend.Memory < 0 || c.Backend.Timeout < 0 {
		return errs.Configf("backend.memory and backend.timeout must not be negative")
	}
	if c.CDN.TTL.Static != nil && *c.CDN.TTL.Static < 0 || c.CDN.TTL.Default != nil && *c.CDN.TTL.Default < 0 {
		return errs.Configf("cdn.ttl values must not be negative")
	}
	for _, p := range []string{c.Paths.Pages, c.Paths.Output, c.Paths.Shim} {
		if p == "" {
			return errs.Configf("paths.pages, paths.output and paths.shim are required")
		}
	}
	if err := stager.CheckOutputDir(c.StagerOptions()); err != nil {
		return err
	}
	return nil
}

// applyDefaults sets default values for missing fields.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = DefaultPlatform
	}
	if c.Region == "" && c.Platform == DefaultPlatform {
		c.Region = DefaultRegion
	}
	if c.Storage.Bucket == "" && c.Name != "" {
		c.Storage.Bucket = c.Name + "-assets"
	}
	if c.Paths.Pages == "" {
		c.Paths.Pages = stager.DefaultPagesDir
	}
	if c.Paths.Output == "" {
		c.Paths.Output = stager.DefaultOutputDir
	}
	if c.Paths.Shim == "" {
		c.Paths.Shim = stager.DefaultShimDir
	}
	if c.Local.Dir == "" {
		c.Local.Dir = DefaultLocalDir
	}
}

// Dir returns the project directory.
func (c *Config) Dir() string {
	if c.dir == "" {
		return "."
	}
	return c.dir
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Dir(), filepath.FromSlash(p))
}

// BuildEnabled reports whether the framework build runs before staging.
func (c *Config) BuildEnabled() bool {
	return c.Build.Enabled == nil || *c.Build.Enabled
}

// TTLs returns the cache lifetimes with defaults filled in.
func (c *Config) TTLs() manifest.TTLs {
	ttl := manifest.DefaultTTLs
	if c.CDN.TTL.Static != nil {
		ttl.Static = *c.CDN.TTL.Static
	}
	if c.CDN.TTL.Default != nil {
		ttl.Default = *c.CDN.TTL.Default
	}
	return ttl
}

// StagerOptions maps the configuration onto staging options.
func (c *Config) StagerOptions() stager.Options {
	return stager.Options{
		ProjectDir: c.Dir(),
		PagesDir:   c.resolve(c.Paths.Pages),
		OutputDir:  c.resolve(c.Paths.Output),
		ShimDir:    c.resolve(c.Paths.Shim),
		Origins:    manifest.NewOrigins(c.CDN.Origins.Backend, c.CDN.Origins.Bucket, c.TTLs()),
	}
}

// BuildOptions maps the configuration onto framework build options.
func (c *Config) BuildOptions() builder.BuildOptions {
	return builder.BuildOptions{
		ProjectRoot: c.Dir(),
		Command:     c.Build.Command,
		Env:         c.Build.Env,
	}
}

// PlatformConfig maps the configuration onto the provider record.
func (c *Config) PlatformConfig() platform.Config {
	return platform.Config{
		App:    c.Name,
		Region: c.Region,
		Backend: platform.BackendConfig{
			Runtime:    c.Backend.Runtime,
			Handler:    c.Backend.Handler,
			MemoryMB:   c.Backend.Memory,
			TimeoutSec: c.Backend.Timeout,
			RoleARN:    c.Backend.Role,
		},
		Storage: platform.StorageConfig{
			Bucket:      c.Storage.Bucket,
			Endpoint:    c.Storage.Endpoint,
			AccessKey:   c.Storage.AccessKey,
			SecretKey:   c.Storage.SecretKey,
			PublicURL:   c.Storage.PublicURL,
			UseSSL:      c.Storage.UseSSL,
			Concurrency: c.Storage.Concurrency,
		},
		CDN: platform.CDNConfig{
			DistributionID:       c.CDN.DistributionID,
			OriginAccessIdentity: c.CDN.OriginAccessIdentity,
			PriceClass:           c.CDN.PriceClass,
			Comment:              c.Name,
		},
		LocalDir: c.resolve(c.Local.Dir),
	}
}
