package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dosanma1/nextdeploy/internal/errs"
)

// EnvFile is the dotenv file read from the project directory.
const EnvFile = ".env"

// Environment variables overlaid on the file.
const (
	EnvName         = "NEXTDEPLOY_NAME"
	EnvPlatform     = "NEXTDEPLOY_PLATFORM"
	EnvRegion       = "NEXTDEPLOY_REGION"
	EnvBucket       = "NEXTDEPLOY_BUCKET"
	EnvEndpoint     = "NEXTDEPLOY_ENDPOINT"
	EnvAccessKey    = "NEXTDEPLOY_ACCESS_KEY"
	EnvSecretKey    = "NEXTDEPLOY_SECRET_KEY"
	EnvRole         = "NEXTDEPLOY_ROLE"
	EnvDistribution = "NEXTDEPLOY_DISTRIBUTION_ID"

	// EnvAWSRegion is used when neither the file nor NEXTDEPLOY_REGION sets one.
	EnvAWSRegion = "AWS_REGION"
)

// Environ returns the variables of dir/.env overlaid with the process
// environment. The process environment wins.
func Environ(dir string) (map[string]string, error) {
	env := map[string]string{}
	path := filepath.Join(dir, EnvFile)
	if _, err := os.Stat(path); err == nil {
		env, err = godotenv.Read(path)
		if err != nil {
			return nil, errs.Configf("failed to parse %s: %v", path, err)
		}
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}
	return env, nil
}

// applyEnv overlays environment values. Precedence: environment > file.
func (c *Config) applyEnv(env map[string]string) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := env[k]; v != "" {
				*dst = v
				return
			}
		}
	}
	set(&c.Name, EnvName)
	set(&c.Platform, EnvPlatform)
	set(&c.Region, EnvRegion)
	if c.Region == "" {
		set(&c.Region, EnvAWSRegion)
	}
	set(&c.Storage.Bucket, EnvBucket)
	set(&c.Storage.Endpoint, EnvEndpoint)
	set(&c.Storage.AccessKey, EnvAccessKey)
	set(&c.Storage.SecretKey, EnvSecretKey)
	set(&c.Backend.Role, EnvRole)
	set(&c.CDN.DistributionID, EnvDistribution)
}

// Overrides carry command-line flags.
type Overrides struct {
	Platform  string
	Region    string
	Bucket    string
	SkipBuild bool
}

// Apply overlays command-line flags and revalidates.
// Precedence: CLI flag > environment > file > default.
func (c *Config) Apply(o Overrides) error {
	if o.Platform != "" {
		c.Platform = o.Platform
	}
	if o.Region != "" {
		c.Region = o.Region
	}
	if o.Bucket != "" {
		c.Storage.Bucket = o.Bucket
	}
	if o.SkipBuild {
		disabled := false
		c.Build.Enabled = &disabled
	}
	return c.Validate()
}
