// Package config loads the settings the simplefs command runs with. Values
// come from an optional YAML file, then from SIMPLEFS_* environment
// variables, which take precedence.
package config

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/mit-pdos/simplefs/super"
)

const (
	envVarPrefix = "SIMPLEFS"

	DefaultVolume = "simplefs.img"
	DefaultBlocks = 40
)

type Config struct {
	Volume string `envconfig:"SIMPLEFS_VOLUME" yaml:"volume"`
	Blocks uint64 `envconfig:"SIMPLEFS_BLOCKS" yaml:"blocks"`
	Debug  uint64 `envconfig:"SIMPLEFS_DEBUG"  yaml:"debug"`
}

func Default() *Config {
	return &Config{Volume: DefaultVolume, Blocks: DefaultBlocks}
}

// Load reads the file named by SIMPLEFS_CONFIG_FILE, if set, and then the
// environment. A missing file is not an error.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(envVarPrefix + "_CONFIG_FILE"))
}

func LoadFile(configFile string) (*Config, error) {
	c := Default()
	if configFile != "" {
		data, err := ioutil.ReadFile(configFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config file: %w", err)
			}
		} else if err := yaml.UnmarshalStrict(data, c); err != nil {
			return nil, fmt.Errorf("unmarshaling config file: %w", err)
		}
	}

	if err := envconfig.Process(envVarPrefix, c); err != nil {
		return nil, fmt.Errorf("parsing environment variables: %w", err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Volume == "" {
		return fmt.Errorf(
			"missing required configuration: volume / %s_VOLUME",
			envVarPrefix,
		)
	}
	if _, err := super.MkSuperblock(c.Blocks); err != nil {
		return fmt.Errorf("blocks / %s_BLOCKS: %w", envVarPrefix, err)
	}
	return nil
}
