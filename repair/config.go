package repair

import (
	"os"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// DefaultContainers are the content containers whose serialized content is
// inspected for the colon-wrapped marker.
var DefaultContainers = []string{
	".md-content__inner h3",
	".md-content__inner li",
	".md-typeset",
}

const defaultListItems = "li"

// Config controls which containers a pass inspects.
type Config struct {
	// Containers is a selector group; each entry is one selector.
	Containers []string `yaml:"containers"`
	// ListItems is the base selector for the containment query.
	ListItems string `yaml:"list_items"`

	Logger *zerolog.Logger `yaml:"-"`
}

// DefaultConfig returns the stock container set and a silent logger.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

// LoadConfig reads a YAML file. Fields left out take their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Errorf("parsing config %s: %w", path, err)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	if len(c.Containers) == 0 {
		c.Containers = append([]string(nil), DefaultContainers...)
	}
	if c.ListItems == "" {
		c.ListItems = defaultListItems
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
	return c
}
