package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized step headers
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_POLLING forces the long-polling transport
	Polling bool `envconfig:"E2E_POLLING" default:"false"`
	// E2E_TIMEOUT bounds every remote call and every wait on a live event
	Timeout string `envconfig:"E2E_TIMEOUT" default:"3s"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
