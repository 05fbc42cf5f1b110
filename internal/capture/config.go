package capture

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the configuration of the capture service. Values come from
// the environment (optionally seeded by a .env file), overridden by
// command line flags.
type Config struct {
	Host      string `required:"true" default:"0.0.0.0"`
	Port      int    `required:"true" default:"5600"`
	OutputDir string `required:"true" default:"output"`

	// address of the live status websocket endpoint; empty disables it
	StatusAddress string `default:""`

	// kernel receive buffer of the capture socket
	ReadBufferSize int `required:"true" default:"425984"`
}

// LoadConfig builds a Config from the environment. A .env file in the
// working directory is loaded first when present.
func LoadConfig() (Config, error) {
	// a missing .env file is not an error
	_ = godotenv.Load()

	var c Config
	err := envconfig.Process("hevcdepay", &c)
	if err != nil {
		return Config{}, err
	}
	return c, nil
}
