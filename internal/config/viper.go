package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// defaultConfigFile is where the config file is expected, relative to the
// working directory. All values can be overridden through environment
// variables, so the file itself is optional.
const defaultConfigFile = "configs/configs.yaml"

// loadWithViper reads the config file and environment variables into a Config
// instance. It panics upon error as the application cannot run without configs.
func loadWithViper() Config {
	v := viper.New()
	v.SetConfigFile(defaultConfigFile)

	// Defaults for everything that has a sane one.
	v.SetDefault("application.name", "umhc-auth-server")
	v.SetDefault("http_server.addr", "0.0.0.0:8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty", false)
	v.SetDefault("github.scopes", "user:email")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("anthropic.base_url", "https://api.anthropic.com")

	// Example: the "github.client_id" key maps to the GITHUB_CLIENT_ID
	// environment variable.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// These keys hold secrets and are usually provided only through the
	// environment. AutomaticEnv does not pick up keys that are absent from
	// both the file and the defaults, hence the explicit binding.
	for _, key := range []string{
		"application.base_url",
		"github.client_id",
		"github.client_secret",
		"auth.jwt_secret",
		"auth.allowed_email",
		"auth.client_url",
		"anthropic.api_key",
	} {
		_ = v.BindEnv(key)
	}

	// Missing config file is fine, everything else is not.
	if err := v.ReadInConfig(); err != nil {
		var pathError *fs.PathError
		if !errors.As(err, &pathError) && !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			panic("error in ReadInConfig call: " + err.Error())
		}
	}

	var conf Config
	// The config struct uses yaml tags, so mapstructure is told to read those.
	decodeOpts := func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.StringToTimeDurationHookFunc()
	}
	if err := v.Unmarshal(&conf, decodeOpts); err != nil {
		panic("error in viper.Unmarshal call: " + err.Error())
	}

	// Guard against a zero TTL sneaking in through an empty config value.
	if conf.Auth.SessionTTL <= 0 {
		conf.Auth.SessionTTL = 24 * time.Hour
	}

	return conf
}
