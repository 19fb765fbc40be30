package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds the process configuration read from the environment.
// Secrets (channel token, channel secret, API key, persona override) live in
// the parameter store under ParamPrefix, not in the environment.
type Config struct {
	ChatLogTable  string `env:"CHAT_LOG_TABLE" envDefault:"chat_log"`
	UserInfoTable string `env:"USER_INFO_TABLE" envDefault:"user_info"`
	ParamPrefix   string `env:"PARAM_PREFIX,required,notEmpty"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini-2024-07-18"`
	HistoryLimit  int    `env:"HISTORY_LIMIT" envDefault:"20"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
