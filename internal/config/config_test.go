package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PARAM_PREFIX", "/line-chat-agent")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "chat_log", cfg.ChatLogTable)
	require.Equal(t, "user_info", cfg.UserInfoTable)
	require.Equal(t, "/line-chat-agent", cfg.ParamPrefix)
	require.Equal(t, "gpt-4o-mini-2024-07-18", cfg.OpenAIModel)
	require.Equal(t, 20, cfg.HistoryLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PARAM_PREFIX", "/bot")
	t.Setenv("CHAT_LOG_TABLE", "chat_log_staging")
	t.Setenv("USER_INFO_TABLE", "user_info_staging")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("HISTORY_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "chat_log_staging", cfg.ChatLogTable)
	require.Equal(t, "user_info_staging", cfg.UserInfoTable)
	require.Equal(t, "gpt-4o", cfg.OpenAIModel)
	require.Equal(t, 5, cfg.HistoryLimit)
}

func TestLoad_RequiresParamPrefix(t *testing.T) {
	t.Setenv("PARAM_PREFIX", "")

	_, err := Load()
	require.Error(t, err)
}
