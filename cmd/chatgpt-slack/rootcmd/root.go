// Package rootcmd assembles the chatgpt-slack command tree and viper setup.
package rootcmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ambr-tech/chat-gpt-slack/cmd/chatgpt-slack/servecmd"
	"github.com/ambr-tech/chat-gpt-slack/cmd/chatgpt-slack/socketcmd"
)

const envPrefix = "CHAT_GPT_SLACK"

var cfgFile string

func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chatgpt-slack",
		Short:         "Slack bot that answers mentions with ChatGPT completions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default ~/.chatgpt-slack/config.yaml).")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug|info|warn|error.")
	cmd.PersistentFlags().String("log-format", "", "Log format: text|json.")
	_ = viper.BindPFlag("log.level", cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", cmd.PersistentFlags().Lookup("log-format"))

	cmd.AddCommand(servecmd.New())
	cmd.AddCommand(socketcmd.New())
	return cmd
}

func initConfig() error {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
		return nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	viper.AddConfigPath(filepath.Join(home, ".chatgpt-slack"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}
