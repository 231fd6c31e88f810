package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var configJSON bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
	Long: `Settings are stored in config.toml inside the configuration directory.
Environment variables override them: RAGPIPE_RETRIEVAL_TOP_K overrides
retrieval.top_k, and OLLAMA_HOST, GROQ_API_KEY, ANTHROPIC_API_KEY and
OPENAI_API_KEY are honoured as well. A .env file in the working directory
or the configuration directory is loaded first.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Validates and saves a single setting. Run "ragpipe config show" to list
the available keys.

Examples:
  ragpipe config set retrieval.top_k 10
  ragpipe config set llm.default groq
  ragpipe config set llm.groq.api_key gsk_...`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that configured services are reachable",
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.PersistentFlags().BoolVar(&configJSON, "json", false, "output as JSON")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configCheckCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	values, err := settingsService.Values()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if configJSON {
		return printJSON(cmd, values)
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	section := ""
	for _, k := range keys {
		if s := sectionOf(k); s != section {
			if section != "" {
				cmd.Println()
			}
			section = s
			cmd.Printf("[%s]\n", section)
		}
		v := values[k]
		if v == "" {
			v = "(not set)"
		}
		cmd.Printf("  %s = %s\n", k, v)
	}
	return nil
}

// sectionOf groups llm.<provider>.* keys per provider, other keys by prefix.
func sectionOf(key string) string {
	parts := strings.Split(key, ".")
	if len(parts) > 2 && parts[0] == "llm" {
		return parts[0] + "." + parts[1]
	}
	return parts[0]
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("%s updated.\n", key)
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	if configChecker == nil {
		return notConfigured("settings")
	}

	checks := configChecker(cmd.Context())

	failed := 0
	for _, c := range checks {
		if c.Err != nil {
			failed++
		}
	}

	if configJSON {
		out := make(map[string]string, len(checks))
		for _, c := range checks {
			out[c.Component] = "ok"
			if c.Err != nil {
				out[c.Component] = c.Err.Error()
			}
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
	} else {
		if len(checks) == 0 {
			cmd.Println("Nothing configured to check.")
		}
		for _, c := range checks {
			if c.Err != nil {
				cmd.Printf("  %-14s %v\n", c.Component, c.Err)
				continue
			}
			cmd.Printf("  %-14s ok\n", c.Component)
		}
	}

	if failed > 0 {
		return errors.New(fmt.Sprint(failed) + " check(s) failed")
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return notConfigured("settings")
	}
	cmd.Println(settingsService.Path())
	return nil
}
