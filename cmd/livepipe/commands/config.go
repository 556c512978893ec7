package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haivivi/livepipe/cmd/livepipe/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage contexts and backend configurations",
}

var configAddContextCmd = &cobra.Command{
	Use:   "add-context <name>",
	Short: "Create a new context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.AddContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Context %q created\n", args[0])
		return nil
	},
}

var configUseContextCmd = &cobra.Command{
	Use:   "use-context <name>",
	Short: "Switch the current context",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.UseContext(args[0]); err != nil {
			return err
		}
		fmt.Printf("Switched to context %q\n", args[0])
		return nil
	},
}

var configListContextsCmd = &cobra.Command{
	Use:   "list-contexts",
	Short: "List all contexts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		names, err := cfg.ListContexts()
		if err != nil {
			return err
		}
		for _, name := range names {
			marker := "  "
			if name == cfg.CurrentContext {
				marker = "* "
			}
			fmt.Println(marker + name)
		}
		return nil
	},
}

var setGeminiFlags config.Gemini

var configSetGeminiCmd = &cobra.Command{
	Use:   "set-gemini",
	Short: "Configure the Gemini Live backend for a context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		dir, err := cfg.ResolveContext(contextName)
		if err != nil {
			return err
		}
		if err := config.SaveService(dir, "gemini", &setGeminiFlags); err != nil {
			return err
		}
		fmt.Println("Gemini backend configured")
		return nil
	},
}

var setOpenAIFlags config.OpenAI

var configSetOpenAICmd = &cobra.Command{
	Use:   "set-openai",
	Short: "Configure the OpenAI Realtime backend for a context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		dir, err := cfg.ResolveContext(contextName)
		if err != nil {
			return err
		}
		if err := config.SaveService(dir, "openai", &setOpenAIFlags); err != nil {
			return err
		}
		fmt.Println("OpenAI backend configured")
		return nil
	},
}

func init() {
	configSetGeminiCmd.Flags().StringVar(&setGeminiFlags.APIKey, "api-key", "", "API key")
	configSetGeminiCmd.Flags().StringVar(&setGeminiFlags.Model, "model", "", "model override")
	configSetGeminiCmd.Flags().StringVar(&setGeminiFlags.SystemInstruction, "system", "", "system instruction")
	configSetGeminiCmd.MarkFlagRequired("api-key")

	configSetOpenAICmd.Flags().StringVar(&setOpenAIFlags.APIKey, "api-key", "", "API key")
	configSetOpenAICmd.Flags().StringVar(&setOpenAIFlags.Model, "model", "", "model override")
	configSetOpenAICmd.Flags().StringVar(&setOpenAIFlags.URL, "url", "", "endpoint override")
	configSetOpenAICmd.Flags().StringVar(&setOpenAIFlags.Instructions, "instructions", "", "system instructions")
	configSetOpenAICmd.MarkFlagRequired("api-key")

	configCmd.PersistentFlags().StringVarP(&contextName, "context", "c", "", "context name (default: current)")

	configCmd.AddCommand(configAddContextCmd)
	configCmd.AddCommand(configUseContextCmd)
	configCmd.AddCommand(configListContextsCmd)
	configCmd.AddCommand(configSetGeminiCmd)
	configCmd.AddCommand(configSetOpenAICmd)
	rootCmd.AddCommand(configCmd)
}
