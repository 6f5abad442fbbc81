// Package main provides the gatewayctl CLI entry point: operational
// commands for inspecting and managing a running gateway's configured
// models and credential pools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nexusllm/gateway/config"
	"github.com/nexusllm/gateway/model"
	"github.com/nexusllm/gateway/transport"

	_ "github.com/nexusllm/gateway/adapter/anthropic"
	_ "github.com/nexusllm/gateway/adapter/gemini"
	_ "github.com/nexusllm/gateway/adapter/openaicompat"
	_ "github.com/nexusllm/gateway/adapter/zhipu"
)

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "gatewayctl",
		Short: "Inspect and manage a unified LLM gateway's models and credentials",
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gateway.yaml", "Path to the gateway provider configuration file")

	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(keysCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openRegistry() (*model.Registry, *config.File, error) {
	f, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	mgr := transport.NewManager(transport.PoolConfig{})
	reg, err := model.NewRegistry(f.Providers, mgr, f.ExecutorPolicy())
	if err != nil {
		return nil, nil, err
	}
	if f.DefaultModelName != "" {
		if err := reg.SetDefault(f.DefaultModelName); err != nil {
			return nil, nil, err
		}
	}
	return reg, &f, nil
}

func modelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect configured models",
	}
	cmd.AddCommand(modelsListCmd())
	cmd.AddCommand(modelsFlushCmd())
	cmd.AddCommand(modelsSetDefaultCmd())
	cmd.AddCommand(modelsEmbedCmd())
	return cmd
}

func modelsEmbedCmd() *cobra.Command {
	var taskType string
	cmd := &cobra.Command{
		Use:   "embed [provider/model] [text...]",
		Short: "Embed one or more strings against a configured embedding model",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			m, err := reg.Get(args[0], nil)
			if err != nil {
				return err
			}
			resp, err := m.Embed(cmd.Context(), args[1:], taskType)
			if err != nil {
				return err
			}
			for i, vec := range resp.Embeddings {
				fmt.Printf("[%d] dim=%d\n", i, len(vec))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&taskType, "task-type", "", "Embedding task type, forwarded to providers that honor it (e.g. Gemini's RETRIEVAL_DOCUMENT)")
	return cmd
}

func modelsListCmd() *cobra.Command {
	var embeddingOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every model configured across all providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			list := reg.ListAvailable()
			if embeddingOnly {
				list = reg.ListEmbeddingModels()
			}
			for _, info := range list {
				fmt.Printf("%-40s api_type=%-10s api_base=%s embedding=%v\n", info.FullName, info.APIType, info.APIBase, info.IsEmbedding)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&embeddingOnly, "embedding-only", false, "List only embedding models")
	return cmd
}

func modelsFlushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Clear the cached model handle pool, forcing a rebuild on next use",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			reg.Flush()
			fmt.Println("model cache flushed")
			return nil
		},
	}
}

func modelsSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default [provider/model]",
		Short: "Set the global default model (empty argument clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if err := reg.SetDefault(name); err != nil {
				return err
			}
			if name == "" {
				fmt.Println("default model cleared")
			} else {
				fmt.Printf("default model set to %s\n", name)
			}
			return nil
		},
	}
}

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Inspect and manage provider credential pools",
	}
	cmd.AddCommand(keysStatsCmd())
	cmd.AddCommand(keysResetCmd())
	return cmd
}

func keysStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [provider]",
		Short: "Show per-credential rotation/health statistics for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			store, ok := reg.Credentials(args[0])
			if !ok {
				return fmt.Errorf("no provider named %q configured", args[0])
			}
			for _, s := range store.Stats() {
				fmt.Printf("%-24s status=%-10s success=%d failure=%d success_rate=%.1f%% avg_latency=%.0fms cooldown=%.0fs\n",
					s.ID, s.Status, s.SuccessCount, s.FailureCount, s.SuccessRate, s.AvgLatencyMs, s.CooldownSecondsLeft)
			}
			return nil
		},
	}
}

func keysResetCmd() *cobra.Command {
	var credentialID string

	cmd := &cobra.Command{
		Use:   "reset [provider]",
		Short: "Reset a provider's credential cooldowns and stats (all, unless --credential-id is given)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, _, err := openRegistry()
			if err != nil {
				return err
			}
			store, ok := reg.Credentials(args[0])
			if !ok {
				return fmt.Errorf("no provider named %q configured", args[0])
			}
			store.Reset(credentialID)
			fmt.Println("credential status reset")
			return nil
		},
	}

	cmd.Flags().StringVar(&credentialID, "credential-id", "", "Reset only this credential ID (default: all)")
	return cmd
}
