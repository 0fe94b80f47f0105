package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hostfolk/porter/internal/app"
	"github.com/hostfolk/porter/internal/config"
	"github.com/hostfolk/porter/internal/policy"
	"github.com/hostfolk/porter/internal/prompt"
	"github.com/hostfolk/porter/internal/provider"
)

// chatCmd runs a local REPL against the configured provider chain. It
// bypasses the chat gateway entirely, which makes it useful for checking
// credentials and the primer before going live.
func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the configured provider from the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			generator, err := app.BuildChain(cfg.Provider, logger)
			if err != nil {
				return err
			}

			primer, err := prompt.Load(cfg.Prompt.Path)
			if err != nil {
				return err
			}

			return runChatLoop(cmd, generator, primer)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func runChatLoop(cmd *cobra.Command, generator provider.Generator, primer string) error {
	boldGreen := color.New(color.FgGreen, color.Bold).SprintFunc()
	boldCyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, boldGreen("porter chat"))
	fmt.Fprintf(out, "Model: %s\n", boldCyan(generator.ModelName()))
	fmt.Fprintln(out, "Type your message and press Enter. Type 'exit' or press Ctrl+C to quit.")
	fmt.Fprintln(out)

	messages := []provider.Message{
		{Role: provider.RoleSystem, Content: primer},
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, boldGreen("You: "))
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") {
			break
		}

		messages = append(messages, provider.Message{Role: provider.RoleUser, Content: input})

		text, err := generator.Generate(cmd.Context(), provider.Request{Messages: messages})
		if err != nil {
			fmt.Fprintf(out, "%s %v\n", yellow("generation failed:"), err)
			messages = messages[:len(messages)-1]
			continue
		}

		directives := policy.ExtractDirectives(text)
		if directives.SuppressResponse {
			fmt.Fprintln(out, yellow("(model suppressed its response)"))
			continue
		}
		clean := policy.Sanitize(directives.Cleaned)
		if directives.PingSupport {
			fmt.Fprintln(out, yellow("(model would escalate to support here)"))
		}

		fmt.Fprintf(out, "%s %s\n\n", boldCyan("Bot:"), clean)
		messages = append(messages, provider.Message{Role: provider.RoleAssistant, Content: clean})
	}

	return scanner.Err()
}
