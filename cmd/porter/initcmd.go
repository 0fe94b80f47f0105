package main

import (
	"fmt"
	"os"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// configTemplate renders the answers into a starter porter.yaml.
const configTemplate = `version: "1"

chat:
  url: {{ .GatewayURL }}
  token: ${PORTER_CHAT_TOKEN}
  bot_user_id: {{ .BotUserID }}
  typing_indicator: true

escalation:
  support_role_id: {{ .SupportRoleID }}

provider:
  primary:
    type: {{ .Provider }}
{{- if eq .Provider "gemini" }}
    api_key: ${GEMINI_API_KEY}
{{- else }}
    api_key: ${ANTHROPIC_API_KEY}
{{- end }}
{{- if .Fallback }}
  fallback:
    type: {{ .Fallback }}
{{- if eq .Fallback "gemini" }}
    api_key: ${GEMINI_API_KEY}
{{- else }}
    api_key: ${ANTHROPIC_API_KEY}
{{- end }}
{{- end }}

storage:
  snapshot_path: data/conversations.json

archive:
  enabled: {{ .Archive }}
`

type initAnswers struct {
	GatewayURL    string
	BotUserID     string
	SupportRoleID string
	Provider      string
	Fallback      string
	Archive       bool
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Interactively create a starter configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := "porter.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}

			answers := initAnswers{Provider: "gemini"}
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Chat gateway URL").
						Placeholder("wss://chat.example.com/gateway").
						Value(&answers.GatewayURL).
						Validate(notEmpty("gateway URL")),
					huh.NewInput().
						Title("Bot user ID").
						Description("The bot's own user id on the chat platform").
						Value(&answers.BotUserID).
						Validate(notEmpty("bot user id")),
					huh.NewInput().
						Title("Support role ID").
						Description("Role mentioned when a conversation escalates").
						Value(&answers.SupportRoleID).
						Validate(notEmpty("support role id")),
				),
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Primary provider").
						Options(
							huh.NewOption("Gemini", "gemini"),
							huh.NewOption("Anthropic", "anthropic"),
						).
						Value(&answers.Provider),
					huh.NewSelect[string]().
						Title("Fallback provider").
						Options(
							huh.NewOption("None", ""),
							huh.NewOption("Gemini", "gemini"),
							huh.NewOption("Anthropic", "anthropic"),
						).
						Value(&answers.Fallback),
					huh.NewConfirm().
						Title("Enable the SQLite transcript archive?").
						Value(&answers.Archive),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
			if answers.Fallback == answers.Provider {
				answers.Fallback = ""
			}

			tmpl, err := template.New("config").Parse(configTemplate)
			if err != nil {
				return err
			}
			f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			if err := tmpl.Execute(f, answers); err != nil {
				return err
			}

			fmt.Printf("Wrote %s. Set PORTER_CHAT_TOKEN and the provider API key, then run: porter start -c %s\n", path, path)
			return nil
		},
	}
}

func notEmpty(name string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
		return nil
	}
}
