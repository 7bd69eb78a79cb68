package cli

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/notedcloud/noted/pkg/models"
	"github.com/spf13/cobra"
)

// settingsView hides the API key in command output.
type settingsView struct {
	APIKeyConfigured   bool           `json:"apiKeyConfigured"`
	DefaultModel       string         `json:"defaultModel"`
	CustomModels       []string       `json:"customModels"`
	AIAssistantEnabled bool           `json:"aiAssistantEnabled"`
	DefaultLanguage    string         `json:"defaultLanguage"`
	CurrentPageID      *models.PageID `json:"currentPageId"`
}

func newSettingsView(s models.Settings) settingsView {
	return settingsView{
		APIKeyConfigured:   s.APIKeyConfigured(),
		DefaultModel:       s.DefaultModel,
		CustomModels:       s.CustomModels,
		AIAssistantEnabled: s.AIAssistantEnabled,
		DefaultLanguage:    s.DefaultLanguage,
		CurrentPageID:      s.CurrentPageID,
	}
}

func (v settingsView) String() string {
	current := "none"
	if v.CurrentPageID != nil {
		current = v.CurrentPageID.String()
	}
	return fmt.Sprintf("api key:       %t\nmodel:         %s\ncustom models: %s\nassistant:     %t\nlanguage:      %s\ncurrent page:  %s",
		v.APIKeyConfigured, v.DefaultModel, strings.Join(v.CustomModels, ", "), v.AIAssistantEnabled, v.DefaultLanguage, current)
}

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(cmd, rootOpts, func(s *session) error {
				v := newSettingsView(s.manager.Settings())
				return s.out.Success(v, v.String())
			})
		},
	})
	cmd.AddCommand(newSettingsSetCommand(rootOpts))
	return cmd
}

type settingsFlags struct {
	apiKey       string
	model        string
	customModels []string
	assistant    bool
	language     string
}

func newSettingsSetCommand(rootOpts *RootOptions) *cobra.Command {
	f := &settingsFlags{}
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change settings; only the flags given are changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			update, err := f.update(cmd)
			if err != nil {
				return err
			}
			return withSession(cmd, rootOpts, func(s *session) error {
				v := newSettingsView(s.manager.UpdateSettings(cmd.Context(), update))
				return s.out.Success(v, v.String())
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.apiKey, "api-key", "", "OpenRouter API key")
	flags.StringVar(&f.model, "model", "", "default model id")
	flags.StringSliceVar(&f.customModels, "custom-models", nil, "extra model ids offered besides the defaults")
	flags.BoolVar(&f.assistant, "assistant", true, "enable the assistant")
	flags.StringVar(&f.language, "language", "", "two letter language code for assistant answers")
	return cmd
}

func (f *settingsFlags) update(cmd *cobra.Command) (models.SettingsUpdate, error) {
	var update models.SettingsUpdate
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		update.OpenRouterAPIKey = &f.apiKey
	}
	if flags.Changed("model") {
		if strings.TrimSpace(f.model) == "" {
			return update, NewExitError(ExitCommandError, "--model cannot be empty")
		}
		update.DefaultModel = &f.model
	}
	if flags.Changed("custom-models") {
		ids := make([]string, 0, len(f.customModels))
		for _, id := range f.customModels {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		update.CustomModels = &ids
	}
	if flags.Changed("assistant") {
		update.AIAssistantEnabled = &f.assistant
	}
	if flags.Changed("language") {
		if err := validator.New().Var(f.language, "required,len=2,alpha,lowercase"); err != nil {
			return update, WrapExitError(ExitCommandError, "invalid --language", err)
		}
		update.DefaultLanguage = &f.language
	}
	return update, nil
}
