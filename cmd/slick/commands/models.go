package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hupe1980/slick/config"
	"github.com/hupe1980/slick/model"
	"github.com/hupe1980/slick/step"
)

// ModelsCmd groups the model management subcommands.
var ModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model management",
	Long: `Inspect providers and models and manage the default model selection.

The default selection is resolved in this order:
1. Explicit --model/--provider flags
2. In-memory default (set-default without --persist)
3. Environment variables (SLICK_MODEL, SLICK_PROVIDER)
4. User config (<user config dir>/slick/config.toml)
5. Project config (slick.toml or [tool.slick] in pyproject.toml)
6. Built-in fallback (openai:gpt-4o-mini)

Examples:
  slick models providers
  slick models list --provider anthropic
  slick models set-default anthropic:claude-3-5-haiku-latest --persist
  slick models test --prompt "Say hi"`,
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models",
	Long:  "List the models visible to a provider (defaults to the resolved provider)",
	Args:  cobra.NoArgs,
	RunE:  runModelsList,
}

var modelsProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List providers",
	Args:  cobra.NoArgs,
	RunE:  runModelsProviders,
}

var modelsSetDefaultCmd = &cobra.Command{
	Use:   "set-default <model|provider:model>",
	Short: "Set default model",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsSetDefault,
}

var modelsShowDefaultCmd = &cobra.Command{
	Use:   "show-default",
	Short: "Show default model",
	Args:  cobra.NoArgs,
	RunE:  runModelsShowDefault,
}

var modelsTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test a model with a simple prompt",
	Args:  cobra.NoArgs,
	RunE:  runModelsTest,
}

var (
	listProvider    string
	defaultProvider string
	persistDefault  bool
	testModel       string
	testProvider    string
	testPrompt      string
	testNoStream    bool
)

func init() {
	modelsListCmd.Flags().StringVar(&listProvider, "provider", "", "Provider to list models for")

	modelsSetDefaultCmd.Flags().StringVar(&defaultProvider, "provider", "", "Provider of the model")
	modelsSetDefaultCmd.Flags().BoolVar(&persistDefault, "persist", false, "Write the default to the user config file")

	modelsTestCmd.Flags().StringVar(&testModel, "model", "", "Model id or provider:model reference")
	modelsTestCmd.Flags().StringVar(&testProvider, "provider", "", "Provider id or alias")
	modelsTestCmd.Flags().StringVar(&testPrompt, "prompt", "Hello!", "Prompt to send")
	modelsTestCmd.Flags().BoolVar(&testNoStream, "no-stream", false, "Disable streamed output")

	ModelsCmd.AddCommand(modelsListCmd)
	ModelsCmd.AddCommand(modelsProvidersCmd)
	ModelsCmd.AddCommand(modelsSetDefaultCmd)
	ModelsCmd.AddCommand(modelsShowDefaultCmd)
	ModelsCmd.AddCommand(modelsTestCmd)
}

func runModelsList(cmd *cobra.Command, args []string) error {
	s := instance()

	providerID := listProvider
	if providerID == "" {
		providerID = s.Resolve("", "").Provider
	}

	names, err := s.ListModels(cmd.Context(), providerID)
	if err != nil {
		return errors.Wrapf(err, "error listing models for %s", providerID)
	}

	if len(names) == 0 {
		pterm.Warning.Printfln("No models visible for provider '%s' (missing API key or none available).", providerID)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, n := range names {
		fmt.Fprintln(out, n)
	}
	return nil
}

func runModelsProviders(cmd *cobra.Command, args []string) error {
	s := instance()
	reg := s.Registry()

	data := pterm.TableData{{"PROVIDER", "ALIASES", "ENV", "AVAILABLE"}}
	for _, id := range s.ListProviders() {
		rec, err := reg.Get(id)
		if err != nil {
			return err
		}
		env := rec.EnvKey
		if env == "" {
			env = "-"
		}
		data = append(data, []string{id, strings.Join(rec.Aliases, ", "), env, strconv.FormatBool(rec.Available())})
	}

	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

func runModelsSetDefault(cmd *cobra.Command, args []string) error {
	s := instance()

	if defaultProvider != "" {
		if _, err := s.Registry().Get(defaultProvider); err != nil {
			return err
		}
	}

	s.SetDefault(args[0], defaultProvider)
	sel := s.GetDefault()

	if !persistDefault {
		pterm.Info.Printfln("Default set to %s in-memory (not persisted). Use --persist to keep it.", sel)
		return nil
	}

	path, err := config.UserConfigPath()
	if err != nil {
		return err
	}
	// A bare model keeps whatever provider is currently resolved.
	if sel.Provider == "" {
		sel.Provider = s.Resolve("", "").Provider
	}
	if err := config.SaveUserDefaults(path, sel); err != nil {
		return err
	}

	pterm.Success.Printfln("Default set to %s (saved to %s)", sel, path)
	return nil
}

func runModelsShowDefault(cmd *cobra.Command, args []string) error {
	s := instance()

	mem := s.GetDefault()
	resolved := s.Resolve("", "")

	data := pterm.TableData{
		{"TIER", "MODEL", "PROVIDER"},
		{"in-memory", orDash(mem.Model), orDash(mem.Provider)},
		{"resolved", resolved.Model, resolved.Provider},
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

func runModelsTest(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fn, err := step.New[string](instance(), "{{.prompt}}",
		step.WithName("models_test"),
		step.WithParams("prompt"),
		step.WithModel(testModel),
		step.WithProvider(testProvider),
		step.WithStream(!testNoStream),
		step.WithChatOptions(model.WithStreamWriter(out)),
		step.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	text, err := fn.CallPositional(cmd.Context(), testPrompt)
	if err != nil {
		return errors.Wrap(err, "invocation failed")
	}

	if testNoStream {
		fmt.Fprintln(out, text)
	} else {
		fmt.Fprintln(out)
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
