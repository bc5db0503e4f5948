// livetrans is a local translation broker for the live chat browser extension.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/livetrans/broker"
	"github.com/minios-linux/livetrans/config"
	"github.com/minios-linux/livetrans/i18n"
	"github.com/minios-linux/livetrans/langmeta"
	"github.com/minios-linux/livetrans/metrics"
	"github.com/minios-linux/livetrans/provider"
	"github.com/minios-linux/livetrans/server"
	"github.com/minios-linux/livetrans/settings"
	"github.com/minios-linux/livetrans/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// ANSI colors
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorBlue   = "\033[0;34m"
)

func logInfo(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorBlue+"[INFO]"+colorReset+" "+format+"\n", args...)
}

func logSuccess(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorGreen+"[OK]"+colorReset+" "+format+"\n", args...)
}

func logWarning(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorYellow+"[WARN]"+colorReset+" "+format+"\n", args...)
}

func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, colorRed+"[ERROR]"+colorReset+" "+format+"\n", args...)
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	envFile    string
	dataDir    string
	logLevel   string
)

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "livetrans",
		Short: "Local translation broker for live chat",
		Long: `livetrans: local translation broker for live chat.

Receives chat lines from the browser extension, decides whether they need
translating, and answers from a cache, from an identical in-flight request,
or from the configured translation provider.

Commands:
  serve       Run the HTTP broker the extension talks to
  translate   Translate one line with the current settings
  settings    Show or change the stored provider settings
  providers   List supported translation providers
  config      Create or inspect livetrans.yaml

Providers:
  google_free   Free web translate endpoint, no key needed (default)
  openai        OpenAI chat completions, API key
  openrouter    OpenRouter, API key
  groq          Groq Cloud, API key
  deepseek      DeepSeek, API key
  gemini        Google Gemini, API key
  anthropic     Anthropic Messages API, API key
  ollama        Local Ollama server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			i18n.Init("")
		},
	}

	// Global persistent flags, inherited by all subcommands
	root.PersistentFlags().StringVar(&configPath, "config", config.FileName, "Path to livetrans.yaml")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "Path to a .env file (default: search upwards for .env)")
	root.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Settings directory (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newServeCmd(),
		newTranslateCmd(),
		newSettingsCmd(),
		newProvidersCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

// ---------------------------------------------------------------------------
// Shared setup
// ---------------------------------------------------------------------------

// loadConfig resolves the configuration: .env, livetrans.yaml, LIVETRANS_*
// variables, then global flags.
func loadConfig() (*config.Config, error) {
	if _, err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if logLevel != "" {
		cfg.LogLevel = strings.ToLower(logLevel)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) log.Interface {
	log.SetHandler(text.New(os.Stderr))
	log.SetLevel(cfg.Level())
	return log.Log
}

func openStore(cfg *config.Config) (*settings.Store, error) {
	store, err := settings.NewStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening settings: %w", err)
	}
	return store, nil
}

// loadSettings migrates legacy data and returns the normalized settings.
// A read failure is reported and the defaults are used.
func loadSettings(store *settings.Store, logger log.Interface) settings.Settings {
	moved, err := store.Migrate()
	if err != nil {
		logger.WithError(err).Warn(i18n.T("Failed to read settings"))
	} else if moved {
		logSuccess("%s", i18n.T("Moved legacy API key to local storage"))
	}
	st, err := store.Bootstrap()
	if err != nil {
		logger.WithError(err).Warn(i18n.T("Failed to read settings"))
	}
	return st
}

func newClient(cfg *config.Config, store *settings.Store, logger log.Interface) *translate.Client {
	prompts, err := translate.LoadPrompts(store.PromptsPath())
	if err != nil {
		logWarning("Ignoring %s: %v", store.PromptsPath(), err)
		prompts = translate.DefaultPrompts()
	}
	return translate.NewClient(translate.Options{
		Timeout:        cfg.Timeout(),
		TargetLanguage: cfg.TargetLanguage,
		Prompts:        &prompts,
		Proxy:          cfg.Proxy,
		Logger:         logger,
	})
}

// ---------------------------------------------------------------------------
// serve
// ---------------------------------------------------------------------------

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP broker",
		Long: `Run the HTTP broker the browser extension sends chat lines to.

Settings are read from the data directory and reloaded whenever the
extension or 'livetrans settings' changes them. Only the configured
extension ids and chat-site origins may send messages.

Examples:
  livetrans serve
  livetrans serve --listen 127.0.0.1:9000 --log-level debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Address to listen on (overrides config)")
	return cmd
}

func runServe(ctx context.Context, listen string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Listen = listen
	}
	logger := setupLogging(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	live := settings.NewLive(loadSettings(store, logger))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := settings.Watch(ctx, store, live, logger); err != nil {
		return err
	}

	state := broker.New(broker.Options{
		Settings:   live,
		Translator: newClient(cfg, store, logger),
		Logger:     logger,
	})

	if cfg.Metrics {
		metrics.Register()
	}
	if cfg.Level() != log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Options{
		Broker:         state,
		ExtensionIDs:   cfg.ExtensionIDs,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit.RPS,
		Burst:          cfg.RateLimit.Burst,
		Metrics:        cfg.Metrics,
		Logger:         logger,
	})

	st := live.Load()
	logger.WithFields(log.Fields{
		"provider":  st.Provider,
		"target":    cfg.TargetLanguage,
		"data_dir":  store.Dir,
		"origins":   len(cfg.AllowedOrigins),
		"extension": len(cfg.ExtensionIDs),
	}).Info("starting livetrans " + version)

	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
		return err
	}

	if shed := state.Stats().Shed; shed > 0 {
		logInfo("%s", i18n.N("%d task shed", "%d tasks shed", int(shed), shed))
	}
	return nil
}

// ---------------------------------------------------------------------------
// translate (one-off, same pipeline as the server)
// ---------------------------------------------------------------------------

func newTranslateCmd() *cobra.Command {
	var (
		contextLines []string
		asJSON       bool
	)

	cmd := &cobra.Command{
		Use:   "translate <text>",
		Short: "Translate one line with the current settings",
		Long: `Translate one chat line exactly as the broker would, using the stored
settings. Useful for checking a provider or API key.

Examples:
  livetrans translate "hello world"
  livetrans translate --context "gg" --context "that was close" "no way"
  livetrans translate --json "bonjour"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runTranslate(ctx, strings.Join(args, " "), contextLines, asJSON)
		},
	}

	cmd.Flags().StringArrayVar(&contextLines, "context", nil, "Preceding chat line (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw result as JSON")
	return cmd
}

func runTranslate(ctx context.Context, text string, contextLines []string, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	state := broker.New(broker.Options{
		Settings:   settings.NewLive(loadSettings(store, logger)),
		Translator: newClient(cfg, store, logger),
		Logger:     logger,
	})

	res, err := state.Handle(ctx, broker.Request{Text: text, Context: contextLines})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetEscapeHTML(false)
		return enc.Encode(res)
	}
	if res.Skip {
		logWarning("%s", i18n.T("Skipped (%s)", res.Reason))
		return nil
	}
	fmt.Println(res.Translated)
	if res.DetectedLanguage != "" && res.DetectedLanguage != langmeta.Unknown {
		meta := langmeta.Resolve(res.DetectedLanguage)
		logInfo("Detected %s %s (%s)", meta.Flag, meta.English, meta.Tag)
	}
	return nil
}

// ---------------------------------------------------------------------------
// settings
// ---------------------------------------------------------------------------

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the stored provider settings",
		Long: `Show or change the settings the extension's options page edits.

Public fields live in sync.json; the API key lives in local.json (mode 0600)
and is never printed in full.

Examples:
  livetrans settings show
  livetrans settings set --provider openai --model gpt-4.1-mini
  livetrans settings set-key
  livetrans settings clear-key
  livetrans settings init-prompts`,
	}

	cmd.AddCommand(
		newSettingsShowCmd(),
		newSettingsSetCmd(),
		newSettingsSetKeyCmd(),
		newSettingsClearKeyCmd(),
		newSettingsMigrateCmd(),
		newSettingsInitPromptsCmd(),
	)
	return cmd
}

func settingsStore() (*settings.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(cfg)
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settingsStore()
			if err != nil {
				return err
			}
			st, err := store.Load()
			if err != nil {
				logWarning("%s: %v", i18n.T("Failed to read settings"), err)
			}
			printSettings(store, st)
			return nil
		},
	}
}

func printSettings(store *settings.Store, st settings.Settings) {
	desc := provider.Lookup(st.Provider)
	fmt.Fprintf(os.Stderr, "\n%sSettings%s  %s\n", colorBlue, colorReset, store.Dir)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))

	enabled := colorGreen + "yes" + colorReset
	if !st.Enabled {
		enabled = colorRed + "no" + colorReset
	}
	fmt.Fprintf(os.Stderr, "  %-14s %s\n", "enabled", enabled)
	fmt.Fprintf(os.Stderr, "  %-14s %s (%s)\n", "provider", st.Provider, desc.Label)

	if desc.Mode != provider.ModeFreeTranslate {
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", "endpoint", settings.EffectiveEndpoint(st, desc))
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", "model", settings.EffectiveModel(st, desc))
		fmt.Fprintf(os.Stderr, "  %-14s %.2f\n", "temperature", st.Temperature)
		fmt.Fprintf(os.Stderr, "  %-14s %s\n", "style", st.Style)
		switch {
		case st.APIKey != "":
			fmt.Fprintf(os.Stderr, "  %-14s %sconfigured%s (key: %s)\n", "api key", colorGreen, colorReset, settings.MaskKey(st.APIKey))
		case desc.RequiresAPIKey:
			fmt.Fprintf(os.Stderr, "  %-14s %snot set%s (requests use %s)\n", "api key", colorYellow, colorReset, provider.Free().Label)
		}
	}
	fmt.Fprintf(os.Stderr, "  %-14s %d\n", "min chars", st.MinChars)
	fmt.Fprintln(os.Stderr)
}

// settingsFlags holds the values of 'settings set'. Only flags the user
// actually passed are applied.
type settingsFlags struct {
	enabled     bool
	provider    string
	apiURL      string
	model       string
	temperature float64
	style       string
	minChars    int
}

func (f settingsFlags) overlay(changed func(string) bool) settings.Raw {
	var r settings.Raw
	if changed("enabled") {
		r.Enabled = f.enabled
	}
	if changed("provider") {
		r.Provider = f.provider
	}
	if changed("api-url") {
		r.APIURL = f.apiURL
	}
	if changed("model") {
		r.Model = f.model
	}
	if changed("temperature") {
		r.Temperature = f.temperature
	}
	if changed("style") {
		r.TranslationStyle = f.style
	}
	if changed("min-chars") {
		r.MinChars = f.minChars
	}
	return r
}

func newSettingsSetCmd() *cobra.Command {
	var f settingsFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change stored settings",
		Long: `Change one or more stored settings. Values are sanitized the same way
the broker sanitizes them: out-of-range numbers are clamped and endpoints
outside the provider's allow list fall back to the default endpoint.

Switching provider clears the endpoint and model so the new provider's
defaults apply, unless --api-url or --model are given too.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("provider") && !provider.Known(f.provider) {
				return errors.New(i18n.T("Unknown provider: %s", f.provider))
			}

			store, err := settingsStore()
			if err != nil {
				return err
			}
			raw, err := store.LoadRaw()
			if err != nil {
				return fmt.Errorf("%s: %w", i18n.T("Failed to read settings"), err)
			}

			over := f.overlay(cmd.Flags().Changed)
			if over.Provider != nil && provider.Normalize(f.provider) != settings.Sanitize(raw).Provider {
				if over.APIURL == nil {
					over.APIURL = ""
				}
				if over.Model == nil {
					over.Model = ""
				}
			}

			st := settings.Sanitize(raw.Overlay(over))
			if err := store.SavePublic(st); err != nil {
				return err
			}
			logSuccess("%s", i18n.T("Settings saved"))
			printSettings(store, st)
			return nil
		},
	}

	cmd.Flags().BoolVar(&f.enabled, "enabled", true, "Enable or disable translation")
	cmd.Flags().StringVar(&f.provider, "provider", "", "Provider id (see 'livetrans providers')")
	cmd.Flags().StringVar(&f.apiURL, "api-url", "", "Provider endpoint URL (empty for the default)")
	cmd.Flags().StringVar(&f.model, "model", "", "Model name (empty for the default)")
	cmd.Flags().Float64Var(&f.temperature, "temperature", settings.DefaultTemperature, "Sampling temperature, 0 to 1")
	cmd.Flags().StringVar(&f.style, "style", string(settings.StyleNatural), "Translation style: natural or faithful")
	cmd.Flags().IntVar(&f.minChars, "min-chars", settings.DefaultMinChars, "Shortest message that is translated")

	_ = cmd.RegisterFlagCompletionFunc("provider", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		all := provider.All()
		completions := make([]string, 0, len(all))
		for _, d := range all {
			completions = append(completions, fmt.Sprintf("%s\t%s", d.ID, d.Label))
		}
		return completions, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("style", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(settings.StyleNatural), string(settings.StyleFaithful)}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func newSettingsSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the provider API key",
		Long: `Prompt for the API key and store it in local.json (mode 0600).
The key is read from standard input so it does not end up in shell history.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settingsStore()
			if err != nil {
				return err
			}
			st, _ := store.Load()
			desc := provider.Lookup(st.Provider)

			fmt.Fprintf(os.Stderr, "\n%s%s API Key Setup%s\n", colorBlue, desc.Label, colorReset)
			fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
			if st.APIKey != "" {
				fmt.Fprintf(os.Stderr, "  Current key: %s%s%s\n", colorYellow, settings.MaskKey(st.APIKey), colorReset)
				fmt.Fprintf(os.Stderr, "  Enter new key to replace, or press Enter to keep: ")
			} else {
				fmt.Fprintf(os.Stderr, "  Enter API key: ")
			}

			key, err := readKey(cmd.InOrStdin())
			if err != nil {
				return err
			}
			if key == "" {
				if st.APIKey != "" {
					logInfo("Keeping existing key")
					return nil
				}
				return errors.New("no API key provided")
			}

			if err := store.SaveAPIKey(key); err != nil {
				return fmt.Errorf("saving API key: %w", err)
			}
			logSuccess("%s", i18n.T("Settings saved"))
			return nil
		},
	}
}

func readKey(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", errors.New("no input received")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func newSettingsClearKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-key",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settingsStore()
			if err != nil {
				return err
			}
			if err := store.ClearAPIKey(); err != nil {
				return fmt.Errorf("removing API key: %w", err)
			}
			logSuccess("%s", i18n.T("API key removed"))
			return nil
		},
	}
}

func newSettingsMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Move an API key left in sync.json by older releases",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settingsStore()
			if err != nil {
				return err
			}
			moved, err := store.Migrate()
			if err != nil {
				return err
			}
			if moved {
				logSuccess("%s", i18n.T("Moved legacy API key to local storage"))
			} else {
				logInfo("Nothing to migrate")
			}
			return nil
		},
	}
}

func newSettingsInitPromptsCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init-prompts",
		Short: "Write the default system prompts for editing",
		Long: `Write prompts.json with the built-in system prompts. Edit it to change
how generative providers are instructed; the {{targetLang}} placeholder is
replaced with the target language.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settingsStore()
			if err != nil {
				return err
			}
			path := store.PromptsPath()
			if fileExists(path) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := translate.WriteDefaultPrompts(path); err != nil {
				return err
			}
			logSuccess("Wrote %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing prompts.json")
	return cmd
}

// ---------------------------------------------------------------------------
// providers
// ---------------------------------------------------------------------------

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "providers",
		Aliases: []string{"ls"},
		Short:   "List supported translation providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			current := ""
			if store, err := settingsStore(); err == nil {
				if st, err := store.Load(); err == nil {
					current = st.Provider
				}
			}
			printProviders(current)
			return nil
		},
	}
}

func printProviders(current string) {
	fmt.Fprintf(os.Stderr, "\n%sProviders%s\n", colorBlue, colorReset)
	fmt.Fprintln(os.Stderr, strings.Repeat("─", 60))
	for _, d := range provider.All() {
		marker := " "
		if d.ID == current {
			marker = colorGreen + "*" + colorReset
		}
		auth := "no key"
		if d.RequiresAPIKey {
			auth = "API key"
		}
		fmt.Fprintf(os.Stderr, "%s %-12s %-18s %-16s %-8s %s\n", marker, d.ID, d.Label, d.Mode, auth, d.DefaultModel)
	}
	fmt.Fprintln(os.Stderr)
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or inspect livetrans.yaml",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a livetrans.yaml with the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			if fileExists(configPath) && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
			}
			if err := config.Default().Write(configPath); err != nil {
				return err
			}
			logSuccess("Wrote %s", configPath)
			logInfo("Add your extension id under extension_ids before running 'livetrans serve'")
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.AddCommand(initCmd, showCmd)
	return cmd
}

// ---------------------------------------------------------------------------
// version (display version information)
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("livetrans version %s\n", version)
			fmt.Printf("  commit:    %s\n", commit)
			fmt.Printf("  built:     %s\n", date)
		},
	}

	return cmd
}

// ---------------------------------------------------------------------------
// Shared helpers
// ---------------------------------------------------------------------------

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
