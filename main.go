// Package main provides the listenlater command line interface.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/listenlater/listenlater/internal/cache"
	"github.com/listenlater/listenlater/tts"
	"github.com/listenlater/listenlater/tts/audio"
	"github.com/listenlater/listenlater/tts/engines"
	"github.com/listenlater/listenlater/tts/markdown"
	"github.com/listenlater/listenlater/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	providerFlag string
	voiceFlag    string

	rootCmd = &cobra.Command{
		Use:           "listenlater",
		Short:         "Turn saved articles into narrated audio",
		SilenceErrors: false,
		SilenceUsage:  true,
	}

	speakCmd = &cobra.Command{
		Use:   "speak [FILE]",
		Short: "Narrate a Markdown article with word-level highlighting",
		Long: "Reads the given Markdown file (or stdin with -), generates speech\n" +
			"chunk by chunk, and plays it gaplessly in an interactive terminal player.",
		Args: cobra.MaximumNArgs(1),
		RunE: runSpeak,
	}

	voicesCmd = &cobra.Command{
		Use:   "voices",
		Short: "List voices offered by the configured provider",
		Args:  cobra.NoArgs,
		RunE:  runVoices,
	}

	statusCmd = &cobra.Command{
		Use:   "status [FILE]",
		Short: "Show generation progress and cache statistics for an article",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runStatus,
	}
)

func main() {
	// Credentials commonly live in a .env during development.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()

	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "",
		"synthesis provider (elevenlabs/openai/local/auto)")
	rootCmd.PersistentFlags().StringVar(&voiceFlag, "voice", "", "provider voice ID")

	_ = viper.BindPFlag("tts.provider", rootCmd.PersistentFlags().Lookup("provider"))
	_ = viper.BindPFlag("tts.voice", rootCmd.PersistentFlags().Lookup("voice"))

	viper.SetDefault("tts.provider", "auto")
	viper.SetDefault("tts.max_chunk_chars", 3000)
	viper.SetDefault("tts.skip_seconds", 10)
	viper.SetDefault("cache.memory_mb", 100)
	viper.SetDefault("cache.disk_mb", 1024)
	viper.SetDefault("cache.compression_level", 3)

	rootCmd.AddCommand(speakCmd, voicesCmd, statusCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "listenlater")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "listenlater")}, dirs...)
	}
	if c := os.Getenv("LISTENLATER_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("listenlater")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("listenlater")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}
}

// readArticle loads the Markdown source for a command argument. "-" or a
// piped stdin reads from standard input.
func readArticle(args []string) (title, body string, err error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return "stdin", string(b), nil
	}

	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", fmt.Errorf("reading article: %w", err)
	}
	title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
	return title, string(b), nil
}

// articleID derives a stable identifier for caching. File-backed articles
// hash their normalized text so the same article hits the same cache
// entries across runs; stdin gets a fresh ID.
func articleID(args []string, normalized string) string {
	if len(args) == 0 || args[0] == "-" {
		return uuid.NewString()
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:16])
}

func setup() (tts.Config, *cache.Store, error) {
	cfg, err := tts.LoadConfig()
	if err != nil {
		return cfg, nil, err
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		scope := gap.NewScope(gap.User, "listenlater")
		dir, err := scope.CacheDir()
		if err != nil {
			return cfg, nil, fmt.Errorf("resolving cache directory: %w", err)
		}
		cacheDir = filepath.Join(dir, "chunks")
	}

	store := cache.NewStore(cache.StoreConfig{
		MemoryBytes:      int64(cfg.MemoryCacheMB) << 20,
		DiskBytes:        int64(cfg.DiskCacheMB) << 20,
		DiskPath:         cacheDir,
		CompressionLevel: cfg.CompressionLevel,
	})
	return cfg, store, nil
}

func runSpeak(_ *cobra.Command, args []string) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	title, raw, err := readArticle(args)
	if err != nil {
		return err
	}

	text := markdown.Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return tts.ErrNothingToSynthesize
	}

	provider, err := engines.Build(cfg)
	if err != nil {
		return err
	}

	orch := tts.NewOrchestrator(provider, store, tts.OrchestratorConfig{
		MaxChunkChars:     cfg.MaxChunkChars,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})

	engine, err := audio.NewEngine()
	if err != nil {
		return fmt.Errorf("opening audio device: %w", err)
	}
	defer engine.Close() //nolint:errcheck

	seq := tts.NewSequencer(engine, orch.ChunkCount(text))
	seq.SetSkip(cfg.Skip())
	if err := seq.Start(); err != nil {
		return err
	}
	defer seq.Stop() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The TUI owns the terminal; route logs away from it.
	log.SetOutput(io.Discard)

	id := articleID(args, text)
	p := tea.NewProgram(ui.NewPlayer(seq, title))

	genErr := make(chan error, 1)
	go func() {
		err := orch.GenerateAll(ctx, id, text, cfg.VoiceID, func(audio *tts.ChunkAudio) {
			_ = seq.AddChunk(audio)
		})
		genErr <- err
		if err != nil && !errors.Is(err, context.Canceled) {
			// Surface the failure in the running player; already generated
			// chunks keep playing.
			p.Send(ui.GenerationErrorMsg{Err: err})
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running player: %w", err)
	}
	cancel()

	if err := <-genErr; err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("generation stopped: %w", err)
	}
	return nil
}

func runVoices(cmd *cobra.Command, _ []string) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	provider, err := engines.Build(cfg)
	if err != nil {
		return err
	}

	voices, err := provider.Voices(cmd.Context())
	if err != nil {
		return err
	}

	for _, v := range voices {
		if v.Category != "" {
			fmt.Printf("%-24s %-20s %s\n", v.ID, v.Name, v.Category)
		} else {
			fmt.Printf("%-24s %s\n", v.ID, v.Name)
		}
	}
	return nil
}

func runStatus(_ *cobra.Command, args []string) error {
	cfg, store, err := setup()
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	if len(args) == 1 {
		_, raw, err := readArticle(args)
		if err != nil {
			return err
		}
		text := markdown.Normalize(raw)

		// Progress only needs the splitter and the store, not a provider.
		orch := tts.NewOrchestrator(nil, store, tts.OrchestratorConfig{
			MaxChunkChars: cfg.MaxChunkChars,
		})
		progress := orch.Progress(articleID(args, text), cfg.VoiceID, text)
		fmt.Printf("chunks generated: %d of %d\n",
			len(progress.GeneratedIndices), progress.TotalChunks)
	}

	fmt.Printf("memory cache: %s\n", store.MemoryStats())
	if stats, ok := store.DiskStats(); ok {
		fmt.Printf("disk cache:   %s\n", stats)
	} else {
		fmt.Println("disk cache:   disabled")
	}
	return nil
}
