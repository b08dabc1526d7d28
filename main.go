// Package main provides the entry point for the readable CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/readable/internal/audio"
	"github.com/dgnsrekt/readable/internal/cache"
	"github.com/dgnsrekt/readable/internal/history"
	"github.com/dgnsrekt/readable/internal/speech"
	"github.com/dgnsrekt/readable/tts"
	"github.com/dgnsrekt/readable/tts/engines"
	"github.com/dgnsrekt/readable/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	scope = gap.NewScope(gap.User, "readable")

	configFile    string
	voiceFlag     string
	speedFlag     float64
	workersFlag   int
	serialFlag    bool
	backendFlag   string
	rawInput      bool
	quiet         bool
	strict        bool
	noCache       bool
	outDir        string
	fromClipboard bool
	editInput     bool
	watchSource   bool

	// ttsConfig is the merged pipeline configuration, loaded in
	// validateOptions before any command runs.
	ttsConfig tts.Config

	rootCmd = &cobra.Command{
		Use:   "readable [SOURCE]",
		Short: "Read documents aloud from the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRead a document %s. SOURCE can be a file, a directory, or a URL; text can also arrive on stdin, from the clipboard, or from your editor.", keyword("aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// loadTTSConfig merges the config file, environment, and bound flags
// over the stock defaults and validates the result.
func loadTTSConfig() (tts.Config, error) {
	cfg := tts.DefaultConfig()

	if viper.IsSet("voice") {
		cfg.Voice = viper.GetString("voice")
	}
	if viper.IsSet("speed") {
		cfg.Speed = viper.GetFloat64("speed")
	}
	if viper.IsSet("workers") {
		cfg.Workers = viper.GetInt("workers")
	}
	if viper.IsSet("serial") {
		cfg.Serial = viper.GetBool("serial")
	}
	if viper.IsSet("backend") {
		cfg.Backend = viper.GetString("backend")
	}
	if viper.IsSet("max_chunk_chars") {
		cfg.MaxChunkChars = viper.GetInt("max_chunk_chars")
	}
	if viper.IsSet("max_text_chars") {
		cfg.MaxTextChars = viper.GetInt("max_text_chars")
	}
	if viper.IsSet("max_chunks") {
		cfg.MaxChunks = viper.GetInt("max_chunks")
	}
	if viper.IsSet("timeout") {
		cfg.Timeout = viper.GetDuration("timeout")
	}
	if viper.IsSet("attempts") {
		cfg.Attempts = viper.GetInt("attempts")
	}
	if viper.IsSet("requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("requests_per_minute")
	}
	if viper.IsSet("kokoro.url") {
		cfg.Kokoro.URL = viper.GetString("kokoro.url")
	}
	if viper.IsSet("command.path") {
		cfg.Command.Path = viper.GetString("command.path")
	}
	if viper.IsSet("command.args") {
		cfg.Command.Args = viper.GetStringSlice("command.args")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if viper.IsSet("cache.dir") {
		cfg.Cache.Dir = viper.GetString("cache.dir")
	}
	if viper.IsSet("cache.max_mb") {
		cfg.Cache.MaxMB = viper.GetInt("cache.max_mb")
	}
	if viper.IsSet("cache.compression") {
		cfg.Cache.Compression = viper.GetBool("cache.compression")
	}
	if viper.IsSet("history.enabled") {
		cfg.History.Enabled = viper.GetBool("history.enabled")
	}
	if viper.IsSet("history.max_sessions") {
		cfg.History.MaxSessions = viper.GetInt("history.max_sessions")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateOptions(*cobra.Command) error {
	var err error
	ttsConfig, err = loadTTSConfig()
	if err != nil {
		return err
	}

	// "bella" or "Isabella" resolve to catalog IDs. Names we cannot
	// match pass through untouched; a custom server may carry voices
	// the stock catalog does not know about.
	if v, err := tts.MatchVoice(ttsConfig.Voice); err == nil {
		ttsConfig.Voice = v.ID
	}

	if outDir != "" {
		outDir, err = homedir.Expand(outDir)
		if err != nil {
			return fmt.Errorf("unable to expand output dir: %w", err)
		}
	}
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchSource {
		if fromClipboard || editInput || arg == "" || arg == "-" {
			return errors.New("--watch needs a file to watch")
		}
		return watchAndSpeak(ctx, arg)
	}

	src, err := resolveSource(arg)
	if err != nil {
		return err
	}
	return executeSpeak(ctx, src)
}

// executeSpeak runs the whole reading pipeline for one source: clean,
// validate, chunk, synthesize, then play or save.
func executeSpeak(ctx context.Context, src *source) error {
	defer src.Close() //nolint:errcheck

	raw, err := io.ReadAll(src.reader)
	if err != nil {
		return fmt.Errorf("unable to read %s: %w", src.name, err)
	}

	text := string(raw)
	if rawInput {
		text = tts.Normalize(text)
	} else {
		text = speech.Clean(text)
	}
	if text == "" {
		return errors.New("nothing to read")
	}

	if err := tts.NewValidator(ttsConfig.Limits()).Validate(text); err != nil {
		return err
	}
	chunks := tts.Split(text, ttsConfig.MaxChunkChars)
	if len(chunks) == 0 {
		return errors.New("nothing to read")
	}
	log.Debug("prepared source", "source", src.name, "chars", len(text), "chunks", len(chunks))

	backend, err := engines.New(ttsConfig)
	if err != nil {
		return err
	}
	if v, ok := backend.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	var store *cache.Store
	if ttsConfig.Cache.Enabled && !noCache {
		store, err = openCacheStore()
		if err != nil {
			// A broken cache costs repeat synthesis, never the reading.
			log.Warn("cache unavailable, synthesizing uncached", "err", err)
			store = nil
		} else {
			defer store.Close() //nolint:errcheck
		}
	}

	retry := tts.DefaultRetryPolicy()
	retry.Attempts = ttsConfig.Attempts
	client, err := tts.NewClient(backend, store, tts.ClientConfig{
		Timeout:           ttsConfig.Timeout,
		Retry:             retry,
		RequestsPerMinute: ttsConfig.RequestsPerMinute,
	})
	if err != nil {
		return err
	}

	var player audio.Player = audio.NopPlayer{}
	if outDir == "" {
		player = audio.NewOtoPlayer()
	}
	defer player.Close() //nolint:errcheck

	s := &speakSession{
		title:      src.name,
		text:       text,
		chunks:     chunks,
		cfg:        ttsConfig,
		dispatcher: tts.NewDispatcher(client, ttsConfig.Workers),
		player:     player,
		journal:    openJournal(),
		outDir:     outDir,
		strict:     strict,
	}

	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing environment: %w", err)
	}
	uiCfg.Title = src.name
	uiCfg.Voice = ttsConfig.Voice
	uiCfg.Speed = ttsConfig.Speed
	uiCfg.Text = text

	if term.IsTerminal(int(os.Stdout.Fd())) && !quiet && !uiCfg.Plain {
		err = runWithProgress(ctx, s, uiCfg)
	} else {
		err = runPlain(ctx, s)
	}
	if err != nil {
		return err
	}

	for _, f := range s.skipped {
		log.Warn("skipped failed chunk", "chunk", f.Index+1, "err", f.Err)
	}
	if len(s.saved) > 0 {
		fmt.Printf("Wrote %d audio files to %s\n", len(s.saved), outDir)
	}
	if store != nil {
		st := store.Stats()
		log.Debug("cache session", "hits", st.Hits, "misses", st.Misses, "entries", st.Entries)
	}
	return nil
}

// speakSession carries one reading through dispatch and playback.
type speakSession struct {
	title      string
	text       string
	chunks     []tts.Chunk
	cfg        tts.Config
	dispatcher *tts.Dispatcher
	player     audio.Player
	journal    *history.Journal // nil disables history
	outDir     string
	strict     bool

	skipped []tts.ChunkFailure
	saved   []string
}

// run synthesizes and then plays or saves the session, reporting
// through notify as it goes. The returned error is the terminal
// failure; chunks skipped in non-strict mode land in s.skipped.
func (s *speakSession) run(ctx context.Context, notify func(tea.Msg)) error {
	finish := func(err error) error {
		notify(ui.DoneMsg{Err: err})
		return err
	}

	progress := func(completed, total, index int, err error) {
		notify(ui.ChunkDoneMsg{Index: index, Completed: completed, Total: total, Err: err})
	}

	notify(ui.StartMsg{Total: len(s.chunks)})

	var results []tts.Result
	var err error
	if s.cfg.Serial {
		results, err = s.dispatcher.DispatchSerial(ctx, s.chunks, s.cfg.Voice, s.cfg.Speed, progress)
	} else {
		results, err = s.dispatcher.Dispatch(ctx, s.chunks, s.cfg.Voice, s.cfg.Speed, progress)
	}
	if ctx.Err() != nil {
		return finish(ctx.Err())
	}
	if err != nil {
		var derr *tts.DispatchError
		if !errors.As(err, &derr) {
			return finish(err)
		}
		if s.strict || len(derr.Failures) == len(s.chunks) {
			return finish(derr)
		}
		s.skipped = derr.Failures
	}

	if s.outDir != "" {
		var audios [][]byte
		for _, r := range results {
			if r.Err == nil {
				audios = append(audios, r.Audio)
			}
		}
		paths, err := audio.WriteOrdered(s.outDir, audios)
		if err != nil {
			return finish(err)
		}
		s.saved = paths
	} else {
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			if ctx.Err() != nil {
				return finish(ctx.Err())
			}
			notify(ui.PlayingMsg{Index: r.Index})
			if err := s.player.Play(ctx, r.Audio); err != nil {
				if ctx.Err() != nil {
					return finish(ctx.Err())
				}
				return finish(fmt.Errorf("playback: %w", err))
			}
		}
	}

	if s.journal != nil {
		sess := history.NewSession(s.text, s.cfg.Voice, s.cfg.Speed, len(s.chunks))
		if err := s.journal.Add(sess); err != nil {
			log.Warn("could not record history", "err", err)
		}
	}
	return finish(nil)
}

// runWithProgress drives the session under the Bubble Tea progress
// display. Quitting the display cancels the pipeline cooperatively.
func runWithProgress(ctx context.Context, s *speakSession, uiCfg ui.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(ui.NewModel(uiCfg, cancel))

	errc := make(chan error, 1)
	go func() {
		errc <- s.run(ctx, p.Send)
	}()

	final, uiErr := p.Run()
	cancel()
	err := <-errc
	if uiErr != nil {
		return fmt.Errorf("unable to run progress display: %w", uiErr)
	}
	if m, ok := final.(ui.Model); ok && m.Cancelled() {
		log.Info("cancelled")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		log.Info("cancelled")
		return nil
	}
	return err
}

// runPlain drives the session with plain log lines, for pipes and
// --quiet runs.
func runPlain(ctx context.Context, s *speakSession) error {
	total := len(s.chunks)
	err := s.run(ctx, func(msg tea.Msg) {
		switch m := msg.(type) {
		case ui.ChunkDoneMsg:
			if m.Err != nil {
				log.Error("chunk failed", "chunk", m.Index+1, "total", m.Total, "err", m.Err)
			} else {
				log.Info("synthesized", "chunk", m.Index+1, "total", m.Total)
			}
		case ui.PlayingMsg:
			log.Info("playing", "chunk", m.Index+1, "total", total)
		}
	})
	if errors.Is(err, context.Canceled) {
		log.Info("cancelled")
		return nil
	}
	return err
}

// openCacheStore opens the audio cache at the configured or default
// location.
func openCacheStore() (*cache.Store, error) {
	dir := ttsConfig.Cache.Dir
	if dir == "" {
		d, err := scope.CacheDir()
		if err != nil {
			return nil, fmt.Errorf("unable to resolve cache dir: %w", err)
		}
		dir = d
	} else {
		d, err := homedir.Expand(dir)
		if err != nil {
			return nil, fmt.Errorf("unable to expand cache dir: %w", err)
		}
		dir = d
	}
	return cache.Open(cache.Config{
		Dir:         dir,
		MaxBytes:    int64(ttsConfig.Cache.MaxMB) << 20,
		Compression: ttsConfig.Cache.Compression,
	})
}

// openJournal opens the reading history, or returns nil when history
// is disabled or unavailable.
func openJournal() *history.Journal {
	if !ttsConfig.History.Enabled {
		return nil
	}
	j, err := historyJournal()
	if err != nil {
		log.Warn("history unavailable", "err", err)
		return nil
	}
	return j
}

func historyJournal() (*history.Journal, error) {
	dirs, err := scope.DataDirs()
	if err != nil {
		return nil, fmt.Errorf("unable to resolve data dir: %w", err)
	}
	if len(dirs) == 0 {
		return nil, errors.New("unable to resolve data dir")
	}
	return history.Open(dirs[0], ttsConfig.History.MaxSessions)
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
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

	defaults := tts.DefaultConfig()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&voiceFlag, "voice", "v", defaults.Voice, "voice to read with (ID or name, fuzzy matched)")
	rootCmd.Flags().Float64VarP(&speedFlag, "speed", "s", defaults.Speed, "playback speed (0.25-4.0)")
	rootCmd.Flags().IntVar(&workersFlag, "workers", defaults.Workers, "parallel synthesis workers")
	rootCmd.Flags().BoolVar(&serialFlag, "serial", false, "synthesize chunks one at a time")
	rootCmd.Flags().StringVar(&backendFlag, "backend", defaults.Backend, "synthesis backend (kokoro, command, mock)")
	rootCmd.Flags().BoolVar(&rawInput, "raw", false, "skip markdown cleanup and read the source verbatim")
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "plain log lines instead of the progress display")
	rootCmd.Flags().BoolVar(&strict, "strict", false, "fail instead of skipping chunks that could not be synthesized")
	rootCmd.Flags().StringVarP(&outDir, "out", "o", "", "write chunk WAVs to this directory instead of playing")
	rootCmd.Flags().BoolVar(&fromClipboard, "clipboard", false, "read the text on the system clipboard")
	rootCmd.Flags().BoolVarP(&editInput, "edit", "e", false, "compose the text to read in $EDITOR")
	rootCmd.Flags().BoolVarP(&watchSource, "watch", "w", false, "re-read SOURCE whenever it changes")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "synthesize without touching the audio cache")

	// Config bindings
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("serial", rootCmd.Flags().Lookup("serial"))
	_ = viper.BindPFlag("backend", rootCmd.Flags().Lookup("backend"))

	rootCmd.AddCommand(configCmd, manCmd, voicesCmd, cacheCmd, historyCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "readable")}, dirs...)
	}

	if c := os.Getenv("READABLE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("readable")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("readable")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "readable.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
