package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sortify/internal/ai"
	"github.com/desertthunder/sortify/internal/auth"
	"github.com/desertthunder/sortify/internal/enrich"
	"github.com/desertthunder/sortify/internal/repositories"
	"github.com/desertthunder/sortify/internal/server"
	"github.com/desertthunder/sortify/internal/services"
	"github.com/desertthunder/sortify/internal/shared"
	"github.com/desertthunder/sortify/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// cliSession is the fixed credential-store key used by CLI commands: the CLI
// serves one user, unlike the web surface which keys sessions by cookie.
const cliSession = "cli"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	store      *auth.CredentialStore
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      auth.NewCredentialStore(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playlistsCommand, copyCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writePlain(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}

func (r *Runner) writeJSON(data any) error {
	enc := json.NewEncoder(r.output)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// reloadConfig re-reads config.toml when the command points at one.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	path := cmd.String("config")
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if config, err := shared.LoadConfig(path); err == nil {
		r.config = config
	}
}

// openDatabase opens the configured sqlite database and runs migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (r *Runner) oauthConfig() *oauth2.Config {
	creds := r.config.Credentials.Spotify
	return services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
}

func (r *Runner) refreshFunc() auth.RefreshFunc {
	creds := r.config.Credentials.Spotify
	client := auth.NewRefreshClient(services.SpotifyTokenURL, creds.ClientID, creds.ClientSecret, r.httpClient)
	return client.Refresh
}

// spotifyService builds the pipeline-backed Spotify client for the CLI session.
func (r *Runner) spotifyService() (*services.SpotifyService, error) {
	if err := r.loadTokens(); err != nil {
		return nil, fmt.Errorf("%w: run 'sortify auth' first", shared.ErrNotAuthenticated)
	}
	pipeline := auth.NewPipeline(r.store, cliSession, r.refreshFunc(), r.httpClient, r.logger)
	return services.NewSpotifyService(pipeline, r.logger), nil
}

// tokenPath is where the CLI persists its token pair between invocations.
func tokenPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "sortify", "tokens.json")
}

func (r *Runner) saveTokens(creds auth.Credentials) error {
	path := tokenPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write tokens: %w", err)
	}
	return nil
}

func (r *Runner) loadTokens() error {
	if _, ok := r.store.Get(cliSession); ok {
		return nil
	}
	data, err := os.ReadFile(tokenPath())
	if err != nil {
		return err
	}
	var creds auth.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return err
	}
	r.store.Put(cliSession, creds)
	return nil
}

// Setup creates the config file when missing and initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.writePlain("Created %s - fill in your Spotify credentials.\n", path)
	}

	r.reloadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	r.writePlain("Database ready at %s\n", r.config.Database.Path)
	return nil
}

// Auth executes the OAuth2 authorization flow with a local HTTP server and
// persists the resulting token pair for later commands.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	if r.config.Credentials.Spotify.ClientID == "" || r.config.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: set spotify client_id and client_secret in config.toml", shared.ErrMissingCredentials)
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state token: %w", err)
	}

	oauthConfig := r.oauthConfig()
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{Addr: serverAddr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return fmt.Errorf("no token received")
	}

	creds := auth.Credentials{
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
	}
	r.store.Put(cliSession, creds)
	if err := r.saveTokens(creds); err != nil {
		return err
	}

	r.writePlain("✓ Authenticated with Spotify\n")
	return nil
}

// Playlists lists the authenticated user's playlists.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	playlists, err := spotify.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists)
	}

	for i, p := range playlists {
		r.writePlain("%d. %s (%d tracks)\n", i+1, p.Name, p.TrackCount)
	}
	return nil
}

// Copy runs a one-shot filtered playlist copy.
func (r *Runner) Copy(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	spotify, err := r.spotifyService()
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cache := repositories.NewFeatureCacheRepository(db, r.logger)
	features := enrich.NewFeatureClient(enrich.FeatureClientOpts{
		BaseURL:           r.config.Enrichment.BaseURL,
		APIKey:            r.config.Enrichment.APIKey,
		RequestsPerSecond: r.config.Enrichment.RequestsPerSecond,
		Logger:            r.logger,
	})
	resolver := services.NewGenreResolver(spotify, r.logger)
	enricher := enrich.NewEnricher(resolver, features, cache, r.logger)

	var selector tasks.Selector
	if r.config.AI.BaseURL != "" {
		selector = ai.NewClient(r.config.AI.BaseURL, r.config.AI.Model)
	}

	engine := tasks.NewCopyEngine(spotify, enricher, selector, r.logger)

	result, err := engine.CopyFiltered(ctx, cmd.String("id"), tasks.CopyOptions{
		Name:   cmd.String("name"),
		Genre:  cmd.String("genre"),
		Decade: int(cmd.Int("decade")),
		Prompt: cmd.String("prompt"),
	})
	if err != nil {
		return err
	}

	r.writePlain("✓ Created playlist: %s\n", result.Created.Name)
	r.writePlain("  Copied %d of %d tracks\n", result.Copied, result.Total)
	return nil
}

// Serve starts the playlist web service.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	r.reloadConfig(cmd)

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	cache := repositories.NewFeatureCacheRepository(db, r.logger)
	features := enrich.NewFeatureClient(enrich.FeatureClientOpts{
		BaseURL:           r.config.Enrichment.BaseURL,
		APIKey:            r.config.Enrichment.APIKey,
		RequestsPerSecond: r.config.Enrichment.RequestsPerSecond,
		Logger:            r.logger,
	})

	var selector tasks.Selector
	if r.config.AI.BaseURL != "" {
		selector = ai.NewClient(r.config.AI.BaseURL, r.config.AI.Model)
	}

	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(server.NewSessionAuthHandler(r.oauthConfig(), r.store))
	router.Handler(server.NewAPIHandler(server.APIDeps{
		Store:      r.store,
		Refresh:    r.refreshFunc(),
		HTTPClient: r.httpClient,
		Features:   features,
		Cache:      cache,
		Selector:   selector,
		Logger:     r.logger,
	}))

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.logger.Infof("listening on %s", addr)
	return http.ListenAndServe(addr, router)
}
