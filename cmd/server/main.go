package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/w-h-a/sourcechat/assistant"
	"github.com/w-h-a/sourcechat/assistant/openai"
	httpserver "github.com/w-h-a/sourcechat/internal/server/http"
	"github.com/w-h-a/sourcechat/internal/service/chat"
	driveservice "github.com/w-h-a/sourcechat/internal/service/drive"
	"github.com/w-h-a/sourcechat/reference"
)

var (
	cfg struct {
		// Server config
		Address string `help:"Address for the HTTP server" default:"0.0.0.0:8000" env:"ADDRESS"`

		// Assistant config
		OpenAIKey    string        `help:"API key for the upstream assistant" env:"OPENAI_API_KEY" required:""`
		AssistantId  string        `help:"Upstream assistant identifier" env:"ASSISTANT_ID" required:""`
		PollInterval time.Duration `help:"Run status poll interval" default:"1s" env:"POLL_INTERVAL"`
		PollAttempts int           `help:"Run status poll budget per turn" default:"60" env:"POLL_ATTEMPTS"`

		// Reference document config
		ReferencePath string `help:"Path to the reference document" default:"fuente_agente_v1.json" env:"REFERENCE_PATH"`

		// Drive config (folder search is disabled without credentials)
		ServiceAccountJSON string `help:"Service account credentials as inline JSON" env:"GOOGLE_SERVICE_ACCOUNT_JSON"`
		CredentialsFile    string `help:"Path to a service account credentials file" default:"service-account.json" env:"GOOGLE_CREDENTIALS_FILE"`

		ParentFolderId            string `help:"Drive folder id for 'todas'" env:"GOOGLE_DRIVE_PARENT_FOLDER_ID"`
		ArticulosFolderId         string `help:"Drive folder id for 'articulos'" env:"GOOGLE_DRIVE_ARTICULOS_ID"`
		ArticulosRevistasFolderId string `help:"Drive folder id for 'articulos_revistas'" env:"GOOGLE_DRIVE_ARTICULOS_REVISTAS_ID"`
		AudiosFolderId            string `help:"Drive folder id for 'audios'" env:"GOOGLE_DRIVE_AUDIOS_ID"`
		ContemplacionesFolderId   string `help:"Drive folder id for 'contemplaciones'" env:"GOOGLE_DRIVE_CONTEMPLACIONES_ID"`
		LibrosFolderId            string `help:"Drive folder id for 'libros'" env:"GOOGLE_DRIVE_LIBROS_ID"`
		VideosFolderId            string `help:"Drive folder id for 'videos'" env:"GOOGLE_DRIVE_VIDEOS_ID"`
	}
)

func main() {
	// Pick up .env before kong reads the environment
	_ = godotenv.Load()
	_ = kong.Parse(&cfg)

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load reference document (soft-fails to an empty index)
	index := reference.Load(cfg.ReferencePath)

	// Create upstream assistant session
	a := openai.NewAssistant(
		assistant.WithApiKey(cfg.OpenAIKey),
		assistant.WithAssistantId(cfg.AssistantId),
		assistant.WithPollInterval(cfg.PollInterval),
		assistant.WithPollAttempts(cfg.PollAttempts),
	)

	// Create services
	chatService := chat.New(a, index)
	driveService := newDriveService(ctx, index)

	// Create server
	srv := httpserver.NewServer(
		cfg.Address,
		chatService,
		driveService,
		cfg.AssistantId,
		index.Size(),
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server listening", "address", cfg.Address, "assistant_id", cfg.AssistantId)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}

func newDriveService(ctx context.Context, index *reference.Index) httpserver.DriveService {
	var opts []option.ClientOption

	switch {
	case len(cfg.ServiceAccountJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case fileExists(cfg.CredentialsFile):
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		slog.Warn("no drive credentials configured, folder search disabled")
		return nil
	}

	opts = append(opts, option.WithScopes(gdrive.DriveReadonlyScope))

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		slog.Warn("failed to initialize drive client, folder search disabled", "error", err)
		return nil
	}

	folders := map[string]string{
		"todas":              cfg.ParentFolderId,
		"articulos":          cfg.ArticulosFolderId,
		"articulos_revistas": cfg.ArticulosRevistasFolderId,
		"audios":             cfg.AudiosFolderId,
		"contemplaciones":    cfg.ContemplacionesFolderId,
		"libros":             cfg.LibrosFolderId,
		"videos":             cfg.VideosFolderId,
	}

	return driveservice.New(svc, folders, index)
}

func fileExists(path string) bool {
	if len(path) == 0 {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
