package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/Vovarama1992/speech_studio/internal/clipboard"
	"github.com/Vovarama1992/speech_studio/internal/config"
	"github.com/Vovarama1992/speech_studio/internal/delivery"
	"github.com/Vovarama1992/speech_studio/internal/error_notificator"
	"github.com/Vovarama1992/speech_studio/internal/speech"
	"github.com/Vovarama1992/speech_studio/internal/stt"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / CONFIG
	// =========================================================================

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// =========================================================================
	// ERROR NOTIFICATION
	// =========================================================================

	errInfra := error_notificator.NewInfra(zl)
	errService := error_notificator.NewService(errInfra)

	// =========================================================================
	// CLIENTS (TTS / STT)
	// =========================================================================

	var ttsClient speech.TTSClient
	switch cfg.TTS.Provider {
	case config.ProviderOpenAI:
		ttsClient, err = speech.NewOpenAIClient(speech.OpenAIConfig{
			APIKey: cfg.TTS.OpenAIKey,
			Model:  cfg.TTS.OpenAIModel,
			Voice:  cfg.TTS.OpenAIVoice,
		})
	default:
		ttsClient, err = speech.NewCloudflareClient(speech.CloudflareConfig{
			AccountID: cfg.TTS.AccountID,
			APIToken:  cfg.TTS.APIToken,
			BaseURL:   cfg.TTS.APIBase,
			Model:     cfg.TTS.Model,
			Speaker:   cfg.TTS.Speaker,
			Encoding:  cfg.TTS.Encoding,
			Timeout:   cfg.TTS.Timeout,
		})
	}
	if err != nil {
		log.Fatalf("failed to init tts client: %v", err)
	}

	var newRecognizer delivery.RecognizerFactory
	if cfg.STTEnabled() {
		dgCfg := stt.DeepgramConfig{
			APIKey:     cfg.STT.DeepgramKey,
			Model:      cfg.STT.DeepgramModel,
			Encoding:   cfg.STT.Encoding,
			SampleRate: cfg.STT.SampleRate,
		}
		newRecognizer = func() stt.Recognizer {
			return stt.NewDeepgramRecognizer(dgCfg, zl)
		}
	} else {
		zl.Log(logger.LogEntry{Level: "warn", Message: "DEEPGRAM_API_KEY is not set, speech recognition disabled", Service: "speech_studio"})
	}

	var sysClipboard stt.Clipboard
	if cfg.STT.Clipboard == config.ClipboardSystem {
		if clipboard.Available() {
			sysClipboard = clipboard.NewSystem()
		} else {
			zl.Log(logger.LogEntry{Level: "warn", Message: "system clipboard not available, falling back to browser clipboard", Service: "speech_studio"})
		}
	}

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	speechService := speech.NewService(ttsClient, zl)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	// HANDLERS
	ttsHandler := delivery.NewTTSHandler(speechService, errService, zl)
	sttHandler := delivery.NewSTTHandler(
		newRecognizer,
		sysClipboard,
		delivery.STTConfig{
			DefaultLocale:  cfg.STT.DefaultLanguage,
			RestartDelay:   cfg.STT.RestartDelay,
			MaxRestarts:    cfg.STT.MaxRestarts,
			RestartWindow:  cfg.STT.RestartWindow,
			AllowedOrigins: cfg.AllowedOrigins,
		},
		errService,
		zl,
	)

	// ROUTES
	delivery.RegisterRoutes(r, ttsHandler, sttHandler, cfg.TTS.RateLimit)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zl.Log(logger.LogEntry{
			Level:   "info",
			Message: "listening at " + addr,
			Service: "speech_studio",
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Log(logger.LogEntry{Level: "error", Message: "shutdown failed", Error: err, Service: "speech_studio"})
	}
}
