package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"
	"voice-connector/internal/config"
	"voice-connector/internal/infra/capture"
	"voice-connector/internal/infra/handlers"
	"voice-connector/internal/infra/logger"
	"voice-connector/internal/infra/provider"
	"voice-connector/internal/infra/routes"
	"voice-connector/internal/infra/services"
	"voice-connector/internal/middleware"

	"github.com/gorilla/mux"
)

func main() {
	config.LoadEnv()

	ctx := context.Background()
	log := logger.NewLogger(ctx, true)

	apiKey := config.GetEnv("OPENAI_API_KEY")
	assistantID := config.GetEnv("ASSISTANT_ID")
	host := config.GetEnvOr("OPENAI_API_HOST", "https://api.openai.com")

	httpClient := &http.Client{}

	assistant := provider.NewOpenAIAssistantProvider(log, httpClient, provider.AssistantConfig{
		Host:         host,
		APIKey:       apiKey,
		AssistantID:  assistantID,
		PollInterval: config.GetDuration("RUN_POLL_INTERVAL", time.Second),
		RunTimeout:   config.GetDuration("RUN_TIMEOUT", 0),
	})
	transcription := provider.NewWhisperTranscriptionProvider(log, httpClient, provider.TranscriptionConfig{
		Host:   host,
		APIKey: apiKey,
		Model:  config.GetEnvOr("TRANSCRIBE_MODEL", "whisper-1"),
	})
	speech := provider.NewOpenAISpeechProvider(log, httpClient, provider.SpeechConfig{
		Host:   host,
		APIKey: apiKey,
		Model:  config.GetEnvOr("SPEECH_MODEL", "tts-1"),
		Voice:  config.GetEnvOr("SPEECH_VOICE", "alloy"),
		Speed:  config.GetFloat("SPEECH_RATE", 0.9),
	})

	conversations := services.NewConversationService(log)
	recorder := capture.NewRecorder(config.GetDuration("RECORDING_LIMIT", 10*time.Second))
	pipeline := services.NewPipelineService(log, conversations, assistant, transcription, recorder)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(log))

	apiHandlers := handlers.NewApiHandlers(log, assistant, transcription)
	conversationHandlers := handlers.NewConversationHandlers(log, conversations, pipeline, speech)

	routes := routes.NewRoutes(
		router,
		apiHandlers,
		conversationHandlers,
	)

	routes.Init()

	port := config.GetEnv("PORT")
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	go func() {
		log.Info(fmt.Sprintf("Server is running on port %s", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(fmt.Sprintf("Error running HTTP server: %s", err))
			os.Exit(1)
		}
	}()

	<-stop
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	} else {
		log.Info("Server stopped gracefully.")
	}
}
