package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sebadev7/dodi-server/internal/controller"
	conninmemory "github.com/sebadev7/dodi-server/internal/repository/connection/inmemory"
	sessioninmemory "github.com/sebadev7/dodi-server/internal/repository/session/inmemory"
	"github.com/sebadev7/dodi-server/internal/service/session"
	"github.com/sebadev7/dodi-server/pkg/ctxlogger"
)

type AppConfig struct {
	Host              string  `json:"host"`
	Port              int     `json:"port"`
	LogLevel          string  `json:"log_level"`
	PositionTolerance float64 `json:"position_tolerance"`
	AuthorityPromote  bool    `json:"authority_promote"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in [1, 65535]")
	}
	if cfg.PositionTolerance < 0 {
		return fmt.Errorf("position tolerance must not be negative")
	}
	return nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(cfg.LogLevel))); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	logger := slog.New(&h)

	sessionRepo := sessioninmemory.NewRepo(logger)
	connectionRepo := conninmemory.NewRepo(logger)
	sessionService := session.NewService(sessionRepo, connectionRepo, session.Config{
		PositionTolerance:       cfg.PositionTolerance,
		PromoteOnAuthorityLeave: cfg.AuthorityPromote,
	}, logger)
	controller := controller.NewController(sessionService, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: controller.GetMux()}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	<-serverCtx.Done()

	return nil
}
