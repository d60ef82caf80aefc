package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/wirecho/wirecho"
	"github.com/wirecho/wirecho/echo"
)

var rootCmd = &cobra.Command{
	Use:   "wirechod",
	Short: "A concurrent WebSocket echo server",
	RunE:  runServer,
}

var (
	flagAddr    string
	flagPort    int
	flagWorkers int
	flagPretty  bool
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", "0.0.0.0", "bind address")
	flags.IntVar(&flagPort, "port", 8080, "bind port")
	flags.IntVar(&flagWorkers, "workers", 4, "worker count (minimum 1)")
	flags.BoolVar(&flagPretty, "pretty", false, "human-readable log output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute root command")
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if flagPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	srv := echo.New(&echo.Config{
		Addr:    net.JoinHostPort(flagAddr, strconv.Itoa(flagPort)),
		Workers: flagWorkers,
	})

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		// Fatal: the endpoint could not be bound, nothing was accepted.
		return err
	}

	log.Info().
		Str("addr", srv.Addr().String()).
		Int("workers", flagWorkers).
		Str("server", wirecho.Version).
		Msg("listening")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Stop(stopCtx)
}
