package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Alturino/cart/internal/constants"
	"github.com/Alturino/cart/internal/log"
)

func Start() {
	logger := log.Get(filepath.Join(constants.LOG_DIR, constants.APP_CART_SERVICE+".log"), os.Getenv("ENV")).
		With().
		Str(log.KEY_APP_NAME, constants.APP_CART_SERVICE).
		Str(log.KEY_TAG, "main Start").
		Logger()

	logger.Info().Msg("adding listener for SIGINT and SIGTERM")
	c, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info().Msg("added listener for SIGINT and SIGTERM")

	c = logger.WithContext(c)

	rootCmd := &cobra.Command{Use: "cart"}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "server",
		Short: "Run cart service",
		Run: func(cmd *cobra.Command, args []string) {
			RunCartService(cmd.Context())
		},
	})
	if err := rootCmd.ExecuteContext(c); err != nil {
		logger.Fatal().Err(err).Msgf("error when executing command=%s", err.Error())
	}
}
