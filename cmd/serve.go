package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"Barista/CronJobs"
	"Barista/FiberConfig"
)

const fanoutTimeout = 30 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the daily fan-out scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadServices(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		scheduler := CronJobs.NewDailyFanout(s.materializer, s.cfg.FanoutSchedule, s.cfg.FanoutRunOnStart, fanoutTimeout)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()

		app := FiberConfig.NewApp(FiberConfig.Dependencies{
			Config:       s.cfg,
			Store:        s.store,
			Provider:     s.provider,
			Local:        s.local,
			Materializer: s.materializer,
			Devices:      s.devices,
			Log:          s.log,
		})

		errCh := make(chan error, 1)
		go func() {
			s.log.WithField("port", s.cfg.Port).Info("server starting")
			errCh <- app.Listen(":" + s.cfg.Port)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-quit:
		}

		s.log.Info("shutting down server")
		done := make(chan error, 1)
		go func() { done <- app.Shutdown() }()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			s.log.Warn("server forced to shutdown")
			return nil
		}
	},
}
