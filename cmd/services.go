package cmd

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"Barista/Auth"
	"Barista/Config"
	"Barista/Controllers"
	"Barista/CronJobs"
	"Barista/Notifications"
	"Barista/Store"
)

const sessionTTL = 7 * 24 * time.Hour

// services is everything a command needs, built once from the configuration.
type services struct {
	cfg          Config.AppConfig
	log          *logrus.Logger
	store        Store.Store
	provider     Auth.Provider
	local        *Auth.LocalProvider
	firestore    *Store.FirestoreStore
	materializer *CronJobs.Materializer
	devices      Controllers.DeviceSubscriber
}

func loadServices(ctx context.Context) (*services, error) {
	cfg, err := Config.Load()
	if err != nil {
		return nil, err
	}
	log := Config.NewLogger(cfg)
	s := &services{cfg: cfg, log: log}

	var notifiers Notifications.Multi
	if cfg.SlackBotToken != "" && cfg.SlackChannelID != "" {
		notifiers = append(notifiers, Notifications.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannelID))
	}

	switch cfg.StoreDriver {
	case "firestore":
		app, err := newFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("error initializing firestore: %w", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("error initializing firebase auth: %w", err)
		}
		s.firestore = Store.NewFirestoreStore(client)
		s.store = s.firestore
		s.provider = Auth.NewFirebaseProvider(authClient)

		if cfg.FCMEnabled {
			messagingClient, err := app.Messaging(ctx)
			if err != nil {
				client.Close()
				return nil, fmt.Errorf("error initializing messaging: %w", err)
			}
			fcm := Notifications.NewFCMNotifier(messagingClient)
			notifiers = append(notifiers, fcm)
			s.devices = fcm
		}
	default:
		sqlStore, err := Store.Open(cfg.StoreDriver, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		local, err := Auth.NewLocalProvider(sqlStore.DB(), cfg.JWTSecret, sessionTTL)
		if err != nil {
			sqlStore.Close()
			return nil, err
		}
		s.store = sqlStore
		s.provider = local
		s.local = local
	}

	opts := []CronJobs.Option{
		CronJobs.WithWorkers(cfg.FanoutWorkers),
		CronJobs.WithLogger(log),
	}
	if len(notifiers) > 0 {
		opts = append(opts, CronJobs.WithNotifier(notifiers))
	}
	s.materializer = CronJobs.NewMaterializer(s.store, cfg.Location(), opts...)

	log.WithFields(logrus.Fields{
		"store":     cfg.StoreDriver,
		"timezone":  cfg.Location().String(),
		"notifiers": len(notifiers),
	}).Debug("services initialized")
	return s, nil
}

func newFirebaseApp(ctx context.Context, cfg Config.AppConfig) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	return app, nil
}

func (s *services) Close() {
	if err := s.store.Close(); err != nil {
		s.log.WithError(err).Warn("error closing store")
	}
}
