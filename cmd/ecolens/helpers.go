package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/classifier"
	"github.com/Veraticus/ecolens/internal/config"
	"github.com/Veraticus/ecolens/internal/events"
	"github.com/Veraticus/ecolens/internal/service"
	"github.com/Veraticus/ecolens/internal/session"
	"github.com/Veraticus/ecolens/internal/storage"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// initStorage opens the database with path expansion and runs migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := config.ExpandPath(viper.GetString("database.path"))

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// startClassifier builds the configured backend and begins loading it in
// the background.
func startClassifier(ctx context.Context) (*classifier.Adapter, error) {
	cfg := config.LoadClassifierConfig()
	load, err := classifier.NewLoader(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure classifier: %w", err)
	}

	adapter := classifier.NewAdapter(load, slog.Default().With("component", "classifier", "provider", cfg.Provider))
	adapter.Load(ctx)
	return adapter, nil
}

// startPublisher connects to the MQTT broker when one is configured. The
// returned cleanup is never nil.
func startPublisher() (*events.MQTTPublisher, func(), error) {
	broker := viper.GetString("events.mqtt.broker")
	if broker == "" {
		return nil, func() {}, nil
	}

	client, err := events.Connect(events.ClientConfig{
		Broker:   broker,
		ClientID: viper.GetString("events.mqtt.client_id"),
		Username: viper.GetString("events.mqtt.username"),
		Password: viper.GetString("events.mqtt.password"),
	})
	if err != nil {
		return nil, func() {}, err
	}

	pub := events.NewMQTTPublisher(client, viper.GetString("events.mqtt.topic"), slog.Default().With("component", "mqtt"))
	return pub, func() {
		pub.Wait()
		events.Disconnect(client)
	}, nil
}

// sessionBuilder creates sessions that share one classifier and store.
type sessionBuilder struct {
	profile   *config.Profile
	adapter   *classifier.Adapter
	sink      service.RewardSink
	publisher *events.MQTTPublisher
}

func (b *sessionBuilder) build(userID string, cam camera.Source) (*session.Session, error) {
	mapper, err := b.profile.Mapper()
	if err != nil {
		return nil, err
	}

	deps := session.Deps{
		Classifier: b.adapter,
		Resolver:   mapper,
		Camera:     cam,
		Sink:       b.sink,
		Logger:     slog.Default().With("component", "session"),
	}

	generator, err := b.profile.Generator()
	if err != nil {
		return nil, err
	}
	if generator != nil {
		deps.Missions = generator
	}

	sess, err := session.New(b.profile.SessionConfig(userID), deps)
	if err != nil {
		return nil, err
	}
	if b.publisher != nil {
		sess.Subscribe(b.publisher.Listener())
	}
	return sess, nil
}

// openCamera returns a directory source or, for a file path, a single file.
func openCamera(path string) (camera.Source, error) {
	path = config.ExpandPath(path)
	if camera.IsImageFile(path) {
		return camera.FileSource{Path: path}, nil
	}
	return camera.NewDirSource(path)
}
