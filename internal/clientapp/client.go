// Package clientapp is the sample wiring the CLI entry point drives —
// outside the scope of the client core itself (spec.md §1: "the
// sample command-line program and its logging" is an external
// collaborator), adapted from the teacher's internal/clientapp/client.go
// godotenv + logrus + Connect/Close shape.
package clientapp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/go-opcua/asyncclient/pkg/config"
	"github.com/go-opcua/asyncclient/pkg/opcua"
	"github.com/go-opcua/asyncclient/pkg/opcuaclient"
	"github.com/go-opcua/asyncclient/pkg/session"
	"github.com/go-opcua/asyncclient/pkg/transport"
	"github.com/go-opcua/asyncclient/transport/wstransport"
)

// Run loads a connection profile and the process env config, connects
// a Client, creates a session, subscribes to the given nodes, and
// blocks until ctx is cancelled — printing notifications as they
// arrive, the spiritual equivalent of the teacher's printResult.
func Run(ctx context.Context, profilePath string, nodesToMonitor []opcua.NodeId) error {
	if err := godotenv.Load(".env.client"); err != nil {
		log.Print("No .env.client file found, continuing with process environment: ", err)
	}

	processConf, err := config.LoadProcessConfig()
	if err != nil {
		return fmt.Errorf("failed to load process configuration: %w", err)
	}

	logger := newLogger(processConf.LogLevel)

	profile, err := config.LoadConnectionProfile(profilePath)
	if err != nil {
		return fmt.Errorf("failed to load connection profile: %w", err)
	}

	if err := transport.Init(); err != nil {
		return fmt.Errorf("failed to initialise transport runtime: %w", err)
	}
	defer transport.Shutdown()

	wst := wstransport.New(wstransport.Options{
		Endpoint:             profile.EndpointURL,
		ConnectTimeout:       profile.ConnectTimeout(),
		MaxReconnectAttempts: uint64(processConf.MaxReconnectAttempts),
	}, logger)

	client := opcuaclient.New(opcuaclient.Params{
		Profile:   profile,
		Transport: wst,
		SessionInfo: session.Params{
			ClientDescription: "opcua-asyncclient",
			EndpointURL:       profile.EndpointURL,
			RequestedTimeout:  60 * time.Second,
		},
		Logger: logger,
	})
	defer client.Close()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	activated := make(chan opcua.StatusCode, 1)
	client.CreateSession(func(status opcua.StatusCode) {
		activated <- status
	})

	select {
	case status := <-activated:
		if status.IsBad() {
			return fmt.Errorf("session activation failed: %s", status)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Info("session active, subscribing")

	sink := func(notifications []opcua.DataChangeNotification) {
		for _, n := range notifications {
			logger.WithFields(logrus.Fields{
				"client_handle": n.ClientHandle,
				"value":         n.Value.Value,
				"status":        n.Value.StatusCode.String(),
			}).Info("data change")
		}
	}

	sub, err := client.Subscribe(opcua.SubscriptionParams{
		PublishingInterval:         500 * time.Millisecond,
		LifetimeCount:              10000,
		MaxKeepAliveCount:          10,
		MaxNotificationsPerPublish: 0,
		PublishingEnabled:          true,
	}, sink)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	items := make([]opcua.MonitoredItemCreateRequest, len(nodesToMonitor))
	for i, nodeID := range nodesToMonitor {
		items[i] = opcua.MonitoredItemCreateRequest{
			ItemToMonitor:  opcua.ReadValueId{NodeId: nodeID, AttributeId: 13}, // Value attribute.
			MonitoringMode: opcua.MonitoringReporting,
			RequestedParams: opcua.MonitoringParameters{
				ClientHandle:     opcua.ClientHandle(i + 1),
				SamplingInterval: 250 * time.Millisecond,
				QueueSize:        10,
			},
		}
	}

	itemsDone := make(chan error, 1)
	sub.CreateMonitoredItems(client.Channel, items, func(status opcua.StatusCode, results []opcua.MonitoredItemCreateResult) {
		if status.IsBad() {
			itemsDone <- fmt.Errorf("CreateMonitoredItems failed: %s", status)
			return
		}
		itemsDone <- nil
	})
	if err := <-itemsDone; err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func newLogger(level string) *logrus.Logger {
	formatter := new(logrus.TextFormatter)
	formatter.TimestampFormat = "2006-01-02T15:04:05.999999999Z07:00"
	formatter.FullTimestamp = true

	logger := logrus.New()
	logger.SetFormatter(formatter)

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}
