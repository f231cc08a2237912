// Package mqtt feeds device pings published on the telemetry broker into the GPS log.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dulmini1119/tms-sub001/internal"
	gpslogDatamodel "github.com/dulmini1119/tms-sub001/internal/core/datamodel/gpslog"
	"github.com/dulmini1119/tms-sub001/internal/gpslog"
)

type Ingester interface {
	Ingest(ctx context.Context, dto gpslog.PingDTO) (*gpslogDatamodel.GPSLog, error)
}

type Subscriber struct {
	cfg      internal.TelemetryConfig
	ingester Ingester
	observer gpslog.PingObserver
	logger   *slog.Logger
}

func NewSubscriber(cfg internal.TelemetryConfig, ingester Ingester, observer gpslog.PingObserver, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{cfg: cfg, ingester: ingester, observer: observer, logger: logger}
}

// Run connects to the broker and consumes pings until ctx is cancelled. The
// subscription is renewed on every reconnect.
func (s *Subscriber) Run(ctx context.Context) error {
	opts := paho.NewClientOptions().
		AddBroker(s.cfg.BrokerURL).
		SetClientID(s.cfg.ClientID).
		SetCleanSession(false).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(false)
	opts.SetOnConnectHandler(func(c paho.Client) {
		token := c.Subscribe(s.cfg.Topic, s.cfg.QoS, func(_ paho.Client, m paho.Message) {
			if err := s.Handle(ctx, m.Topic(), m.Payload()); err != nil {
				s.logger.Warn("gps ping dropped", "topic", m.Topic(), "error", err)
			}
		})
		if token.Wait() && token.Error() != nil {
			s.logger.Error("mqtt subscribe failed", "topic", s.cfg.Topic, "error", token.Error())
			return
		}
		s.logger.Info("mqtt subscribed", "topic", s.cfg.Topic, "qos", s.cfg.QoS)
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn("mqtt connection lost", "error", err)
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("connect to %s: %w", s.cfg.BrokerURL, err)
		}
	case <-ctx.Done():
		client.Disconnect(0)
		return ctx.Err()
	}
	s.logger.Info("mqtt connected", "broker", s.cfg.BrokerURL, "client_id", s.cfg.ClientID)

	<-ctx.Done()
	client.Disconnect(250)
	s.logger.Info("mqtt disconnected")
	return nil
}

// Handle decodes one message. A ping without a vehicle id takes it from the
// topic segment matched by the subscription wildcard.
func (s *Subscriber) Handle(ctx context.Context, topic string, payload []byte) error {
	var dto gpslog.PingDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		s.reject()
		return fmt.Errorf("decode ping: %w", err)
	}
	if dto.VehicleID == "" {
		dto.VehicleID = VehicleFromTopic(s.cfg.Topic, topic)
	}

	log, err := s.ingester.Ingest(ctx, dto)
	if err != nil {
		return err
	}
	s.logger.Debug("gps ping stored", "gps_log_id", log.ID, "vehicle_id", log.VehicleID)
	return nil
}

func (s *Subscriber) reject() {
	if s.observer != nil {
		s.observer.ObserveGPSPing("rejected")
	}
}

// VehicleFromTopic returns the segment of topic under the first + of filter.
func VehicleFromTopic(filter, topic string) string {
	want := strings.Split(filter, "/")
	got := strings.Split(topic, "/")
	for i, seg := range want {
		if seg == "+" && i < len(got) {
			return got[i]
		}
	}
	return ""
}
