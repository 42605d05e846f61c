package mqttctrl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/puritank/internal/ports"
	"github.com/Agrid-Dev/puritank/internal/rig"
)

type Config struct {
	// Identity
	DeviceID string

	// MQTT connection
	BrokerURL string
	ClientID  string

	// Topics
	BaseTopic string

	// Behavior
	QoS             byte
	RetainSnapshot  bool
	PublishInterval time.Duration

	Username string
	Password string
}

type Controller struct {
	svc ports.RigService
	cfg Config
	log *zap.Logger

	client mqtt.Client
}

func New(svc ports.RigService, cfg Config, logger *zap.Logger) (*Controller, error) {
	// ---- defaults ----

	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}

	if cfg.DeviceID == "" {
		return nil, errors.New("mqtt: DeviceID is required")
	}
	if cfg.BaseTopic == "" {
		cfg.BaseTopic = "puritank/" + cfg.DeviceID
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "puritank-" + cfg.DeviceID
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = 1 * time.Second
	}
	if cfg.QoS > 1 {
		return nil, errors.New("mqtt: QoS must be 0 or 1")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: logger,
	}, nil
}

func (c *Controller) Run(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	// Subscribe when connected/reconnected.
	opts.OnConnect = func(cl mqtt.Client) {
		topic := c.topic("set/+")
		token := cl.Subscribe(topic, c.cfg.QoS, c.onMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			c.log.Warn("mqtt subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	c.client = mqtt.NewClient(opts)
	tok := c.client.Connect()
	tok.Wait()
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}

	return c.publishLoop(ctx)
}

// publishLoop publishes the snapshot once, then on every interval where it
// changed. The tick timestamp alone does not count as a change.
func (c *Controller) publishLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PublishInterval)
	defer ticker.Stop()

	last := significant(c.svc.Get())
	c.publishSnapshot()

	for {
		select {
		case <-ctx.Done():
			c.client.Disconnect(250)
			return ctx.Err()

		case <-ticker.C:
			cur := significant(c.svc.Get())
			if !reflect.DeepEqual(cur, last) {
				c.publishSnapshot()
				last = cur
			}
		}
	}
}

func significant(s rig.Snapshot) rig.Snapshot {
	s.LastTick = time.Time{}
	return s
}

func (c *Controller) publishSnapshot() {
	b, err := json.Marshal(ports.ToDTO(c.cfg.DeviceID, c.svc.Get()))
	if err != nil {
		c.log.Error("encode snapshot", zap.Error(err))
		return
	}
	c.client.Publish(c.topic("snapshot"), c.cfg.QoS, c.cfg.RetainSnapshot, b)
}

// Command payload format: {"value": ...}
type valueReq[T any] struct {
	Value *T `json:"value"`
}

func (c *Controller) onMessage(_ mqtt.Client, msg mqtt.Message) {
	// topic format: <base>/set/<field>
	t := msg.Topic()
	prefix := strings.TrimRight(c.cfg.BaseTopic, "/") + "/set/"
	if !strings.HasPrefix(t, prefix) {
		return
	}
	field := strings.TrimPrefix(t, prefix)

	payload := msg.Payload()

	switch field {
	case "start":
		v, err := decodeValueStrict[bool](payload)
		if err != nil || !v {
			c.log.Debug("ignoring start command", zap.ByteString("payload", payload), zap.Error(err))
			return
		}
		if err := c.svc.RequestStart(); err != nil {
			c.log.Info("start command rejected", zap.Error(err))
			return
		}
		c.log.Info("remote start requested", zap.String("topic", t))
	default:
		c.log.Debug("unknown command", zap.String("topic", t))
	}
}

func (c *Controller) topic(suffix string) string {
	return strings.TrimRight(c.cfg.BaseTopic, "/") + "/" + suffix
}

func decodeValueStrict[T any](b []byte) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	var req valueReq[T]
	if err := dec.Decode(&req); err != nil {
		return zero, err
	}
	if req.Value == nil {
		return zero, errors.New("missing field 'value'")
	}
	return *req.Value, nil
}
