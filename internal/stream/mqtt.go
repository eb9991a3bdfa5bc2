package stream

import (
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTOptions configures ConnectMQTT. OnConnect runs after every
// (re)connect and is where subscriptions belong.
type MQTTOptions struct {
	Broker    string
	ClientID  string
	OnConnect func(mqtt.Client)
}

func ConnectMQTT(o MQTTOptions, log *slog.Logger) (mqtt.Client, error) {
	clientID := o.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("ecg-%d", time.Now().Unix())
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(o.Broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(3 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		log.Info("mqtt connected", "broker", o.Broker, "client_id", clientID)
		if o.OnConnect != nil {
			o.OnConnect(c)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("mqtt connection lost", "error", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, token.Error())
	}
	return client, nil
}

// SubscribeWaves decodes wave frames from every device topic and hands
// them to fn. Undecodable payloads are logged and dropped.
func SubscribeWaves(c mqtt.Client, log *slog.Logger, fn func(device string, w Wave)) error {
	token := c.Subscribe(WaveTopicFilter, 1, func(_ mqtt.Client, msg mqtt.Message) {
		w, err := DecodeWave(msg.Payload())
		if err != nil {
			log.Warn("drop mqtt frame", "topic", msg.Topic(), "error", err)
			return
		}
		fn(DeviceFromTopic(msg.Topic()), w)
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", WaveTopicFilter, err)
	}
	return nil
}
