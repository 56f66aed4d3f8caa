// RTLSYM - A decoder stack for symbol streams demodulated by rtl-sdr receivers.
// Copyright (C) 2026 Douglas Hall
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package sink

import (
	"encoding/json"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/bemasher/rtlsym/view"
)

// DefaultTopic is used when no topic is given.
const DefaultTopic = "rtlsym/symbols"

// A Publisher is the part of an MQTT client used by the MQTT sink.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes each frame as a JSON document. Publishing is fire and
// forget: the sink never waits on the broker.
type MQTT struct {
	pub   Publisher
	topic string
}

func NewMQTT(pub Publisher, topic string) *MQTT {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{pub, topic}
}

func (m *MQTT) Write(f view.Frame) error {
	payload, err := json.Marshal(NewJSONFrame(f))
	if err != nil {
		return errors.Wrap(err, "mqtt: encoding frame")
	}

	token := m.pub.Publish(m.topic, 0, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	default:
		return nil
	}
}

// DialMQTT connects to broker, retrying in the background if the broker is
// unavailable.
func DialMQTT(broker string) (mqtt.Client, error) {
	logger := log.WithFields(log.Fields{"pkg": "sink", "broker": broker})

	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID("rtlsym_" + uuid.NewString()[:8])
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)

	opts.SetOnConnectHandler(func(mqtt.Client) {
		logger.Info("connected to broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("connection lost: ", err)
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "mqtt: connecting to %s", broker)
	}

	return client, nil
}
