// Package mqtt provides MQTT client connectivity for DevBind.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees
//   - Topic subscriptions, restored after reconnect
//   - A retained health topic with Last Will and Testament
//
// # Topics
//
//	devbind/command/{element}   commands in (see internal/relay)
//	devbind/ack/{element}       command acknowledgements
//	devbind/event/{element}     pressed / released events
//	devbind/state/{element}     element attributes (retained)
//	devbind/io/{binding}        device lines in and out
//	devbind/health              online / offline (retained, LWT)
//
// # Security Considerations
//
//   - Enable TLS (mqtt.broker.tls) when the broker is not on localhost
//   - Credentials come from DEVBIND_MQTT_USERNAME / DEVBIND_MQTT_PASSWORD
//   - Commands drive physical devices; restrict devbind/command/# in the broker ACL
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        return nil
//	    })
package mqtt
