// Package mqtt provides the broker connection shared by the ingress
// pipeline and the command publisher.
//
// The controlled device (an ESP32 on the window frame) publishes plain-text
// state on topics such as esp32/ventana/estado and listens for commands on
// esp32/ventana/control. This package knows nothing about those topics; it
// offers:
//   - Connection with auto-reconnect and subscription restore
//   - Ordered delivery of inbound messages to handlers
//   - Publishing with QoS and payload limits
//   - A retained presence topic with an offline Last Will
//   - An optional embedded broker (mochi-mqtt) for local installs
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeDefault("esp32/#", func(topic string, payload []byte) error {
//	    return pipeline.Handle(ctx, topic, payload)
//	})
package mqtt
