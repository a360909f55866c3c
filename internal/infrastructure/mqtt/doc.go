// Package mqtt provides MQTT client connectivity for Spot Relay.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with the retained flag preserved
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The relay is reachable only through the broker; there is no synchronous
// request/response channel to the device:
//
//	Spot Relay ↔ MQTT Broker ↔ OpenBeken relay
//
// Commands go to <base>/<n>/set and the device echoes its actual state on
// <base>/<n>/get. The broker redelivers the last retained status value
// immediately after subscribing; handlers receive the retained flag so the
// observer can exclude those historical echoes from confirmation.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{Base: cfg.Relay.BaseTopic}
//	err = client.Subscribe(topics.RelayStatus(1), 1,
//	    func(topic string, payload []byte, retained bool) error {
//	        log.Printf("status: %s (retained=%v)", payload, retained)
//	        return nil
//	    })
//
//	client.Publish(topics.RelayCommand(1), []byte("1"), 1, false)
package mqtt
