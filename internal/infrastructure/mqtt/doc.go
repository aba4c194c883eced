// Package mqtt connects the item provider to the Gray Logic MQTT bus.
//
// The provider publishes:
//   - a retained snapshot of the item model on Topics.Items after every swap
//   - one message per reload attempt on Topics.ReloadEvent
//   - a retained online/offline status on Topics.Health (also the LWT)
//
// and listens on Topics.ReloadCommand for reload requests.
//
// # Security Considerations
//
//   - TLS should be enabled for non-local brokers (cfg.Broker.TLS=true)
//   - Anonymous access is only for local development
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.ReloadCommand(), 1,
//	    func(topic string, payload []byte) error {
//	        return prov.Reload(ctx)
//	    })
package mqtt
