// Package mqtt publishes pgcore events to an MQTT broker.
//
// The broker is optional. When enabled, pgcore publishes:
//   - its online/offline status, retained, with a Last Will for crashes
//   - one message per audit entry (role and grant changes)
//   - one message per completed schema sync
//
// Topic Hierarchy:
//
//	{prefix}/system/status                 retained online/offline
//	{prefix}/system/sync                   schema sync results
//	{prefix}/audit/{entity_type}/{action}  audit entries as JSON
//
// The prefix comes from mqtt.topic_prefix and defaults to "pgcore".
//
// Reconnection:
//
// The paho client reconnects automatically with exponential backoff
// between reconnect.initial_delay and reconnect.max_delay. Publishing
// while disconnected fails fast with ErrNotConnected; events are not
// buffered.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(client.Topics().Sync(), result)
package mqtt
