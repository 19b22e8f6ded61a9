// Package device holds the window controller's data model and its
// persistence: the live State record, the single-field Delta an MQTT
// message carries, topic classification and the append-only history.
//
// # Key Types
//
//   - State: the one live record per device ID
//   - Delta: the immutable change parsed from one message payload
//   - Classifier: exact-match topic → Field routing
//   - Store: atomic read-upsert-read returning pre and post images
//   - HistoryRepository: append-only transition log
//
// # Usage
//
//	topics := device.NewTopics("esp32")
//	field := device.NewClassifier(topics).Classify(msgTopic)
//	prev, next, err := store.Reconcile(ctx, "ventana1", device.NewDelta(field, payload))
package device
