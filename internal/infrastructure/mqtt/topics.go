package mqtt

import "fmt"

// Topic prefixes. The item provider lives under the "mht" segment of the
// flat graylogic/{category}/{component} scheme.
const (
	// TopicPrefix is the base of every topic.
	TopicPrefix = "graylogic"

	// Component is the topic segment naming this service.
	Component = "mht"
)

// Topics provides builders for the item provider's MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Items() // "graylogic/core/mht/items"
type Topics struct{}

// Items is the retained snapshot of the published item model.
//
// Example: graylogic/core/mht/items
func (Topics) Items() string {
	return fmt.Sprintf("%s/core/%s/items", TopicPrefix, Component)
}

// ReloadEvent carries one message per reload attempt.
//
// Example: graylogic/core/event/mht_reload
func (Topics) ReloadEvent() string {
	return fmt.Sprintf("%s/core/event/%s_reload", TopicPrefix, Component)
}

// ReloadCommand asks the provider to re-read its item file.
//
// Example: graylogic/command/mht/reload
func (Topics) ReloadCommand() string {
	return fmt.Sprintf("%s/command/%s/reload", TopicPrefix, Component)
}

// Health is the retained online/offline status, also used as the LWT.
//
// Example: graylogic/health/mht
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Component)
}
