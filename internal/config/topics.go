package config

const (
	// TopicEmbedTask is the NSQ topic for embedding task execution.
	TopicEmbedTask = "embed.task"

	// ChannelBackend is the consumer channel used by this service.
	ChannelBackend = "backend"
)
