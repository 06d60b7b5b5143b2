package interfaces

// PubSub is the subscribe half of the node bus. Publisher is the other half.
//
// Subscribe registers handler for topic and returns once the subscription is active. handler
// is invoked on the transport's delivery goroutine with the raw payload of each message.
//
// Implemented by adapters/myredis.PubSub. Called from service.LogSubscriber.
//
//go:generate moq -stub -out mock/pubsub.go -pkg mock . PubSub
type PubSub interface {
	Subscribe(topic string, handler func(payload []byte)) error
}
