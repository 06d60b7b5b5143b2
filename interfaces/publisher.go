package interfaces

import "context"

// Publisher is the publish half of the node bus.
//
// Implemented by adapters/myredis.PubSub. Called from service.PeriodicPublisher.
//
//go:generate moq -stub -out mock/publisher.go -pkg mock . Publisher
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}
