package broker

import (
	"context"
)

type publishChannelContent[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

type subscribeChannelContent[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan chan TPayload
}

// ChannelBroker passes a channel with ID from producer to the first consumer.
// The subsequent consumers will block until producer is finished.
//
// The tutoring server uses it for the run and help actions: the form POST starts a producer goroutine and the
// browser then opens a server-sent event stream that consumes the updates. A reconnecting browser becomes a
// subsequent consumer and is released once the producer has finished.
type ChannelBroker[TID comparable, TPayload any] struct {
	stopChannel      chan struct{}
	publishChannel   chan publishChannelContent[TID, TPayload]
	unpublishChannel chan TID
	subscribeChannel chan subscribeChannelContent[TID, TPayload]
}

// NewChannelBroker creates a new ChannelBroker. Call Start in a goroutine and Stop when done.
func NewChannelBroker[TID comparable, TPayload any]() *ChannelBroker[TID, TPayload] {
	broker := ChannelBroker[TID, TPayload]{
		stopChannel:      make(chan struct{}),
		publishChannel:   make(chan publishChannelContent[TID, TPayload]),
		unpublishChannel: make(chan TID),
		subscribeChannel: make(chan subscribeChannelContent[TID, TPayload]),
	}
	return &broker
}

// Start listening for publish, unpublish, and subscribe events. This function blocks until Stop() is called,
// so it should be called in a goroutine.
func (b *ChannelBroker[TID, TPayload]) Start() {
	publishedChannels := map[TID]chan TPayload{}
	subscriberLists := map[TID][]chan chan TPayload{}
	for {
		select {
		case <-b.stopChannel:
			for _, subscribers := range subscriberLists {
				for _, s := range subscribers[1:] {
					close(s)
				}
			}
			return

		case subscription := <-b.subscribeChannel:
			c := publishedChannels[subscription.ID]
			if c == nil {
				// Signal to the subscriber that the producer is finished (or haven't started yet)
				close(subscription.Channel)
				break
			}
			subscribers := subscriberLists[subscription.ID]
			if subscribers == nil {
				// First subscriber gets the channel from the producer
				subscriberLists[subscription.ID] = []chan chan TPayload{subscription.Channel}
				subscription.Channel <- c
			} else {
				// Subsequent subscribers block until the producer is finished
				subscriberLists[subscription.ID] = append(subscribers, subscription.Channel)
			}

		case publication := <-b.publishChannel:
			publishedChannels[publication.ID] = publication.Channel

		case id := <-b.unpublishChannel:
			if subscribers := subscriberLists[id]; len(subscribers) > 1 {
				// Release the waiting subscribers. The first one already owns the producer channel.
				for _, s := range subscribers[1:] {
					close(s)
				}
			}
			delete(publishedChannels, id)
			delete(subscriberLists, id)
		}
	}
}

// Stop the goroutine that handles the broker.
func (b *ChannelBroker[TID, TPayload]) Stop() {
	close(b.stopChannel)
}

// Subscribe to the channel with ID. Returns a channel that will receive the channel corresponding to the ID.
// If the channel is not yet published, the returned channel will be closed.
// If there's already a subscriber, the returned channel will block until the producer is finished and then
// close the returned channel.
func (b *ChannelBroker[TID, TPayload]) Subscribe(id TID) chan chan TPayload {
	channel := make(chan chan TPayload, 1)
	b.subscribeChannel <- subscribeChannelContent[TID, TPayload]{
		ID:      id,
		Channel: channel,
	}
	return channel
}

// Publish the channel with ID. The channel will be sent to the first subscriber.
func (b *ChannelBroker[TID, TPayload]) Publish(id TID, channel chan TPayload) {
	b.publishChannel <- publishChannelContent[TID, TPayload]{
		ID:      id,
		Channel: channel,
	}
}

// Unpublish the channel with ID. Note that the channel will be removed from the broker which means
// that subscribers will not be able to receive the channel from the broker.
func (b *ChannelBroker[TID, TPayload]) Unpublish(id TID) {
	b.unpublishChannel <- id
}

// Relay publishes a channel under id and forwards every payload from src to its consumer in a new goroutine.
//
// The channel is published before Relay returns so that a consumer subscribing afterwards always finds it. Since the
// published channel is unbuffered, the producer behind src is held back until a consumer subscribes; ctx bounds how
// long it waits for one. Forwarding stops once src is closed or ctx is done, after which the published channel is
// closed and unpublished and the returned channel is closed.
func (b *ChannelBroker[TID, TPayload]) Relay(ctx context.Context, id TID, src <-chan TPayload) <-chan struct{} {
	channel := make(chan TPayload)
	b.Publish(id, channel)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			close(channel)
			b.Unpublish(id)
		}()
		for {
			select {
			case payload, ok := <-src:
				if !ok {
					return
				}
				select {
				case channel <- payload:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return done
}
