package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"
	"github.com/rs/zerolog/log"
)

// Publishable is any event that knows which topic it belongs on.
type Publishable interface {
	GetEventTopicName() string
}

// Publisher is the process-wide event emitter. It is constructed once in main
// and handed to services explicitly; there is no package-level client.
type Publisher struct {
	ctx    context.Context
	client *gcppubsub.Client
}

func NewPublisher(ctx context.Context, projectId string) (*Publisher, error) {
	if projectId == "" {
		return nil, fmt.Errorf("pub sub missing projectID to initialize")
	}
	client, err := gcppubsub.NewClient(ctx, projectId)
	if err != nil {
		return nil, fmt.Errorf("initializing pub sub connection: %w", err)
	}
	log.Info().Msg("Successful pubsub init")
	return &Publisher{ctx: ctx, client: client}, nil
}

func (p *Publisher) Publish(message Publishable) {
	topic := p.getTopic(message.GetEventTopicName())
	defer topic.Stop()

	result := topic.Publish(p.ctx, &gcppubsub.Message{Data: encodeMessage(message)})

	go func(res *gcppubsub.PublishResult) {
		if _, err := res.Get(p.ctx); err != nil {
			log.Warn().Err(err).Msg(fmt.Sprintf("Failed to publish message for %s", message.GetEventTopicName()))
		}
	}(result)
}

func (p *Publisher) Close() {
	p.client.Close()
}

func (p *Publisher) getTopic(topicName string) *gcppubsub.Topic {
	topic := p.client.Topic(topicName)
	if topic == nil {
		log.Info().Msg(fmt.Sprintf("Topic %s does not exist. Creating new", topicName))
		created, err := p.client.CreateTopic(p.ctx, topicName)
		if err != nil {
			log.Error().Err(err).Msg(fmt.Sprintf("Cant create topic %s", topicName))
		}
		return created
	}
	return topic
}

func encodeMessage(message any) []byte {
	bytes, _ := json.Marshal(message)
	return bytes
}
