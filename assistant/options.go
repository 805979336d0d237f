package assistant

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	ApiKey       string
	AssistantId  string
	PollInterval time.Duration
	PollAttempts int
	Context      context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithAssistantId(id string) Option {
	return func(o *Options) {
		o.AssistantId = id
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = interval
	}
}

func WithPollAttempts(attempts int) Option {
	return func(o *Options) {
		o.PollAttempts = attempts
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		PollInterval: time.Second,
		PollAttempts: 60,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

type ChatOption func(*ChatOptions)

type ChatOptions struct {
	ThreadId string
}

// WithThreadId reuses an existing upstream thread instead of creating one.
func WithThreadId(id string) ChatOption {
	return func(o *ChatOptions) {
		o.ThreadId = id
	}
}

func NewChatOptions(opts ...ChatOption) ChatOptions {
	options := ChatOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
