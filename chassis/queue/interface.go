package queue

import "context"

// Config - unified configuration for queue service
type Config struct {
	Name string
	URL  string

	//AWS specified
	Region             string
	CredentialsFile    string
	CredentialsProfile string
	Retries            int
}

// Client is the outbound side of a queue.
type Client interface {
	SendMessage(ctx context.Context, message string) error
}
