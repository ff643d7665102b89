package queue

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

// AWSQueue implementation
type AWSQueue struct {
	QueueURL string
	queue    sqsiface.SQSAPI
}

// InitAWSQueue ...
func InitAWSQueue(cfg Config) (*AWSQueue, error) {
	awsCfg := &aws.Config{
		Region:     aws.String(cfg.Region),
		MaxRetries: aws.Int(cfg.Retries),
	}
	if cfg.CredentialsFile != "" || cfg.CredentialsProfile != "" {
		awsCfg.Credentials = credentials.NewSharedCredentials(cfg.CredentialsFile, cfg.CredentialsProfile)
	}
	ssn, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return NewAWSQueue(sqs.New(ssn), QueueURL(cfg)), nil
}

// NewAWSQueue wraps an existing SQS client.
func NewAWSQueue(api sqsiface.SQSAPI, url string) *AWSQueue {
	return &AWSQueue{
		queue:    api,
		QueueURL: url,
	}
}

// QueueURL joins base url and queue name.
func QueueURL(cfg Config) string {
	if cfg.Name == "" {
		return cfg.URL
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(cfg.URL, "/"), cfg.Name)
}

// SendMessage ...
func (q *AWSQueue) SendMessage(ctx context.Context, message string) error {
	msg := &sqs.SendMessageInput{
		MessageBody:  aws.String(message),    // Required
		QueueUrl:     aws.String(q.QueueURL), // Required
		DelaySeconds: aws.Int64(0),           // (optional) 0s - 900s (15 minutes)
	}
	sendResponse, err := q.queue.SendMessageWithContext(ctx, msg)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"event": "send_message",
		"queue": "aws_sqs",
	}).Debug(aws.StringValue(sendResponse.MessageId))
	return nil
}
