package notifier

import (
	"context"
	"strconv"
	"sync"

	"github.com/freundallein/todo/backend/chassis/metrics"
	"github.com/freundallein/todo/backend/chassis/protocol"
	"github.com/freundallein/todo/backend/chassis/queue"
	"github.com/freundallein/todo/backend/chassis/storage"

	log "github.com/freundallein/todo/backend/chassis/logging"
)

// Event methods
const (
	Created = "todo.created"
	Updated = "todo.updated"
	Deleted = "todo.deleted"
)

// Event outcomes reported to metrics.
const (
	resultSent    = "sent"
	resultFailed  = "failed"
	resultDropped = "dropped"
	resultSkipped = "skipped"
)

// Config ...
type Config struct {
	// Queue is optional, without it events are only logged.
	Queue   queue.Client
	Workers int
	Buffer  int
	Metrics *metrics.Registry
}

// Notifier fans change events out to the queue from a pool of workers.
type Notifier struct {
	cfg    *Config
	events chan *protocol.Request
}

// New ...
func New(cfg *Config) *Notifier {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Notifier{
		cfg:    cfg,
		events: make(chan *protocol.Request, cfg.Buffer),
	}
}

// Publish enqueues a notification about todo. It never blocks: with a full
// buffer the event is dropped.
func (n *Notifier) Publish(method string, todo storage.Todo) {
	event := protocol.Notification(method, map[string]string{
		"id":        todo.ID.String(),
		"title":     todo.Title,
		"completed": strconv.FormatBool(todo.Completed),
	})
	if n.cfg.Queue == nil {
		log.WithFields(log.Fields{
			"event":  "event_skipped",
			"method": method,
			"todoID": todo.ID,
		}).Debug("no events queue configured")
		n.count(resultSkipped)
		return
	}
	select {
	case n.events <- event:
	default:
		log.WithFields(log.Fields{
			"event":  "event_dropped",
			"method": method,
			"todoID": todo.ID,
		}).Error("events buffer is full")
		n.count(resultDropped)
	}
}

func (n *Notifier) count(result string) {
	if n.cfg.Metrics != nil {
		n.cfg.Metrics.Events.WithLabelValues(result).Inc()
	}
}

func (n *Notifier) worker(ctx context.Context, workerID int, group *sync.WaitGroup) {
	defer group.Done()
	for {
		select {
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"event":  "ctx_canceled",
				"worker": workerID,
			}).Info("exit goroutine")
			return
		case event := <-n.events:
			jsonMsg, err := event.JSON()
			if err != nil {
				log.WithFields(log.Fields{
					"event":  "event_serialize_failed",
					"worker": workerID,
				}).Error(err)
				n.count(resultFailed)
				continue
			}
			err = n.cfg.Queue.SendMessage(ctx, jsonMsg)
			if err != nil {
				log.WithFields(log.Fields{
					"event":        "event_send_failed",
					"worker":       workerID,
					"notification": event.String(),
				}).Error(err)
				n.count(resultFailed)
				continue
			}
			log.WithFields(log.Fields{
				"event":  "event_sent",
				"worker": workerID,
				"method": event.Method,
				"todoID": event.Params["id"],
			}).Debug("send event to queue")
			n.count(resultSent)
		}
	}
}

// Run starts the workers. They stop when ctx is cancelled.
func (n *Notifier) Run(ctx context.Context, group *sync.WaitGroup) {
	if n.cfg.Queue == nil {
		log.WithFields(log.Fields{
			"event": "start_service",
		}).Info("events queue is not configured, notifier disabled")
		return
	}
	log.WithFields(log.Fields{
		"event": "start_service",
	}).Info("starting ", n.cfg.Workers, " workers")
	for wrk := 1; wrk <= n.cfg.Workers; wrk++ {
		group.Add(1)
		go n.worker(ctx, wrk, group)
	}
}
