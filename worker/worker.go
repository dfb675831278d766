package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/admitnote/logger"
	"text2phenotype.com/admitnote/pipeline"
	"text2phenotype.com/admitnote/rmq"
	"text2phenotype.com/admitnote/s3client"
	"text2phenotype.com/admitnote/tasks"
)

// workerName identifies this worker in task statuses, document failure lists
// and sequencer messages.
const workerName = "narrative"

var errDeliveriesClosed = errors.New("rmq deliveries channel closed")

type Config struct {
	TaskMaxRetries int           `envconfig:"MDL_COMN_RETRY_TASK_COUNT_MAX" default:"3"`
	TaskTimeout    time.Duration `envconfig:"ADMITNOTE_TASK_TIMEOUT" default:"2m"`
}

// Worker renders admission cases announced on the narrative queue. Each
// delivery names a case task in Redis; the case document itself is in S3.
type Worker struct {
	config       Config
	redis        redisTransactions
	s3           s3Transactions
	rmq          rmqTransactions
	workerLogger *zerolog.Logger
	ppln         pipeline.Pipeline
	inFlight     sync.WaitGroup
	rmqMu        sync.RWMutex
}

type closer interface {
	close()
}

func New(ppln pipeline.Pipeline) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Error().Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := &Worker{
		config:       config,
		workerLogger: &workerLogger,
		ppln:         ppln,
	}
	var err error
	if worker.redis, err = reconnect(worker, "Redis", worker.redis, dialRedis); err != nil {
		return nil, err
	}
	if worker.s3, err = reconnect(worker, "S3", worker.s3, dialS3); err != nil {
		worker.Close()
		return nil, err
	}
	if worker.rmq, err = reconnect(worker, "RMQ", worker.rmq, dialRMQ); err != nil {
		worker.Close()
		return nil, err
	}
	return worker, nil
}

// Run consumes case deliveries until ctx is canceled or the RMQ connection
// is lost and cannot be re-established. Cases already being rendered are
// finished before Run returns.
func (worker *Worker) Run(ctx context.Context) error {
	defer worker.Close()
	for {
		var lost error
		select {
		case <-ctx.Done():
			worker.workerLogger.Info().Msg("Stopping, waiting for in-flight cases")
			return nil
		case delivery, ok := <-worker.queue().deliveries():
			if ok {
				worker.dispatch(delivery)
				continue
			}
			lost = errDeliveriesClosed
		case amqpErr := <-worker.queue().consumerClosed():
			if amqpErr == nil {
				continue
			}
			lost = fmt.Errorf("consumer connection: %w", amqpErr)
		case amqpErr := <-worker.queue().publisherClosed():
			if amqpErr == nil {
				continue
			}
			lost = fmt.Errorf("publisher connection: %w", amqpErr)
		}

		worker.workerLogger.Err(lost).Msg("Lost RMQ connection, reconnecting")
		worker.rmqMu.Lock()
		var err error
		worker.rmq, err = reconnect(worker, "RMQ", worker.rmq, dialRMQ)
		worker.rmqMu.Unlock()
		if err != nil {
			return fmt.Errorf("%v and reconnect failed: %w", lost, err)
		}
	}
}

// queue returns the current RMQ client. Deliveries in flight keep using it
// while Run swaps in a new one.
func (worker *Worker) queue() rmqTransactions {
	worker.rmqMu.RLock()
	defer worker.rmqMu.RUnlock()
	return worker.rmq
}

func (worker *Worker) dispatch(delivery amqp.Delivery) {
	worker.inFlight.Add(1)
	go func() {
		defer worker.inFlight.Done()
		worker.processMessage(&delivery)
	}()
}

// Close waits for in-flight cases and then closes every client.
func (worker *Worker) Close() {
	worker.inFlight.Wait()
	for _, client := range []closer{worker.rmq, worker.s3, worker.redis} {
		if client != nil {
			client.close()
		}
	}
}

// reconnect replaces current with a fresh client. The old client is closed
// only once the new one is up.
func reconnect[T closer](worker *Worker, name string, current T, dial func() (T, error)) (T, error) {
	worker.workerLogger.Info().Str("client", name).Msg("Connecting client")
	fresh, err := dial()
	if err != nil {
		worker.workerLogger.Err(err).Str("client", name).Msg("Failed to connect client")
		return current, err
	}
	if closer(current) != nil {
		current.close()
	}
	return fresh, nil
}

func dialRedis() (redisTransactions, error) {
	tasksClient, err := tasks.NewClient()
	if err != nil {
		return nil, err
	}
	return &redisClientWrapper{&tasksClient}, nil
}

func dialS3() (s3Transactions, error) {
	s3Client, err := s3client.New()
	if err != nil {
		return nil, err
	}
	return &s3ClientWrapper{s3Client}, nil
}

func dialRMQ() (rmqTransactions, error) {
	rmqClient, err := rmq.NewClient()
	if err != nil {
		return nil, err
	}
	return &rmqClientWrapper{rmqClient}, nil
}
