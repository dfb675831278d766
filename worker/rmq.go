package worker

import (
	"encoding/json"
	"time"

	"github.com/streadway/amqp"
	"text2phenotype.com/admitnote/rmq"
)

type rmqTransactions interface {
	notifySequencer(task *Task) error
	ack(delivery *amqp.Delivery) error
	reject(delivery *amqp.Delivery, requeue bool) error
	deliveries() <-chan amqp.Delivery
	consumerClosed() <-chan *amqp.Error
	publisherClosed() <-chan *amqp.Error
	close()
}

type rmqClientWrapper struct {
	rmqClient *rmq.Client
}

func (wrapper *rmqClientWrapper) close() {
	wrapper.rmqClient.Close()
}

func (wrapper *rmqClientWrapper) deliveries() <-chan amqp.Delivery {
	return wrapper.rmqClient.Deliveries
}

func (wrapper *rmqClientWrapper) consumerClosed() <-chan *amqp.Error {
	return wrapper.rmqClient.ReqChanErrors
}

func (wrapper *rmqClientWrapper) publisherClosed() <-chan *amqp.Error {
	return wrapper.rmqClient.RespChanErrors
}

// notifySequencer hands the case back to the sequencer, whatever the
// outcome recorded on its task.
func (wrapper *rmqClientWrapper) notifySequencer(task *Task) error {
	body, err := json.Marshal(sequencerMessage(task))
	if err != nil {
		return err
	}
	return wrapper.rmqClient.SendMessageToSequencer(amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: task.delivery.MessageId,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
}

func (wrapper *rmqClientWrapper) ack(delivery *amqp.Delivery) error {
	return delivery.Ack(false)
}

func (wrapper *rmqClientWrapper) reject(delivery *amqp.Delivery, requeue bool) error {
	return delivery.Reject(requeue)
}

// sequencerMessage answers the delivery that announced the case, signed by
// this worker.
func sequencerMessage(task *Task) Message {
	return Message{
		WorkType: task.message.WorkType,
		RedisKey: task.redisKey,
		Sender:   workerName,
		Version:  task.message.Version,
	}
}
