package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/admitnote/pipeline"
	"text2phenotype.com/admitnote/tasks"
	"text2phenotype.com/admitnote/utils"
)

type Message struct {
	WorkType string `json:"work_type"`
	RedisKey string `json:"redis_key"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery   *amqp.Delivery
	caseTask   *tasks.CaseTask
	message    *Message
	redisKey   string
	taskLogger *zerolog.Logger
}

// processMessage renders the case a delivery announces. The delivery is
// acked once the outcome is recorded on the case task and the sequencer has
// been told; otherwise it is given back to the queue once.
func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	ctx := context.Background()
	queue := worker.queue()
	deliveryLogger := worker.workerLogger.With().Str("message_id", delivery.MessageId).Logger()

	task, err := worker.createTask(ctx, delivery)
	if err != nil {
		deliveryLogger.Err(err).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		giveBack(queue, delivery, &deliveryLogger)
		return
	}
	if err = worker.processTask(ctx, task); err != nil {
		giveBack(queue, delivery, task.taskLogger)
		return
	}
	if err = queue.notifySequencer(task); err != nil {
		task.taskLogger.Err(err).Msg("Got error while sending message to sequencer queue")
		giveBack(queue, delivery, task.taskLogger)
		return
	}
	if err = queue.ack(delivery); err != nil {
		task.taskLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.taskLogger.Info().Msg("Finished processing RMQ message")
}

// giveBack requeues a delivery the first time it fails. A redelivered case
// that fails again is dropped and left to the sequencer's own timeout.
func giveBack(queue rmqTransactions, delivery *amqp.Delivery, deliveryLogger *zerolog.Logger) {
	requeue := !delivery.Redelivered
	if requeue {
		deliveryLogger.Info().Msg("Requeuing delivery as it has not been redelivered yet")
	} else {
		deliveryLogger.Info().Msg("Rejecting delivery as it already has been redelivered")
	}
	if err := queue.reject(delivery, requeue); err != nil {
		deliveryLogger.Err(err).Bool("requeue", requeue).Msg("Failed to reject delivery")
	}
}

func (worker *Worker) createTask(ctx context.Context, delivery *amqp.Delivery) (*Task, error) {
	var message Message
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	caseTask, err := worker.redis.getCaseTask(ctx, message.RedisKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query case task for message: %w", err)
	}
	taskLogger := worker.workerLogger.With().
		Str("tid", message.RedisKey).
		Str("message_id", delivery.MessageId).
		Logger()
	return &Task{
		delivery:   delivery,
		caseTask:   caseTask,
		redisKey:   message.RedisKey,
		message:    &message,
		taskLogger: &taskLogger,
	}, nil
}

// processTask returns an error only when the delivery should be rejected.
// Rendering failures are recorded on the task and acknowledged.
func (worker *Worker) processTask(ctx context.Context, task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(ctx, task)
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(ctx, task); err != nil {
		task.taskLogger.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update TaskInfo: %w", err)
	}
	if err = worker.runPipeline(ctx, task); err != nil {
		event := task.taskLogger.Err(err)
		var panicErr *utils.PanicError
		if errors.As(err, &panicErr) {
			event = event.Bytes("stack_trace", panicErr.Stack)
		}
		event.Msg("Got error while running pipeline")
		return worker.redis.onTaskFailedWithError(ctx, task, err)
	}
	task.taskLogger.Info().Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(ctx, task); err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

// runPipeline bounds the download, render and upload by the task timeout.
func (worker *Worker) runPipeline(ctx context.Context, task *Task) (err error) {
	defer utils.RecoverWithError(&err)
	ctx, cancel := context.WithTimeout(ctx, worker.config.TaskTimeout)
	defer cancel()
	task.taskLogger.Info().
		Int("attempt", task.caseTask.TaskStatuses.Narrative.Attempts).
		Msg("Processing message from RMQ")

	data, err := worker.s3.getCaseDocument(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to fetch case from s3: %w", err)
	}
	c, err := pipeline.ParseCase(data)
	if err != nil {
		return err
	}

	var result string
	var ok bool
	select {
	case result, ok = <-worker.ppln(pipeline.Request{Tid: task.redisKey, Case: c}):
	case <-ctx.Done():
		return fmt.Errorf("pipeline did not finish: %w", ctx.Err())
	}
	if !ok {
		return errors.New("pipeline channel was closed before returning anything")
	}

	task.taskLogger.Info().Msg("Finished pipeline, saving results to s3")
	if err = worker.s3.saveResultsFile(ctx, task, result); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	return nil
}

func (worker *Worker) shouldPerformTask(ctx context.Context, task *Task) (bool, error) {
	taskInfo := task.caseTask.TaskStatuses.Narrative
	taskLogger := task.taskLogger

	if taskInfo.Status.Complete() {
		taskLogger.Info().Msg("Task is already done. (might indicate issue acking message with RMQ). Sending back to Sequencer.")
		return false, nil
	}
	jobTask, err := worker.redis.getJobTask(ctx, task)
	if err != nil {
		taskLogger.Err(err).Msg("Failed to query job task for case task")
		return false, err
	}
	if jobTask.UserCanceled {
		taskLogger.Info().Msg("Job was canceled, no need to perform this task. Sending back to Sequencer.")
		return false, worker.redis.onTaskCancelled(ctx, task)
	}
	if jobTask.StopDocumentsOnFailure {
		docTask, err := worker.redis.getDocTask(ctx, task)
		if err != nil {
			return false, err
		}
		if docTask == nil {
			return false, errors.New("document task not found")
		}
		if len(docTask.FailedTasks) > 0 {
			failedTask := docTask.FailedTasks[0]
			taskLogger.Info().
				Str("failed_task", failedTask).
				Msg("Task is not required because the document already failed in another worker. Sending back to Sequencer.")
			return false, worker.redis.onTaskCancelled(ctx, task, fmt.Sprintf(
				"Task was marked as %q because the current document has failed in the %q worker and won't be processed successfully.",
				tasks.TaskStatusCanceled,
				failedTask,
			))
		}
	}
	if taskInfo.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Narrative task has exceeded retries. Sending back to Sequencer.")
		return false, worker.redis.onTaskExceededRetries(ctx, task, worker.config.TaskMaxRetries)
	}
	return true, nil
}
