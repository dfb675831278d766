package worker

import (
	"context"
	"fmt"
	"time"

	"text2phenotype.com/admitnote/tasks"
)

// RFC3339Micro is the timestamp layout shared by every worker's task info.
const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

type redisTransactions interface {
	getCaseTask(ctx context.Context, redisKey string) (*tasks.CaseTask, error)
	getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error)
	getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error)
	onTaskStarted(ctx context.Context, task *Task) error
	onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error
	onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error
	onTaskFailedWithError(ctx context.Context, task *Task, err error) error
	onTaskComplete(ctx context.Context, task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) getCaseTask(ctx context.Context, redisKey string) (*tasks.CaseTask, error) {
	return wrapper.tasksClient.Cases.Get(ctx, redisKey)
}

func (wrapper *redisClientWrapper) getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error) {
	return wrapper.tasksClient.Jobs.GetCached(ctx, task.caseTask.JobID)
}

func (wrapper *redisClientWrapper) getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error) {
	return wrapper.tasksClient.Documents.GetCached(ctx, task.caseTask.DocID)
}

func (wrapper *redisClientWrapper) updateNarrative(ctx context.Context, task *Task, transition func(info *tasks.TaskInfo, now string)) error {
	return wrapper.tasksClient.Cases.Update(ctx, task.redisKey, func(caseTask *tasks.CaseTask) {
		transition(&caseTask.TaskStatuses.Narrative, formattedNow())
	})
}

func (wrapper *redisClientWrapper) onTaskStarted(ctx context.Context, task *Task) error {
	return wrapper.updateNarrative(ctx, task, markStarted)
}

func (wrapper *redisClientWrapper) onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error {
	return wrapper.updateNarrative(ctx, task, func(info *tasks.TaskInfo, now string) {
		markCanceled(info, now, errorMessages...)
	})
}

// onTaskExceededRetries fails the whole document before closing the case so
// other workers stop spending time on it.
func (wrapper *redisClientWrapper) onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error {
	err := wrapper.tasksClient.Documents.Update(ctx, task.caseTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.RecordFailure(task.redisKey, workerName)
	})
	if err != nil {
		return err
	}
	return wrapper.updateNarrative(ctx, task, func(info *tasks.TaskInfo, now string) {
		markExceededRetries(info, now, maxRetries)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(ctx context.Context, task *Task, err error) error {
	return wrapper.updateNarrative(ctx, task, func(info *tasks.TaskInfo, now string) {
		markFailed(info, now, err)
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(ctx context.Context, task *Task) error {
	key := resultsFileKey(task.caseTask.DocID, task.redisKey)
	return wrapper.updateNarrative(ctx, task, func(info *tasks.TaskInfo, now string) {
		markRendered(info, now, key)
	})
}

func markStarted(info *tasks.TaskInfo, now string) {
	info.Status = tasks.TaskStatusStarted
	info.Attempts++
	info.StartedAt = &now
	info.CompletedAt = nil
}

// markCanceled closes a case that was never rendered. It still counts as an
// attempt.
func markCanceled(info *tasks.TaskInfo, now string, reasons ...string) {
	info.Status = tasks.TaskStatusCanceled
	info.Attempts++
	info.StartedAt = &now
	info.CompletedAt = &now
	info.ErrorMessages = append(info.ErrorMessages, reasons...)
}

func markExceededRetries(info *tasks.TaskInfo, now string, maxRetries int) {
	info.Status = tasks.TaskStatusCompletedFailure
	info.Attempts++
	info.StartedAt = &now
	info.CompletedAt = &now
	info.ErrorMessages = append(info.ErrorMessages, fmt.Sprintf(
		"Task has exceeded retries. (Attempts: %d, max retries: %d )", info.Attempts, maxRetries))
}

// markFailed leaves the case open for another attempt.
func markFailed(info *tasks.TaskInfo, now string, err error) {
	info.Status = tasks.TaskStatusFailed
	info.CompletedAt = &now
	info.ErrorMessages = append(info.ErrorMessages, err.Error())
}

// markRendered keeps a terminal status set by a concurrent delivery of the
// same case.
func markRendered(info *tasks.TaskInfo, now, resultsKey string) {
	if !info.Status.Complete() {
		info.Status = tasks.TaskStatusCompletedSuccess
	}
	info.CompletedAt = &now
	info.ResultsFileKey = resultsKey
}

func formattedNow() string {
	return time.Now().UTC().Format(RFC3339Micro)
}
