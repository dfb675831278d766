package tasks

import (
	"context"
	"errors"

	"text2phenotype.com/admitnote/redis"
)

const DocumentsDB redis.DB = 0

type DocumentTask struct {
	FailedTasks []string            `json:"failed_tasks"`
	FailedCases map[string][]string `json:"failed_cases"`
}

// RecordFailure marks worker as failed for the document and for caseKey.
func (task *DocumentTask) RecordFailure(caseKey, worker string) {
	task.FailedTasks = append(task.FailedTasks, worker)
	if task.FailedCases == nil {
		task.FailedCases = make(map[string][]string)
	}
	task.FailedCases[caseKey] = append(task.FailedCases[caseKey], worker)
}

type DocumentTaskCached struct {
	FailedTasks []string `json:"failed_tasks"`
	JobID       string   `json:"job_id"`
	WorkType    string   `json:"work_type"`
}

type DocumentTasks struct {
	client *redis.Client
}

func (tasks DocumentTasks) GetCached(ctx context.Context, redisKey string) (*DocumentTaskCached, error) {
	return getCached[DocumentTaskCached](ctx, tasks.client, redisKey)
}

// Update changes the document task and mirrors its failure list into the
// cached properties that other workers read.
func (tasks DocumentTasks) Update(ctx context.Context, redisKey string, updateFunc func(task *DocumentTask)) error {
	var failedTasks []string
	err := redis.UpdatePartialDocument(ctx, tasks.client, redisKey, func(task *DocumentTask) {
		updateFunc(task)
		failedTasks = task.FailedTasks
	})
	if err != nil {
		return err
	}

	cachedKey := cachedPropertiesKey(redisKey)
	err = redis.UpdatePartialDocument(ctx, tasks.client, cachedKey, func(cached *DocumentTaskCached) {
		cached.FailedTasks = failedTasks
	})
	if errors.Is(err, redis.ErrNotFound) {
		return tasks.client.SaveDoc(ctx, cachedKey, DocumentTaskCached{FailedTasks: failedTasks})
	}
	return err
}
