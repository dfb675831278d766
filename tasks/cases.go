package tasks

import (
	"context"

	"text2phenotype.com/admitnote/redis"
)

const CasesDB redis.DB = 2

type TaskStatus string

const (
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

// CaseTask tracks one admission case through the narrative worker. The
// case document at CaseFileKey holds the note, extraction and decision.
type CaseTask struct {
	DocID        string           `json:"document_id"`
	JobID        string           `json:"job_id"`
	CaseFileKey  string           `json:"case_file_key"`
	TaskStatuses CaseTaskStatuses `json:"task_statuses"`
}

type CaseTaskStatuses struct {
	Narrative TaskInfo `json:"narrative"`
}

type TaskInfo struct {
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type CaseTasks struct {
	client *redis.Client
}

func (tasks CaseTasks) Get(ctx context.Context, redisKey string) (*CaseTask, error) {
	var task CaseTask
	if err := tasks.client.GetDocument(ctx, redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks CaseTasks) Update(ctx context.Context, redisKey string, updateFunc func(task *CaseTask)) error {
	return redis.UpdatePartialDocument(ctx, tasks.client, redisKey, updateFunc)
}
