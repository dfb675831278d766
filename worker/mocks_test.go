package worker

import (
	"context"
	"errors"

	"github.com/streadway/amqp"
	"text2phenotype.com/admitnote/pipeline"
	"text2phenotype.com/admitnote/tasks"
)

const defaultCaseDocument = `{"originalNote": "Cough for three days.", "results": {"level": "Inpatient"}}`

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type pipelineMock struct {
	ppln    pipeline.Pipeline
	config  pipelineMockConfig
	calls   pipelineCall
	request pipeline.Request
}

type pipelineMockConfig struct {
	fail   bool
	panics bool
	result string
}

type pipelineCall struct {
	pipeline bool
}

type redisMock struct {
	config        redisMockConfig
	calls         redisMockCalls
	cancelReasons []string
	failure       error
	closed        bool
}

type redisMockConfig struct {
	getCaseTask           withValue
	getJobTask            withValue
	getDocTask            withValue
	onTaskCancelled       failingMethod
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getCaseTask           bool
	getJobTask            bool
	getDocTask            bool
	onTaskCancelled       bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config     rmqMockConfig
	calls      rmqMockCalls
	notified   []Message
	deliveryCh chan amqp.Delivery
	closed     bool
}

type rmqMockConfig struct {
	notifySequencer failingMethod
	ack             failingMethod
}

type rmqMockCalls struct {
	notifySequencer bool
	ack             bool
	requeue         bool
	drop            bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
	saved  map[string]string
	closed bool
}

type s3MockConfig struct {
	getCaseDocument withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	getCaseDocument bool
	saveResultsFile bool
}

func (mock *s3Mock) close() { mock.closed = true }

func (mock *rmqMock) close() { mock.closed = true }

func (mock *redisMock) close() { mock.closed = true }

func getPipelineMock(config pipelineMockConfig) *pipelineMock {
	mock := pipelineMock{config: config}
	mock.ppln = func(request pipeline.Request) <-chan string {
		mock.calls.pipeline = true
		mock.request = request
		if mock.config.panics {
			var labs map[string]float64
			labs["wbc"] = 12
		}
		ch := make(chan string, 1)
		if !mock.config.fail {
			ch <- mock.config.result
		}
		close(ch)
		return ch
	}
	return &mock
}

func (mock *redisMock) getCaseTask(ctx context.Context, redisKey string) (*tasks.CaseTask, error) {
	mock.calls.getCaseTask = true
	if mock.config.getCaseTask.fail {
		return nil, errors.New("failed to get case task")
	}
	if task, ok := mock.config.getCaseTask.returnedValue.(tasks.CaseTask); ok {
		return &task, nil
	}
	return &tasks.CaseTask{DocID: "doc", CaseFileKey: "cases/case.json"}, nil
}

func (mock *redisMock) getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error) {
	mock.calls.getJobTask = true
	if mock.config.getJobTask.fail {
		return nil, errors.New("failed to get job task")
	}
	if jobTask, ok := mock.config.getJobTask.returnedValue.(tasks.JobTask); ok {
		return &jobTask, nil
	}
	return &tasks.JobTask{}, nil
}

func (mock *redisMock) getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error) {
	mock.calls.getDocTask = true
	if mock.config.getDocTask.fail {
		return nil, errors.New("failed to get doc task")
	}
	if docTask, ok := mock.config.getDocTask.returnedValue.(tasks.DocumentTaskCached); ok {
		return &docTask, nil
	}
	return &tasks.DocumentTaskCached{}, nil
}

func (mock *redisMock) onTaskStarted(ctx context.Context, task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update case task on start")
	}
	return nil
}

func (mock *redisMock) onTaskCancelled(ctx context.Context, task *Task, errorMessages ...string) error {
	mock.calls.onTaskCancelled = true
	mock.cancelReasons = append(mock.cancelReasons, errorMessages...)
	if mock.config.onTaskCancelled.fail {
		return errors.New("failed to update case task on cancel")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(ctx context.Context, task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update case task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(ctx context.Context, task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	mock.failure = err
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update case task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(ctx context.Context, task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update case task on complete")
	}
	return nil
}

func (mock *rmqMock) reject(delivery *amqp.Delivery, requeue bool) error {
	if requeue {
		mock.calls.requeue = true
	} else {
		mock.calls.drop = true
	}
	return nil
}

func (mock *rmqMock) deliveries() <-chan amqp.Delivery {
	return mock.deliveryCh
}

func (mock *rmqMock) consumerClosed() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) publisherClosed() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) notifySequencer(task *Task) error {
	mock.calls.notifySequencer = true
	if mock.config.notifySequencer.fail {
		return errors.New("failed to notify sequencer")
	}
	mock.notified = append(mock.notified, sequencerMessage(task))
	return nil
}

func (mock *rmqMock) ack(delivery *amqp.Delivery) error {
	mock.calls.ack = true
	if mock.config.ack.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) getCaseDocument(ctx context.Context, task *Task) ([]byte, error) {
	mock.calls.getCaseDocument = true
	if mock.config.getCaseDocument.fail {
		return nil, errors.New("mock: failed to load from s3")
	}
	if data, ok := mock.config.getCaseDocument.returnedValue.([]byte); ok {
		return data, nil
	}
	return []byte(defaultCaseDocument), nil
}

func (mock *s3Mock) saveResultsFile(ctx context.Context, task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	if mock.saved == nil {
		mock.saved = make(map[string]string)
	}
	mock.saved[resultsFileKey(task.caseTask.DocID, task.redisKey)] = result
	return nil
}
