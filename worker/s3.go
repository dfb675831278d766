package worker

import (
	"context"
	"path"

	"text2phenotype.com/admitnote/s3client"
)

const resultsContentType = "application/json"

type s3Transactions interface {
	getCaseDocument(ctx context.Context, task *Task) ([]byte, error)
	saveResultsFile(ctx context.Context, task *Task, result string) error
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) getCaseDocument(ctx context.Context, task *Task) ([]byte, error) {
	return wrapper.s3Client.Download(ctx, task.caseTask.CaseFileKey)
}

func (wrapper *s3ClientWrapper) saveResultsFile(ctx context.Context, task *Task, result string) error {
	return wrapper.s3Client.Upload(ctx, resultsFileKey(task.caseTask.DocID, task.redisKey), []byte(result), resultsContentType)
}

// resultsFileKey places the rendered outputs of a case next to the other
// per-case artifacts of its document.
func resultsFileKey(docID, caseKey string) string {
	return path.Join("processed", "documents", docID, "cases", caseKey, caseKey+".narrative_results.json")
}
