package tasks

import (
	"context"

	"text2phenotype.com/admitnote/redis"
)

type Client struct {
	Documents DocumentTasks
	Cases     CaseTasks
	Jobs      JobTasks
}

// NewClient opens one Redis connection per task database.
func NewClient() (Client, error) {
	docRedisClient, err := redis.NewClient(DocumentsDB)
	if err != nil {
		return Client{}, err
	}
	jobsRedisClient, err := redis.NewClient(JobsDB)
	if err != nil {
		_ = docRedisClient.Close()
		return Client{}, err
	}
	casesRedisClient, err := redis.NewClient(CasesDB)
	if err != nil {
		_ = docRedisClient.Close()
		_ = jobsRedisClient.Close()
		return Client{}, err
	}
	return Client{
		Documents: DocumentTasks{client: docRedisClient},
		Jobs:      JobTasks{client: jobsRedisClient},
		Cases:     CaseTasks{client: casesRedisClient},
	}, nil
}

func (client *Client) Close() {
	_ = client.Cases.client.Close()
	_ = client.Documents.client.Close()
	_ = client.Jobs.client.Close()
}

func cachedPropertiesKey(redisKey string) string {
	return redisKey + "-cached-properties"
}

// getCached reads the "-cached-properties" companion of redisKey.
func getCached[T any](ctx context.Context, client *redis.Client, redisKey string) (*T, error) {
	var doc T
	if err := client.GetDocument(ctx, cachedPropertiesKey(redisKey), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
