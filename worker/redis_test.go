package worker

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"text2phenotype.com/admitnote/tasks"
)

const transitionTime = "2026-03-01T08:30:00.000000+00:00"

func stamp(s string) *string {
	return &s
}

func TestTaskInfoTransitions(t *testing.T) {
	earlier := "2026-03-01T08:00:00.000000+00:00"

	tests := []struct {
		name       string
		before     tasks.TaskInfo
		transition func(info *tasks.TaskInfo)
		expected   tasks.TaskInfo
	}{
		{
			name:   "first attempt starts",
			before: tasks.TaskInfo{Status: tasks.TaskStatusSubmitted},
			transition: func(info *tasks.TaskInfo) {
				markStarted(info, transitionTime)
			},
			expected: tasks.TaskInfo{Status: tasks.TaskStatusStarted, Attempts: 1, StartedAt: stamp(transitionTime)},
		},
		{
			name: "retry clears the earlier completion time",
			before: tasks.TaskInfo{
				Status:        tasks.TaskStatusFailed,
				Attempts:      1,
				StartedAt:     &earlier,
				CompletedAt:   &earlier,
				ErrorMessages: []string{"pipeline did not finish"},
			},
			transition: func(info *tasks.TaskInfo) {
				markStarted(info, transitionTime)
			},
			expected: tasks.TaskInfo{
				Status:        tasks.TaskStatusStarted,
				Attempts:      2,
				StartedAt:     stamp(transitionTime),
				ErrorMessages: []string{"pipeline did not finish"},
			},
		},
		{
			name:   "user cancellation carries no reason",
			before: tasks.TaskInfo{Status: tasks.TaskStatusSubmitted},
			transition: func(info *tasks.TaskInfo) {
				markCanceled(info, transitionTime)
			},
			expected: tasks.TaskInfo{Status: tasks.TaskStatusCanceled, Attempts: 1, StartedAt: stamp(transitionTime), CompletedAt: stamp(transitionTime)},
		},
		{
			name:   "cancellation after a document failure keeps the reason",
			before: tasks.TaskInfo{Status: tasks.TaskStatusSubmitted},
			transition: func(info *tasks.TaskInfo) {
				markCanceled(info, transitionTime, "document failed in scoring")
			},
			expected: tasks.TaskInfo{
				Status:        tasks.TaskStatusCanceled,
				Attempts:      1,
				StartedAt:     stamp(transitionTime),
				CompletedAt:   stamp(transitionTime),
				ErrorMessages: []string{"document failed in scoring"},
			},
		},
		{
			name:   "exhausted attempts close the case as failed",
			before: tasks.TaskInfo{Status: tasks.TaskStatusFailed, Attempts: 3},
			transition: func(info *tasks.TaskInfo) {
				markExceededRetries(info, transitionTime, 3)
			},
			expected: tasks.TaskInfo{
				Status:        tasks.TaskStatusCompletedFailure,
				Attempts:      4,
				StartedAt:     stamp(transitionTime),
				CompletedAt:   stamp(transitionTime),
				ErrorMessages: []string{"Task has exceeded retries. (Attempts: 4, max retries: 3 )"},
			},
		},
		{
			name:   "failed render stays open for another attempt",
			before: tasks.TaskInfo{Status: tasks.TaskStatusStarted, Attempts: 1, StartedAt: &earlier},
			transition: func(info *tasks.TaskInfo) {
				markFailed(info, transitionTime, errors.New("failed to fetch case from s3"))
			},
			expected: tasks.TaskInfo{
				Status:        tasks.TaskStatusFailed,
				Attempts:      1,
				StartedAt:     &earlier,
				CompletedAt:   stamp(transitionTime),
				ErrorMessages: []string{"failed to fetch case from s3"},
			},
		},
		{
			name:   "rendered case records its results key",
			before: tasks.TaskInfo{Status: tasks.TaskStatusStarted, Attempts: 1, StartedAt: &earlier},
			transition: func(info *tasks.TaskInfo) {
				markRendered(info, transitionTime, "processed/documents/doc/cases/case-1/case-1.narrative_results.json")
			},
			expected: tasks.TaskInfo{
				Status:         tasks.TaskStatusCompletedSuccess,
				Attempts:       1,
				StartedAt:      &earlier,
				CompletedAt:    stamp(transitionTime),
				ResultsFileKey: "processed/documents/doc/cases/case-1/case-1.narrative_results.json",
			},
		},
		{
			name:   "rendered case keeps a concurrent cancellation",
			before: tasks.TaskInfo{Status: tasks.TaskStatusCanceled, Attempts: 2},
			transition: func(info *tasks.TaskInfo) {
				markRendered(info, transitionTime, "results.json")
			},
			expected: tasks.TaskInfo{
				Status:         tasks.TaskStatusCanceled,
				Attempts:       2,
				CompletedAt:    stamp(transitionTime),
				ResultsFileKey: "results.json",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := tt.before
			tt.transition(&info)
			if diff := cmp.Diff(tt.expected, info); diff != "" {
				t.Errorf("unexpected task info (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFormattedNowIsUTCMicroseconds(t *testing.T) {
	parsed, err := time.Parse(RFC3339Micro, formattedNow())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now(), parsed, time.Minute)
	require.Regexp(t, `\.\d{6}\+00:00$`, formattedNow())
}

func TestResultsFileKey(t *testing.T) {
	require.Equal(t,
		"processed/documents/doc-7/cases/doc-7_case-2/doc-7_case-2.narrative_results.json",
		resultsFileKey("doc-7", "doc-7_case-2"))
}
