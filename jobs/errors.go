package jobs

import "errors"

var (
	// ErrJobFailed marks a job that reached the failed status.
	ErrJobFailed = errors.New("jobs: job failed")

	// ErrPollBudgetExceeded marks an Await that ran out of polls before
	// the job turned terminal.
	ErrPollBudgetExceeded = errors.New("jobs: poll budget exceeded")
)
