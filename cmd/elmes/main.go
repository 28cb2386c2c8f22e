package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // Every task completed
	ExitTaskFailed = 1 // One or more tasks failed
	ExitError      = 2 // Configuration or runtime error
)

// TaskFailureError indicates that the run itself succeeded, but one or more
// tasks ended in a failed state.
type TaskFailureError struct {
	Message string
}

func (e *TaskFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var taskErr *TaskFailureError
		if errors.As(err, &taskErr) {
			os.Exit(ExitTaskFailed)
		}

		os.Exit(ExitError)
	}
}
