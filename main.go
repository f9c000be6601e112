package main

import (
	"errors"
	"os"
)

// exitPartialFailure is returned when some files of a batch failed.
const exitPartialFailure = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errSomeUploadsFailed) {
			os.Exit(exitPartialFailure)
		}

		exitOnError(err)
	}
}
