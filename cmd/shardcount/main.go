package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	// GOMAXPROCS follows the container CPU quota; bench reports the result
	undo, _ := maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))
	defer undo()

	if err := rootCmd.Execute(); err != nil {
		undo()
		os.Exit(1)
	}
}
