package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dosanma1/nextdeploy/internal/cmd"
	"github.com/dosanma1/nextdeploy/internal/errs"
)

func main() {
	if err := cmd.Execute(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}
