package main

import (
	"context"
	"os"

	"github.com/threadlens-lab/threadlens/pkg/cli"
)

func main() {
	if err := cli.Run(context.Background(), os.Args); err != nil {
		os.Exit(1)
	}
}
