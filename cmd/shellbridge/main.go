package main

import (
	"context"
	"fmt"
	"os"

	"shellbridge/internal/bootstrap"
)

func main() {
	if err := bootstrap.Run(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "shellbridge failed: %v\n", err)
		os.Exit(1)
	}
}
