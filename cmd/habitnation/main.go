package main

import (
	"context"
	"os"

	"github.com/habitnation/habitnation/internal/cli/commands"
)

func main() {
	if err := commands.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
