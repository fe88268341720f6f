package main

import (
	"os"

	"github.com/jfxdev/go-qbtapi/cmd/qbtctl/app"
)

func main() {
	if err := app.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
