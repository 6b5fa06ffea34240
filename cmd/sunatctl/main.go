package main

import (
	"os"

	"github.com/jhoicas/facturador-sunat/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
