package main

import (
	"os"

	"github.com/townql/townql/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
