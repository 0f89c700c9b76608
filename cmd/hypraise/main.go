package main

import (
	"os"

	"github.com/troia/halo/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewHypraiseCmd(cli.Options{}), os.Args[1:], os.Stderr))
}
