// Command krystal is the command-line interface to the Krystal primitive.
package main

import (
	"os"

	"github.com/roach88/krystal/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:], os.Stdout, os.Stderr))
}
