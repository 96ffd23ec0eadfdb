// Command changeflow runs scenarios through the change pipeline and inspects
// the cycle journal.
package main

import (
	"os"

	"github.com/roach88/changeflow/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
