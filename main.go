// Command dpulogin keeps a DPU captive portal session signed in.
package main

import (
	"os"

	"dpulogin/cli"
)

// Set by the release build.
var version = "dev"

func main() {
	os.Exit(cli.Execute(version))
}
