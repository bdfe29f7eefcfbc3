// Command modelbake resolves and bakes model artifacts from a descriptor pack.
package main

import "github.com/jonwraymond/modelbake/internal/cli"

func main() {
	cli.Execute()
}
