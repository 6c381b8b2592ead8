// The main package for the provider-harvest executable.
package main

import "github.com/healthdex/provider-harvest/cmd"

func main() {
	cmd.Execute()
}
