package main

import "github.com/oshokin/alert-hub/cmd/alert-hub/cmd"

func main() {
	cmd.Execute()
}
