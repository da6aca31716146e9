package main

import "github.com/oshokin/alert-hub/cmd/alert-ctl/cmd"

func main() {
	cmd.Execute()
}
