package main

import "github.com/klothoplatform/stackplan/pkg/cli"

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "0.0.0-local"

func main() {
	sm := cli.StackplanMain{
		Version: Version,
	}
	sm.Main()
}
