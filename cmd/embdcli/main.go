package main

import (
	"github.com/robotalks/embd.go/pkg/cli/sh"
	env "github.com/robotalks/embd.go/pkg/l1/env/connector"

	_ "github.com/robotalks/embd.go/pkg/cli/cmds/board"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
