package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/embd.go/pkg/board"
	fx "github.com/robotalks/embd.go/pkg/framework"
)

func init() {
	board.SetupFlags()
}

func main() {
	flag.Parse()

	conf, err := board.LoadConfig()
	if err != nil {
		log.Fatalln(err)
	}
	b := conf.MustNewBoard()
	if err := fx.NewRunner().HandleSignals().Go(b).Wait(); err != nil {
		log.Fatalln(err)
	}
}
