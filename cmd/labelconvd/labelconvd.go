package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/akamensky/argparse"
	"github.com/coreos/go-systemd/daemon"
	"github.com/cyclopcam/labelconv/server"
)

func main() {
	parser := argparse.NewParser("labelconvd", "HTTP service that stores labeling tasks and converts them into training datasets")
	configFilePath := parser.String("c", "config", &argparse.Options{Help: "Config file path (.json or .yaml)", Default: "labelconvd.json"})
	port := parser.String("p", "port", &argparse.Options{Help: "Listen address, when not serving HTTPS", Default: ":8090"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	s, err := server.NewServerFromFile(*configFilePath)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	s.ListenForKillSignals()

	// Tell systemd that we're alive
	daemon.SdNotify(false, daemon.SdNotifyReady)

	if err := s.Listen(*port); err != nil && err != http.ErrServerClosed {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}
