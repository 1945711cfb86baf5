package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"openmic/internal/config"
	"openmic/internal/daemonrun"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	logLevelFlag := flag.String("log-level", "", "override configured log level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{LogLevel: *logLevelFlag}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
