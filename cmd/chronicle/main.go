package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/chronicle-kg/chronicle/internal/cli"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stderr)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
