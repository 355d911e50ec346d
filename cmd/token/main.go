package main

import (
	"flag"
	"fmt"
	"os"

	"nameledger/internal/tools/devtoken"
)

func main() {
	cfg, err := devtoken.ParseConfig(flag.CommandLine, os.Args[1:], os.Getenv)
	if err != nil {
		exitf("parse flags: %v", err)
	}
	if err := devtoken.Run(cfg, os.Stdout); err != nil {
		exitf("mint token: %v", err)
	}
}

func exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
