// xlncore exposes the persistence utilities spec.md §4.7 reserves for "the
// external collaborator": producing a snapshot, reporting replica state
// hashes for divergence detection, and replaying a WAL for verification.
// The consensus core itself never shells out to this binary; it is a
// standalone operational tool built on the same persist package a host
// process embeds directly.
package main

import (
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	meta := "release"
	if gitTag == "" {
		meta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, meta)
}

func main() {
	log.Root().SetHandler(log.StreamHandler(os.Stderr, log.TerminalFormat(true)))

	app := cli.App{
		Version:   fullVersion(),
		Name:      "xlncore",
		Usage:     "persistence utilities for the XLN consensus core",
		Copyright: "XLN Foundation",
		Commands: []cli.Command{
			snapshotCommand,
			reportCommand,
			replayCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if coder, ok := err.(cli.ExitCoder); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}
