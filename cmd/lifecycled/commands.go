package main

import (
	"github.com/bitmark-inc/exitwithstatus"
)

// processSetupCommand handles the small set of commands that run
// without a configuration file, in the manner of the teacher's
// command/bitmarkd/commands.go processSetupCommand.
func processSetupCommand(program string, arguments []string) bool {
	command := arguments[0]

	switch command {
	case "help":
		exitwithstatus.Message("usage: %s --config-file=FILE\n       %s help\n       %s version", program, program, program)
	case "version":
		exitwithstatus.Message("%s: version: %s", program, version)
	default:
		exitwithstatus.Message("%s: no such command: %q", program, command)
	}
	return true
}
