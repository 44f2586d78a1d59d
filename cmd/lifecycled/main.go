// Command lifecycled is the control-plane front door for the
// life-cycle event scheduler: it listens on a Unix-domain socket,
// accepts the newline-delimited command protocol described in
// SPEC_FULL.md §6, and dispatches each line to an environ.Environment
// looked up by name.
package main

import (
	"github.com/bitmark-inc/exitwithstatus"
	"github.com/bitmark-inc/logger"
	"github.com/orvelte/lifecycled/background"
	"github.com/orvelte/lifecycled/configuration"
	"github.com/orvelte/lifecycled/fault"
	"github.com/orvelte/lifecycled/getoptions"
)

// set by the linker: go build -ldflags "-X main.version=M.N" ./...
var version = "zero" // do not change this value

func main() {
	defer exitwithstatus.Handler()

	aliases := getoptions.AliasMap{
		"h": "help",
		"v": "verbose",
		"q": "quiet",
		"V": "version",
		"c": "config-file",
	}

	program, options, arguments := getoptions.GetOS(aliases)
	if len(options["version"]) > 0 {
		exitwithstatus.Message("%s: version: %s", program, version)
	}
	if len(options["help"]) > 0 {
		exitwithstatus.Message("usage: %s --config-file=FILE [help|version]", program)
	}

	if len(arguments) > 0 {
		processSetupCommand(program, arguments)
		return
	}

	if len(options["config-file"]) != 1 {
		exitwithstatus.Message("%s: exactly one --config-file is required, %d were given", program, len(options["config-file"]))
	}
	configurationFile := options["config-file"][0]

	theConfiguration, err := configuration.GetConfiguration(configurationFile)
	if err != nil {
		exitwithstatus.Message("%s: failed to read configuration from: %q  error: %s", program, configurationFile, err)
	}

	if err := logger.Initialise(logger.Configuration{
		Directory: theConfiguration.Logging.Directory,
		File:      theConfiguration.Logging.File,
		Size:      theConfiguration.Logging.Size,
		Count:     theConfiguration.Logging.Count,
		Console:   theConfiguration.Logging.Console,
		Levels:    theConfiguration.Logging.Levels,
	}); err != nil {
		exitwithstatus.Message("%s: logger setup failed: %s", program, err)
	}
	defer logger.Finalise()

	if err := fault.Initialise(); err != nil {
		exitwithstatus.Message("%s: fault setup failed: %s", program, err)
	}
	defer fault.Finalise()

	log := logger.New("main")
	defer log.Info("shutting down")
	log.Info("starting lifecycled")

	registry := newRegistry(log)
	defer registry.closeAll()

	status := newStatusWriter(logger.New("status"), theConfiguration.StatusFile, registry)
	statusBackground := status.start()
	defer background.Stop(statusBackground)

	for _, e := range theConfiguration.Environments {
		args := make([]string, 0, 1+len(e.Handlers))
		args = append(args, e.Name)
		for name, command := range e.Handlers {
			args = append(args, name+"="+command)
		}
		if _, err := registry.open(args); err != nil {
			exitwithstatus.Message("%s: failed to open configured environment %q: %s", program, e.Name, err)
		}
		log.Infof("opened configured environment %q with %d handlers", e.Name, len(e.Handlers))
	}

	server, err := newServer(log, theConfiguration.Socket, registry)
	if err != nil {
		exitwithstatus.Message("%s: failed to listen on %q: %s", program, theConfiguration.Socket, err)
	}

	if err := server.run(); err != nil {
		log.Errorf("server stopped with error: %s", err)
	}
}
