package configuration

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bitmark-inc/logger"
)

// basic defaults (directories and files are relative to DataDirectory,
// resolved against the configuration file's own directory)
const (
	defaultDataDirectory = "."
	defaultPidFile       = "lifecycled.pid"
	defaultSocket        = "lifecycled.sock"
	defaultStatusFile    = "lifecycled.status.yaml"

	defaultLogDirectory = "log"
	defaultLogFile      = "lifecycled.log"
	defaultLogCount     = 10          // number of log files retained
	defaultLogSize      = 1024 * 1024 // rotate when <logfile> exceeds this size
)

// LoglevelMap holds one log level per named logger channel.
type LoglevelMap map[string]string

var defaultLogLevels = LoglevelMap{
	"main":            "info",
	"environ":         "info",
	logger.DefaultTag: "critical",
}

// LoggerType configures the rotating log file the teacher's logger
// package writes to.
type LoggerType struct {
	Directory string      `gluamapper:"directory"`
	File      string      `gluamapper:"file"`
	Size      int         `gluamapper:"size"`
	Count     int         `gluamapper:"count"`
	Console   bool        `gluamapper:"console"`
	Levels    LoglevelMap `gluamapper:"levels"`
}

// EnvironmentType declares one environment to open automatically at
// startup, with its handler-program table (§6 Open). Name=command
// pairs mirror the wire protocol's "prog=cmd" declarations.
type EnvironmentType struct {
	Name     string            `gluamapper:"name"`
	Handlers map[string]string `gluamapper:"handlers"`
}

// Configuration is the lifecycled daemon's configuration file shape,
// read by the teacher's Lua reader (luareader.go).
type Configuration struct {
	DataDirectory string            `gluamapper:"data_directory"`
	PidFile       string            `gluamapper:"pidfile"`
	Socket        string            `gluamapper:"socket"`
	StatusFile    string            `gluamapper:"status_file"`
	Logging       LoggerType        `gluamapper:"logging"`
	Environments  []EnvironmentType `gluamapper:"environments"`
}

// GetConfiguration reads, defaults and validates the configuration
// file at configurationFileName.
func GetConfiguration(configurationFileName string) (*Configuration, error) {
	configurationFileName, err := filepath.Abs(filepath.Clean(configurationFileName))
	if err != nil {
		return nil, err
	}

	// absolute path to the directory holding the configuration file
	dataDirectory, _ := filepath.Split(configurationFileName)

	options := &Configuration{
		DataDirectory: defaultDataDirectory,
		PidFile:       defaultPidFile,
		Socket:        defaultSocket,
		StatusFile:    defaultStatusFile,
		Logging: LoggerType{
			Directory: defaultLogDirectory,
			File:      defaultLogFile,
			Size:      defaultLogSize,
			Count:     defaultLogCount,
			Levels:    defaultLogLevels,
		},
	}

	if err := ParseConfigurationFile(configurationFileName, options); err != nil {
		return nil, err
	}

	if options.DataDirectory == "" || options.DataDirectory == "~" {
		return nil, fmt.Errorf("path: %q is not a valid directory", options.DataDirectory)
	} else if options.DataDirectory == "." {
		options.DataDirectory = dataDirectory
	} else {
		options.DataDirectory = filepath.Clean(options.DataDirectory)
	}

	if fileInfo, err := os.Stat(options.DataDirectory); err != nil {
		return nil, err
	} else if !fileInfo.IsDir() {
		return nil, fmt.Errorf("path: %q is not a directory", options.DataDirectory)
	}

	mustBeAbsolute := []*string{
		&options.PidFile,
		&options.Socket,
		&options.StatusFile,
		&options.Logging.Directory,
	}
	for _, f := range mustBeAbsolute {
		*f = ensureAbsolute(options.DataDirectory, *f)
	}

	switch filepath.Dir(options.Logging.File) {
	case "", ".":
		options.Logging.File = ensureAbsolute(options.Logging.Directory, options.Logging.File)
	default:
		return nil, fmt.Errorf("logging file: %q is not a plain name", options.Logging.File)
	}

	options.Logging.Directory = ensureAbsolute(options.DataDirectory, options.Logging.Directory)
	if err := os.MkdirAll(options.Logging.Directory, 0700); err != nil {
		return nil, err
	}

	return options, nil
}

// ensureAbsolute resolves filePath against directory unless it is
// already absolute.
func ensureAbsolute(directory string, filePath string) string {
	if !filepath.IsAbs(filePath) {
		filePath = filepath.Join(directory, filePath)
	}
	return filepath.Clean(filePath)
}
