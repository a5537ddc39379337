package logging

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultLogDir returns the default log directory (~/.thaisidecar/logs/).
// Falls back to temp directory if home directory is unavailable.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".thaisidecar", "logs")
	}
	return filepath.Join(home, ".thaisidecar", "logs")
}

// DefaultLogPath returns the default server log path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "server.log")
}

// SegmenterLogPath returns the path used by the dockerized segmentation
// backend's own log output, when it is mirrored into our log directory.
func SegmenterLogPath() string {
	return filepath.Join(DefaultLogDir(), "segmenter-backend.log")
}

// LogSource represents the source of logs to view.
type LogSource string

const (
	// LogSourceServer is the sidecar's own logs (default).
	LogSourceServer LogSource = "server"
	// LogSourceSegmenter is the dockerized segmentation backend's logs.
	LogSourceSegmenter LogSource = "segmenter"
	// LogSourceAll combines all log sources.
	LogSourceAll LogSource = "all"
)

// FindLogFile attempts to find the log file for viewing.
// Priority:
// 1. Explicit path (if provided)
// 2. ~/.thaisidecar/logs/server.log (default)
func FindLogFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit, nil
		}
		return "", fmt.Errorf("log file not found: %s", explicit)
	}

	globalPath := DefaultLogPath()
	if _, err := os.Stat(globalPath); err == nil {
		return globalPath, nil
	}

	return "", fmt.Errorf("no log file found. Server may not have run with --debug yet.\nExpected at: %s", globalPath)
}

// FindLogFileBySource finds log files based on the source type.
// Returns a list of log file paths that exist.
func FindLogFileBySource(source LogSource, explicit string) ([]string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return []string{explicit}, nil
		}
		return nil, fmt.Errorf("log file not found: %s", explicit)
	}

	var paths []string
	var checked []string

	switch source {
	case LogSourceServer:
		p := DefaultLogPath()
		checked = append(checked, p)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}

	case LogSourceSegmenter:
		p := SegmenterLogPath()
		checked = append(checked, p)
		if _, err := os.Stat(p); err == nil {
			paths = append(paths, p)
		}

	case LogSourceAll:
		serverPath := DefaultLogPath()
		segPath := SegmenterLogPath()
		checked = append(checked, serverPath, segPath)

		if _, err := os.Stat(serverPath); err == nil {
			paths = append(paths, serverPath)
		}
		if _, err := os.Stat(segPath); err == nil {
			paths = append(paths, segPath)
		}

	default:
		return nil, fmt.Errorf("unknown log source: %s (use: server, segmenter, all)", source)
	}

	if len(paths) == 0 {
		hint := getLogHint(source)
		return nil, fmt.Errorf("no log files found for source '%s'.\nChecked: %v\n\n%s", source, checked, hint)
	}

	return paths, nil
}

// ParseLogSource parses a string into a LogSource.
func ParseLogSource(s string) LogSource {
	switch s {
	case "segmenter":
		return LogSourceSegmenter
	case "all":
		return LogSourceAll
	default:
		return LogSourceServer
	}
}

// EnsureLogDir creates the log directory if it doesn't exist.
func EnsureLogDir() error {
	dir := DefaultLogDir()
	return os.MkdirAll(dir, 0o755)
}

// getLogHint returns a helpful message on how to generate logs for the given source.
func getLogHint(source LogSource) string {
	switch source {
	case LogSourceServer:
		return "To generate server logs:\n  thaisidecar --debug serve"
	case LogSourceSegmenter:
		return "Segmenter backend logs appear once the docker-backed engine has started."
	case LogSourceAll:
		return "To generate logs:\n  thaisidecar --debug serve"
	default:
		return ""
	}
}
