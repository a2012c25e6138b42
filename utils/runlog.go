package utils

import (
	"bufio"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
)

const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

type LogEntry struct {
	Timestamp  string `json:"time"`
	Level      string `json:"level"`
	Tool       string `json:"msg"`
	Program    string `json:"PROGRAM"`
	Sample     string `json:"SAMPLE"`
	Chromosome string `json:"CHROMOSOME"`
	Status     string `json:"STATUS"`
	Cmd        string `json:"CMD"`
}

// ParseLogFile reads a JSON run log. A missing file is an empty log, and lines
// that are not JSON objects are ignored.
func ParseLogFile(logFilePath string) ([]LogEntry, error) {
	file, err := os.Open(logFilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return entries, err
	}
	return entries, nil
}

func StageHasCompleted(entries []LogEntry, program, sample, chromosome string) bool {
	for _, e := range entries {
		if e.Program == program && e.Sample == sample && e.Chromosome == chromosome && e.Status == StatusCompleted {
			return true
		}
	}
	return false
}
