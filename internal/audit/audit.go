// Package audit writes the per-session agent call log: a human-readable
// text log and a JSON array of Records rewritten at the end of each
// pipeline run.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	filePrefix      = "agent_calls_"
	toolFieldMaxLen = 500
	logFieldMaxLen  = 500
	timestampLayout = "20060102_150405"
)

// Record is one agent or tool call. Exactly one of Agent and Tool is set.
type Record struct {
	Timestamp time.Time      `json:"timestamp"`
	RunID     string         `json:"run_id,omitempty"`
	Agent     string         `json:"agent,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Success   bool           `json:"success"`
	Input     any            `json:"input"`
	Output    any            `json:"output"`
	Error     *string        `json:"error"`
	Metadata  map[string]any `json:"metadata"`
}

// Logger is safe for concurrent use. Records are append-only; the JSON file
// is rewritten wholesale by Save.
type Logger struct {
	mu       sync.Mutex
	dir      string
	textPath string
	jsonPath string
	file     *os.File
	text     *slog.Logger
	records  []Record
}

// NewLogger creates dir if needed and opens a fresh pair of log files.
func NewLogger(dir string) (*Logger, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "logs"
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve log dir: %w", err)
	}
	l := &Logger{dir: abs}
	if err := l.open(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Logger) open() error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	now := time.Now()
	stamp := fmt.Sprintf("%s_%06d", now.Format(timestampLayout), now.Nanosecond()/1000)
	textPath := filepath.Join(l.dir, filePrefix+stamp+".log")
	f, err := os.OpenFile(textPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open text log: %w", err)
	}
	l.file = f
	l.textPath = textPath
	l.jsonPath = filepath.Join(l.dir, filePrefix+stamp+".json")
	l.text = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l.records = nil
	return nil
}

func (l *Logger) TextPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.textPath
}

func (l *Logger) JSONPath() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.jsonPath
}

// Records returns a copy of the records logged since the last Reset.
func (l *Logger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

// LogAgentCall appends an agent record and writes it to the text log.
func (l *Logger) LogAgentCall(runID, agent string, input, output any, success bool, errMsg string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := Record{
		Timestamp: time.Now(),
		RunID:     runID,
		Agent:     agent,
		Success:   success,
		Input:     Serialize(input),
		Output:    Serialize(output),
		Error:     errPtr(errMsg),
		Metadata:  Serialize(metadata).(map[string]any),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	attrs := []any{
		"run_id", runID,
		"agent", agent,
		"success", success,
		"input", formatForLog(input, logFieldMaxLen),
		"output", formatForLog(output, logFieldMaxLen),
	}
	if len(metadata) > 0 {
		if raw, err := json.Marshal(rec.Metadata); err == nil {
			attrs = append(attrs, "metadata", string(raw))
		}
	}
	if errMsg != "" {
		l.text.Error("agent call", append(attrs, "error", errMsg)...)
	} else {
		l.text.Info("agent call", attrs...)
	}
	l.records = append(l.records, rec)
}

// LogToolCall appends a tool record. Long string inputs and outputs are
// truncated.
func (l *Logger) LogToolCall(runID, toolName string, input, output any, success bool, errMsg string, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	rec := Record{
		Timestamp: time.Now(),
		RunID:     runID,
		Tool:      toolName,
		Success:   success,
		Input:     truncateValue(Serialize(input)),
		Output:    truncateValue(Serialize(output)),
		Error:     errPtr(errMsg),
		Metadata:  Serialize(metadata).(map[string]any),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.Debug("tool call", "run_id", runID, "tool", toolName, "success", success)
	if errMsg != "" {
		l.text.Debug("tool error", "run_id", runID, "tool", toolName, "error", errMsg)
	}
	l.records = append(l.records, rec)
}

func (l *Logger) PipelineStart(runID, command string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.text.Info("pipeline start", "run_id", runID, "command", truncate(command, logFieldMaxLen))
}

// PipelineEnd logs the outcome and saves the JSON log.
func (l *Logger) PipelineEnd(runID string, success bool, errMsg string) error {
	l.mu.Lock()
	if errMsg != "" {
		l.text.Error("pipeline end", "run_id", runID, "success", success, "error", errMsg)
	} else {
		l.text.Info("pipeline end", "run_id", runID, "success", success)
	}
	l.mu.Unlock()
	return l.Save()
}

// Save rewrites the JSON log with every record logged so far.
func (l *Logger) Save() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records := l.records
	if records == nil {
		records = []Record{}
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal audit log: %w", err)
	}
	tmp := l.jsonPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	if err := os.Rename(tmp, l.jsonPath); err != nil {
		return fmt.Errorf("replace audit log: %w", err)
	}
	l.text.Info("json log saved", "path", l.jsonPath)
	return nil
}

// Reset closes the current files and starts a new pair.
func (l *Logger) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	return l.open()
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// LoadJSON reads a JSON log written by Save.
func LoadJSON(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

// LogFile describes one JSON log on disk.
type LogFile struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// ListLogs returns the JSON logs in dir, newest first.
func ListLogs(dir string) ([]LogFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*.json"))
	if err != nil {
		return nil, err
	}
	out := make([]LogFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		out = append(out, LogFile{Path: m, Name: filepath.Base(m), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

func errPtr(msg string) *string {
	if msg == "" {
		return nil
	}
	return &msg
}

func truncateValue(v any) any {
	if s, ok := v.(string); ok {
		return truncate(s, toolFieldMaxLen)
	}
	return v
}
