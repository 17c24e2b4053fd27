// Package observability records per-request usage: which agents and tools
// ran, token counts, estimated cost and latency. Each request is saved as
// <dir>/<id>.json and mirrored into Prometheus collectors.
package observability

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stupiduntilnot/voicecursor/internal/logging"
	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

const maxLoadedRecords = 100

type ToolUsage struct {
	Name         string    `json:"name"`
	Order        int       `json:"order"`
	InputLength  int       `json:"input_length"`
	OutputLength int       `json:"output_length"`
	Tokens       int       `json:"tokens"`
	CostUSD      float64   `json:"cost_usd"`
	LatencyMS    float64   `json:"latency_ms"`
	Success      bool      `json:"success"`
	Timestamp    time.Time `json:"timestamp"`
}

type AgentExecution struct {
	Name      string    `json:"name"`
	Stage     string    `json:"stage"`
	ToolsUsed []string  `json:"tools_used"`
	Tokens    int       `json:"tokens"`
	LatencyMS float64   `json:"latency_ms"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the saved summary of one pipeline request.
type Record struct {
	ID             string           `json:"id"`
	Query          string           `json:"query"`
	Timestamp      time.Time        `json:"timestamp"`
	Agents         []AgentExecution `json:"agents"`
	Tools          []ToolUsage      `json:"tools"`
	TotalTokens    int              `json:"total_tokens"`
	TotalCostUSD   float64          `json:"total_cost_usd"`
	TotalLatencyMS float64          `json:"total_latency_ms"`
	Success        bool             `json:"success"`
	Error          *string          `json:"error"`
}

type Summary struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCostUSD       float64 `json:"total_cost_usd"`
	AvgLatencyMS       float64 `json:"avg_latency_ms"`
	TotalAgentsUsed    int     `json:"total_agents_used"`
	TotalToolsUsed     int     `json:"total_tools_used"`
}

// Tracker owns the saved records. Per-request state lives in a Run, so
// concurrent requests never share mutable tracking state.
type Tracker struct {
	mu      sync.Mutex
	dir     string
	pricing *Pricing
	metrics *Metrics
	records []Record
	log     *slog.Logger
}

// NewTracker creates dir if needed and loads the most recent saved records.
// metrics may be nil.
func NewTracker(dir string, pricing *Pricing, metrics *Metrics) (*Tracker, error) {
	if strings.TrimSpace(dir) == "" {
		dir = filepath.Join("logs", "observability")
	}
	if pricing == nil {
		pricing = DefaultPricing()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create observability dir: %w", err)
	}
	t := &Tracker{dir: dir, pricing: pricing, metrics: metrics, log: logging.New("observability")}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tracker) Dir() string { return t.dir }

func (t *Tracker) load() error {
	matches, err := filepath.Glob(filepath.Join(t.dir, "*.json"))
	if err != nil {
		return err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	if len(matches) > maxLoadedRecords {
		matches = matches[:maxLoadedRecords]
	}

	records := make([]Record, 0, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		raw, err := os.ReadFile(matches[i])
		if err != nil {
			t.log.Warn("skipping unreadable record", "path", matches[i], "error", err)
			continue
		}
		var rec Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			t.log.Warn("skipping malformed record", "path", matches[i], "error", err)
			continue
		}
		records = append(records, rec)
	}
	t.records = records
	return nil
}

// Reset drops in-memory state and reloads the saved records from disk.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load()
}

// Records returns a copy of the loaded and completed records, oldest first.
func (t *Tracker) Records() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Record(nil), t.records...)
}

func (t *Tracker) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{TotalRequests: len(t.records)}
	if s.TotalRequests == 0 {
		return s
	}
	agents := map[string]struct{}{}
	tools := map[string]struct{}{}
	var latency float64
	for _, r := range t.records {
		if r.Success {
			s.SuccessfulRequests++
		}
		s.TotalTokens += r.TotalTokens
		s.TotalCostUSD += r.TotalCostUSD
		latency += r.TotalLatencyMS
		for _, a := range r.Agents {
			agents[a.Name] = struct{}{}
		}
		for _, u := range r.Tools {
			tools[u.Name] = struct{}{}
		}
	}
	s.FailedRequests = s.TotalRequests - s.SuccessfulRequests
	s.TotalCostUSD = round(s.TotalCostUSD, 6)
	s.AvgLatencyMS = round(latency/float64(s.TotalRequests), 2)
	s.TotalAgentsUsed = len(agents)
	s.TotalToolsUsed = len(tools)
	return s
}

// Start begins tracking one request.
func (t *Tracker) Start(query string) *Run {
	now := time.Now()
	return &Run{
		tracker: t,
		started: now,
		rec: Record{
			ID:        uuid.Must(uuid.NewV7()).String(),
			Query:     query,
			Timestamp: now,
			Agents:    []AgentExecution{},
			Tools:     []ToolUsage{},
		},
	}
}

func (t *Tracker) finish(rec Record) error {
	t.mu.Lock()
	t.records = append(t.records, rec)
	if len(t.records) > maxLoadedRecords {
		t.records = t.records[len(t.records)-maxLoadedRecords:]
	}
	t.mu.Unlock()

	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(filepath.Join(t.dir, rec.ID+".json"), raw, 0o644); err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// Run tracks a single request. It implements tool.Observer; attach it with
// tool.WithObserver so every tool call in the request is counted.
type Run struct {
	tracker *Tracker
	started time.Time

	mu          sync.Mutex
	rec         Record
	stage       string
	stageStart  time.Time
	stageTools  []string
	stageTokens int
	done        bool
}

var _ tool.Observer = (*Run)(nil)

func (r *Run) ID() string { return r.rec.ID }

// AgentStart marks the beginning of a stage.
func (r *Run) AgentStart(stage string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = stage
	r.stageStart = time.Now()
	r.stageTools = []string{}
	r.stageTokens = 0
}

// AgentEnd closes the stage opened by AgentStart, attributing the tools
// observed in between to it.
func (r *Run) AgentEnd(agentName, stage string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stage != stage || r.stageStart.IsZero() {
		return
	}
	latency := time.Since(r.stageStart)
	r.rec.Agents = append(r.rec.Agents, AgentExecution{
		Name:      agentName,
		Stage:     stage,
		ToolsUsed: r.stageTools,
		Tokens:    r.stageTokens,
		LatencyMS: round(float64(latency.Microseconds())/1000, 2),
		Success:   success,
		Timestamp: time.Now(),
	})
	r.rec.TotalTokens += r.stageTokens
	r.tracker.metrics.observeStage(stage, latency.Seconds(), success)
	r.stage = ""
	r.stageStart = time.Time{}
}

func (r *Run) ObserveTool(name string, input any, res tool.Result, latency time.Duration) {
	usage := Usage{
		InputTokens:     metaInt(res, "input_tokens"),
		OutputTokens:    metaInt(res, "output_tokens"),
		InputChars:      valueLength(input),
		DurationSeconds: metaFloat(res, "duration_seconds"),
	}
	if res.Success {
		usage.OutputChars = valueLength(res.Output)
	}
	tokens := metaInt(res, "tokens")
	if tokens == 0 {
		tokens = usage.InputTokens + usage.OutputTokens
	}
	cost := r.tracker.pricing.Cost(name, usage)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.rec.Tools = append(r.rec.Tools, ToolUsage{
		Name:         name,
		Order:        len(r.rec.Tools) + 1,
		InputLength:  usage.InputChars,
		OutputLength: usage.OutputChars,
		Tokens:       tokens,
		CostUSD:      round(cost, 6),
		LatencyMS:    round(float64(latency.Microseconds())/1000, 2),
		Success:      res.Success,
		Timestamp:    time.Now(),
	})
	r.rec.TotalCostUSD += cost
	if r.stage != "" {
		r.stageTools = append(r.stageTools, name)
		r.stageTokens += tokens
	} else {
		r.rec.TotalTokens += tokens
	}
	r.tracker.metrics.observeTool(name, tokens, cost)
}

// End finalizes and saves the record. Calling End twice is a no-op that
// returns the same record.
func (r *Run) End(success bool, errMsg string) (Record, error) {
	r.mu.Lock()
	if r.done {
		rec := r.rec
		r.mu.Unlock()
		return rec, nil
	}
	r.done = true
	r.rec.Success = success
	if errMsg != "" {
		r.rec.Error = &errMsg
	}
	r.rec.TotalCostUSD = round(r.rec.TotalCostUSD, 6)
	r.rec.TotalLatencyMS = round(float64(time.Since(r.started).Microseconds())/1000, 2)
	rec := r.rec
	r.mu.Unlock()

	r.tracker.metrics.observeRun(success)
	return rec, r.tracker.finish(rec)
}

func metaInt(res tool.Result, key string) int {
	v, _ := res.Meta(key)
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func metaFloat(res tool.Result, key string) float64 {
	v, _ := res.Meta(key)
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func valueLength(v any) int {
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return len(x)
	case []byte:
		return len(x)
	}
	return len(fmt.Sprint(v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
