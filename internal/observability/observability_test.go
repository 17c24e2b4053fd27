package observability

import (
	"fmt"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/stupiduntilnot/voicecursor/internal/tool"
)

func TestDefaultPricingLookup(t *testing.T) {
	p := DefaultPricing()

	m, ok := p.Lookup("llm:LLAMA-3.3-70b-versatile")
	require.True(t, ok)
	assert.Equal(t, 0.59, m.InputPerMillion)

	m, ok = p.Lookup("llm:gpt-4o-mini")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", m.Match, "more specific entry must win")

	_, ok = p.Lookup("sanitizer")
	assert.False(t, ok)
}

func TestPricingCost(t *testing.T) {
	p := &Pricing{Models: []ModelPrice{
		{Match: "llama", InputPerMillion: 1, OutputPerMillion: 2},
		{Match: "whisper", PerMinute: 0.006},
	}}

	assert.InDelta(t, 1e-6*1000+2e-6*500, p.Cost("llm:llama", Usage{InputTokens: 1000, OutputTokens: 500}), 1e-12)
	// 4000 chars in, 2000 out: 1000 + 500 estimated tokens.
	assert.InDelta(t, 1e-6*1000+2e-6*500, p.Cost("llm:llama", Usage{InputChars: 4000, OutputChars: 2000}), 1e-12)
	assert.InDelta(t, 0.006*2, p.Cost("stt:whisper-1", Usage{DurationSeconds: 120}), 1e-12)
	assert.InDelta(t, 0.006*0.1, p.Cost("stt:whisper-1", Usage{InputChars: 10}), 1e-12)
	assert.Zero(t, p.Cost("formatter", Usage{InputChars: 100}))
}

func TestParsePricingRejectsBadEntries(t *testing.T) {
	_, err := ParsePricing([]byte("models:\n  - input_per_million: 1\n"))
	assert.Error(t, err)
	_, err = ParsePricing([]byte("models:\n  - match: x\n    per_minute: -1\n"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "pricing.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  - match: custom\n    input_per_million: 3\n"), 0o644))
	p, err := LoadPricing(path)
	require.NoError(t, err)
	require.Len(t, p.Models, 1)
}

func runOnce(t *testing.T, tr *Tracker, query string, success bool) Record {
	t.Helper()
	run := tr.Start(query)
	run.AgentStart("speech")
	run.ObserveTool("stt:passthrough", query, tool.OK(query, map[string]any{"source": "text_passthrough"}), time.Millisecond)
	run.AgentEnd("Speech Agent", "speech", true)
	run.AgentStart("coding")
	run.ObserveTool("llm:llama-3.3-70b-versatile", "prompt", tool.OK("code", map[string]any{
		"tokens": 30, "input_tokens": 20, "output_tokens": 10,
	}), 5*time.Millisecond)
	run.AgentEnd("Coder Agent", "coding", success)
	errMsg := ""
	if !success {
		errMsg = "Code generation failed: boom"
	}
	rec, err := run.End(success, errMsg)
	require.NoError(t, err)
	return rec
}

func TestTrackerRecordsAndSaves(t *testing.T) {
	dir := t.TempDir()
	tr, err := NewTracker(dir, nil, nil)
	require.NoError(t, err)

	rec := runOnce(t, tr, "build a calculator", true)
	assert.Equal(t, "build a calculator", rec.Query)
	require.Len(t, rec.Agents, 2)
	assert.Equal(t, []string{"llm:llama-3.3-70b-versatile"}, rec.Agents[1].ToolsUsed)
	assert.Equal(t, 30, rec.Agents[1].Tokens)
	assert.Equal(t, 30, rec.TotalTokens)
	require.Len(t, rec.Tools, 2)
	assert.Equal(t, 2, rec.Tools[1].Order)
	assert.InDelta(t, 20e-6*0.59+10e-6*0.79, rec.TotalCostUSD, 1e-6)
	assert.Nil(t, rec.Error)

	_, err = os.Stat(filepath.Join(dir, rec.ID+".json"))
	require.NoError(t, err)

	reloaded, err := NewTracker(dir, nil, nil)
	require.NoError(t, err)
	got := reloaded.Records()
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.TotalTokens, got[0].TotalTokens)
}

func TestTrackerSummary(t *testing.T) {
	tr, err := NewTracker(t.TempDir(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, tr.Summary())

	runOnce(t, tr, "a", true)
	runOnce(t, tr, "b", false)

	s := tr.Summary()
	assert.Equal(t, 2, s.TotalRequests)
	assert.Equal(t, 1, s.SuccessfulRequests)
	assert.Equal(t, 1, s.FailedRequests)
	assert.Equal(t, 60, s.TotalTokens)
	assert.Equal(t, 2, s.TotalAgentsUsed)
	assert.Equal(t, 2, s.TotalToolsUsed)
}

func TestTrackerLoadsLatestHundred(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 105; i++ {
		body := fmt.Sprintf(`{"id":"%03d","query":"q%d","agents":[],"tools":[],"success":true}`, i, i)
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("%03d.json", i)), []byte(body), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zzz.json"), []byte("{not json"), 0o644))

	tr, err := NewTracker(dir, nil, nil)
	require.NoError(t, err)
	records := tr.Records()
	require.Len(t, records, 99)
	assert.Equal(t, "006", records[0].ID)
	assert.Equal(t, "104", records[len(records)-1].ID)

	require.NoError(t, os.Remove(filepath.Join(dir, "zzz.json")))
	require.NoError(t, tr.Reset())
	assert.Len(t, tr.Records(), 100)
}

func TestConcurrentRunsDoNotMix(t *testing.T) {
	tr, err := NewTracker(t.TempDir(), nil, nil)
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 10; i++ {
		query := fmt.Sprintf("query-%d", i)
		g.Go(func() error {
			run := tr.Start(query)
			run.AgentStart("speech")
			run.ObserveTool("stt:passthrough", query, tool.OK(query, nil), time.Millisecond)
			run.AgentEnd("Speech Agent", "speech", true)
			rec, err := run.End(true, "")
			if err != nil {
				return err
			}
			if len(rec.Tools) != 1 || rec.Tools[0].InputLength != len(query) {
				return fmt.Errorf("run %s saw foreign tool calls: %+v", query, rec.Tools)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, tr.Records(), 10)
}

func TestMetricsCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	tr, err := NewTracker(t.TempDir(), nil, m)
	require.NoError(t, err)

	runOnce(t, tr, "a", true)
	runOnce(t, tr, "b", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.stageTotal.WithLabelValues("speech", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stageTotal.WithLabelValues("coding", "error")))
	assert.Equal(t, 60.0, testutil.ToFloat64(m.toolTokens.WithLabelValues("llm:llama-3.3-70b-versatile")))
	assert.Greater(t, testutil.ToFloat64(m.costUSD), 0.0)
}

func TestMetricsReplayAndExporter(t *testing.T) {
	tr, err := NewTracker(t.TempDir(), nil, nil)
	require.NoError(t, err)
	runOnce(t, tr, "a", true)

	exp, m := NewExporter(":0")
	m.Replay(tr.Records())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pipelineRuns.WithLabelValues("success")))

	srv := httptest.NewServer(exp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "voicecursor_pipeline_runs_total"))

	health, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, 200, health.StatusCode)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.observeStage("speech", 1, true)
	m.observeTool("x", 1, 1)
	m.observeRun(true)
	m.Replay([]Record{{Success: true}})
}
