package db

import (
	"database/sql"
	"testing"
)

// seedRunTree inserts a pipeline run and returns its root event ID.
//
//	pipeline.started              id=1
//	├── stage.completed speech    id=2
//	│   └── tool_call.completed   id=3
//	├── stage.completed security  id=4
//	│   └── tool_call.completed   id=5
//	├── stage.failed reasoning    id=6
//	│   └── tool_call.failed      id=7
//	└── pipeline.failed           id=8
func seedRunTree(t *testing.T, database *sql.DB) int64 {
	t.Helper()

	root, _ := LogEvent(database, nil, EventPipelineStarted, map[string]any{"run_id": "run-1", "command": "build a calculator"})
	speech, _ := LogEvent(database, &root, EventStageCompleted, map[string]any{"stage": "speech"})
	LogEvent(database, &speech, EventToolCallDone, map[string]any{"tool": "stt:passthrough"})
	security, _ := LogEvent(database, &root, EventStageCompleted, map[string]any{"stage": "security"})
	LogEvent(database, &security, EventToolCallDone, map[string]any{"tool": "sanitizer"})
	reasoning, _ := LogEvent(database, &root, EventStageFailed, map[string]any{"stage": "reasoning", "error": "Planning failed: quota"})
	LogEvent(database, &reasoning, EventToolCallFailed, map[string]any{"tool": "llm:gpt-4o-mini"})
	LogEvent(database, &root, EventPipelineFailed, map[string]any{"stage": "reasoning"})
	return root
}

func TestLatestRunRoot(t *testing.T) {
	database := testDB(t)
	seedRunTree(t, database)
	second, _ := LogEvent(database, nil, EventPipelineStarted, map[string]any{"run_id": "run-2"})

	got, err := LatestRunRoot(database)
	if err != nil {
		t.Fatal(err)
	}
	if got != second {
		t.Errorf("expected root id=%d, got %d", second, got)
	}
}

func TestLatestRunRoot_NoEvents(t *testing.T) {
	database := testDB(t)
	if _, err := LatestRunRoot(database); err == nil {
		t.Fatal("expected error for empty database")
	}
}

func TestQuerySubtree(t *testing.T) {
	database := testDB(t)
	root := seedRunTree(t, database)

	events, err := QuerySubtree(database, root)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 8 {
		t.Errorf("expected 8 events, got %d", len(events))
	}

	// Reasoning stage is id=6: itself plus one tool call.
	events, err = QuerySubtree(database, 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events in stage subtree, got %d", len(events))
	}
}

func TestBuildTree(t *testing.T) {
	database := testDB(t)
	rootID := seedRunTree(t, database)

	events, _ := QuerySubtree(database, rootID)
	root := BuildTree(events, rootID)
	if root == nil {
		t.Fatal("root is nil")
	}
	if root.EventType != EventPipelineStarted {
		t.Errorf("expected pipeline.started, got %s", root.EventType)
	}
	if len(root.Children) != 4 {
		t.Fatalf("expected 4 root children, got %d", len(root.Children))
	}
	for i := 0; i < 3; i++ {
		if len(root.Children[i].Children) != 1 {
			t.Errorf("stage %d: expected 1 tool call child, got %d", i, len(root.Children[i].Children))
		}
	}
	if root.Children[3].EventType != EventPipelineFailed {
		t.Errorf("expected last child pipeline.failed, got %s", root.Children[3].EventType)
	}

	if BuildTree(events, 999) != nil {
		t.Error("expected nil for unknown root")
	}
}
