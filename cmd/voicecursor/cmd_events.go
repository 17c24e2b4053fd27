package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/stupiduntilnot/voicecursor/internal/config"
	"github.com/stupiduntilnot/voicecursor/internal/db"
)

const defaultAuditDB = "voicecursor.db"

type eventsFlags struct {
	dbPath    string
	runID     string
	eventID   int64
	maxDepth  int
	jsonOut   bool
	noPayload bool
}

func newEventsCmd() *cobra.Command {
	var f eventsFlags
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print the event tree of a pipeline run",
		Long: `Events reads the audit database and prints the event tree of the latest
run, of --run, or of the subtree under --id.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.dbPath == "" {
				cfg, err := config.LoadLocal()
				if err != nil {
					return err
				}
				f.dbPath = orDefault(cfg.AuditDBPath, defaultAuditDB)
			}
			return showEvents(cmd.OutOrStdout(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.dbPath, "db", "", "SQLite database path (default $VOICECURSOR_AUDIT_DB or ./voicecursor.db)")
	fl.StringVar(&f.runID, "run", "", "show the tree of a specific run ID")
	fl.Int64Var(&f.eventID, "id", 0, "show subtree of a specific event ID")
	fl.IntVarP(&f.maxDepth, "depth", "L", 0, "limit display depth (0 = unlimited)")
	fl.BoolVar(&f.jsonOut, "json", false, "output JSON format")
	fl.BoolVar(&f.noPayload, "no-payload", false, "hide payload details")
	cmd.MarkFlagsMutuallyExclusive("run", "id")
	return cmd
}

func showEvents(w io.Writer, f eventsFlags) error {
	database, err := db.OpenReadOnly(f.dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	rootID := f.eventID
	switch {
	case rootID != 0:
	case f.runID != "":
		if rootID, err = db.RunRoot(database, f.runID); err != nil {
			return err
		}
	default:
		if rootID, err = db.LatestRunRoot(database); err != nil {
			return err
		}
	}

	events, err := db.QuerySubtree(database, rootID)
	if err != nil {
		return fmt.Errorf("query subtree: %w", err)
	}
	root := db.BuildTree(events, rootID)
	if root == nil {
		return errors.New("root event not found")
	}

	if f.jsonOut {
		return printJSON(w, root, f.maxDepth, f.noPayload)
	}
	printTree(w, root, "", true, 1, f.maxDepth, f.noPayload)
	return nil
}

// printTree renders the event tree using box-drawing characters.
func printTree(w io.Writer, ev *db.Event, prefix string, isLast bool, depth, maxDepth int, noPayload bool) {
	connector := "├── "
	if isLast {
		connector = "└── "
	}
	line := formatEvent(ev, noPayload)
	if depth == 1 {
		fmt.Fprintln(w, line)
	} else {
		fmt.Fprintln(w, prefix+connector+line)
	}

	childPrefix := prefix
	if depth > 1 {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}

	if maxDepth > 0 && depth >= maxDepth {
		if len(ev.Children) > 0 {
			fmt.Fprintln(w, childPrefix+"└── [...]")
		}
		return
	}

	for i, child := range ev.Children {
		printTree(w, child, childPrefix, i == len(ev.Children)-1, depth+1, maxDepth, noPayload)
	}
}

// formatEvent formats a single event line: [id] timestamp  event_type  key=value ...
func formatEvent(ev *db.Event, noPayload bool) string {
	ts := time.Unix(ev.Timestamp, 0).UTC().Format("2006-01-02 15:04:05")
	line := fmt.Sprintf("[%d] %s  %s", ev.ID, ts, ev.EventType)

	if !noPayload && ev.Payload.Valid && ev.Payload.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(ev.Payload.String), &m); err == nil {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				if s, ok := m[k].(string); ok && s == "" {
					continue
				}
				line += fmt.Sprintf("  %s=%s", k, formatValue(m[k]))
			}
		}
	}
	return line
}

// formatValue converts a payload value to a display string, truncating long text.
func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if len(val) > 80 {
			return fmt.Sprintf("%q", val[:80]+"...")
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

type jsonEvent struct {
	ID        int64       `json:"id"`
	Timestamp int64       `json:"timestamp"`
	EventType string      `json:"event_type"`
	Payload   any         `json:"payload,omitempty"`
	Children  []jsonEvent `json:"children,omitempty"`
}

func toJSONEvent(ev *db.Event, depth, maxDepth int, noPayload bool) jsonEvent {
	je := jsonEvent{
		ID:        ev.ID,
		Timestamp: ev.Timestamp,
		EventType: ev.EventType,
	}
	if !noPayload && ev.Payload.Valid && ev.Payload.String != "" {
		var m map[string]any
		if err := json.Unmarshal([]byte(ev.Payload.String), &m); err == nil {
			je.Payload = m
		}
	}
	if maxDepth > 0 && depth >= maxDepth {
		return je
	}
	for _, child := range ev.Children {
		je.Children = append(je.Children, toJSONEvent(child, depth+1, maxDepth, noPayload))
	}
	return je
}

func printJSON(w io.Writer, root *db.Event, maxDepth int, noPayload bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toJSONEvent(root, 1, maxDepth, noPayload)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
