package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/conjureai/conjure/backend/history"
	"github.com/conjureai/conjure/backend/model"
	"github.com/conjureai/conjure/backend/project"
	"github.com/conjureai/conjure/backend/tool"
	"github.com/conjureai/conjure/backend/toolcall"
)

// The fix loop feeds a failing check back to the model, executes the fix
// and re-verifies. Shell commands need a real directory, hence the OS
// filesystem here.
func TestRunAutoVerifyFixLoop(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fs := afero.NewOsFs()

	client := &scriptedClient{t: t, responses: []*model.ChatResponse{
		toolTurn(toolcall.ToolCall{Tool: "write_file", Parameters: map[string]any{
			"path": "a.txt", "content": "x",
		}}),
		textTurn("nudged"),
		textTurn("The task is complete."),
		// fix turn after the failing check
		toolTurn(toolcall.ToolCall{Tool: "write_file", Parameters: map[string]any{
			"path": "b.txt", "content": "y",
		}}),
	}}

	cfg := testAgentConfig()
	cfg.AutoVerify = true
	cfg.VerifyCommands = []string{"test -f b.txt"}
	cfg.MaxFixAttempts = 3

	store, err := history.NewStore(fs, filepath.Join(root, ".state"))
	if err != nil {
		t.Fatal(err)
	}
	journal := history.NewJournal(fs, store)
	executor := tool.NewExecutor(root, tool.WithFs(fs))

	var verifications [][]CheckResult
	a := New(cfg, client, executor, journal, WithCallbacks(Callbacks{
		OnVerification: func(results []CheckResult) {
			round := append([]CheckResult(nil), results...)
			verifications = append(verifications, round)
		},
	}))

	result := a.Run(context.Background(), "make it pass", &project.Context{Root: root})

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if !strings.Contains(result.FinalResponse, "Verification passed") {
		t.Errorf("final response = %q", result.FinalResponse)
	}
	if len(verifications) != 2 {
		t.Fatalf("verification rounds = %d, want 2", len(verifications))
	}
	if verifications[0][0].Passed {
		t.Error("first round should have failed")
	}
	if !verifications[1][0].Passed {
		t.Error("second round should have passed")
	}
}

// A fix on the last allowed attempt is still re-checked, so a repaired
// workspace never reports a verification failure.
func TestRunAutoVerifyLastAttemptIsRechecked(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	fs := afero.NewOsFs()

	client := &scriptedClient{t: t, responses: []*model.ChatResponse{
		toolTurn(toolcall.ToolCall{Tool: "write_file", Parameters: map[string]any{
			"path": "a.txt", "content": "x",
		}}),
		textTurn("nudged"),
		textTurn("The task is complete."),
		// the only fix turn: creates the file the check wants
		toolTurn(toolcall.ToolCall{Tool: "write_file", Parameters: map[string]any{
			"path": "b.txt", "content": "y",
		}}),
	}}

	cfg := testAgentConfig()
	cfg.AutoVerify = true
	cfg.VerifyCommands = []string{"test -f b.txt"}
	cfg.MaxFixAttempts = 1

	store, err := history.NewStore(fs, filepath.Join(root, ".state"))
	if err != nil {
		t.Fatal(err)
	}
	journal := history.NewJournal(fs, store)
	executor := tool.NewExecutor(root, tool.WithFs(fs))

	var verifications [][]CheckResult
	a := New(cfg, client, executor, journal, WithCallbacks(Callbacks{
		OnVerification: func(results []CheckResult) {
			round := append([]CheckResult(nil), results...)
			verifications = append(verifications, round)
		},
	}))

	result := a.Run(context.Background(), "make it pass", &project.Context{Root: root})

	if !result.Success {
		t.Fatalf("result = %+v", result)
	}
	if exists, _ := afero.Exists(fs, filepath.Join(root, "b.txt")); !exists {
		t.Fatal("fix turn should have created b.txt")
	}
	if strings.Contains(result.FinalResponse, "did not pass") {
		t.Errorf("final response reports failure after a successful fix: %q", result.FinalResponse)
	}
	if !strings.Contains(result.FinalResponse, "Verification passed") {
		t.Errorf("final response = %q", result.FinalResponse)
	}
	if len(verifications) != 2 {
		t.Fatalf("verification rounds = %d, want 2", len(verifications))
	}
	if !verifications[1][0].Passed {
		t.Error("re-check after the final fix should have passed")
	}
}
