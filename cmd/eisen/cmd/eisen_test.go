package cmd_test

import (
	"strings"
	"testing"
	"time"

	"eisen/internal/task"
	"eisen/internal/testutil"
)

func TestHelpListsSubcommands(t *testing.T) {
	cli := testutil.NewCLITest(t)
	out := cli.MustExecute("--help")

	for _, sub := range []string{"list", "add", "move", "done", "rm", "breakdown", "stats", "status", "serve", "token"} {
		testutil.AssertContains(t, out, sub)
	}
}

func TestUnknownCommandFails(t *testing.T) {
	cli := testutil.NewCLITest(t)
	_, stderr := cli.ExecuteAndFail("frobnicate")
	testutil.AssertContains(t, stderr, "frobnicate")
}

func TestListEmptyBoard(t *testing.T) {
	cli := testutil.NewCLITest(t)
	out := cli.MustExecute("list")
	testutil.AssertContains(t, out, "No tasks.")
}

func TestAddAndList(t *testing.T) {
	cli := testutil.NewCLITest(t)

	cli.MustExecute("add", "write", "the", "report")
	if cli.Backend().TaskCount() != 1 {
		t.Fatal("expected task created on the backend")
	}

	out := cli.MustExecute("list")
	testutil.AssertContains(t, out, "write the report")
	testutil.AssertContains(t, out, task.StatusUncategorized.Label())
}

func TestAddRejectsBlankTitle(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.ExecuteAndFail("add", "   ")
	if cli.Backend().TaskCount() != 0 {
		t.Error("invalid title must not reach the backend")
	}
}

func TestMoveTask(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "urgent thing"))

	cli.MustExecute("move", "t1", "urgent_important")
	out := cli.MustExecute("list")
	testutil.AssertContains(t, out, task.StatusUrgentImportant.Label())
}

func TestMoveRejectsUnknownStatus(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "x"))

	_, stderr := cli.ExecuteAndFail("move", "t1", "someday")
	testutil.AssertContains(t, stderr, "someday")
	// The error names the valid statuses.
	testutil.AssertContains(t, stderr, "urgent_important")
}

func TestMoveRejectsUnknownTask(t *testing.T) {
	cli := testutil.NewCLITest(t)
	_, stderr := cli.ExecuteAndFail("move", "ghost", "urgent_important")
	testutil.AssertContains(t, stderr, "ghost")
}

func TestDoneMovesTaskToCompleted(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "finish me"))

	cli.MustExecute("done", "t1")
	out := cli.MustExecute("list")
	testutil.AssertContains(t, out, task.StatusCompleted.Label())
}

func TestRemoveTask(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "delete me"))

	cli.MustExecute("rm", "--yes", "t1")
	if cli.Backend().TaskCount() != 0 {
		t.Error("expected task removed from the backend")
	}
	out := cli.MustExecute("list")
	testutil.AssertNotContains(t, out, "delete me")
}

func TestRemoveTaskPromptsForConfirmation(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "precious"))

	out := cli.MustExecuteWithInput("n\n", "rm", "t1")
	testutil.AssertContains(t, out, "Cancelled.")
	if cli.Backend().TaskCount() != 1 {
		t.Error("declined delete must not touch the backend")
	}

	cli.MustExecuteWithInput("y\n", "rm", "t1")
	if cli.Backend().TaskCount() != 0 {
		t.Error("confirmed delete must remove the task")
	}
}

func TestBreakdownPrintsSubtasks(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("p1", "launch product"))

	out := cli.MustExecute("breakdown", "p1")
	testutil.AssertContains(t, out, "Plan: launch product")
	testutil.AssertContains(t, out, "Execute: launch product")
	testutil.AssertContains(t, out, "Review: launch product")
}

func TestStats(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Backend().Seed(seedTask("t1", "counted"))

	out := cli.MustExecute("stats")
	testutil.AssertContains(t, out, "Week")
	testutil.AssertContains(t, out, "created:")
}

func TestStatusConnected(t *testing.T) {
	cli := testutil.NewCLITest(t)
	out := cli.MustExecute("status")
	testutil.AssertContains(t, out, "connected")
}

func TestStatusOfflineFailsWithSuggestion(t *testing.T) {
	cli := testutil.NewCLITest(t)
	cli.Disconnect()

	stdout, stderr := cli.ExecuteAndFail("status")
	testutil.AssertContains(t, stdout, "disconnected")
	testutil.AssertContains(t, stderr, "Suggestion")
}

func seedTask(id, title string) task.Task {
	created := time.Now().Add(-time.Hour)
	return task.Task{
		ID:        id,
		Title:     title,
		Status:    task.StatusUncategorized,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestVersionFlag(t *testing.T) {
	cli := testutil.NewCLITest(t)
	out := cli.MustExecute("--version")
	if strings.TrimSpace(out) == "" {
		t.Error("expected version output")
	}
}
