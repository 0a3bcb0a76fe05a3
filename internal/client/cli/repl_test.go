package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls []string
	err   error
}

func (f *fakeExec) record(call string) error {
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Sync(context.Context) error   { return f.record("sync") }
func (f *fakeExec) Status(context.Context) error { return f.record("status") }
func (f *fakeExec) List(_ context.Context, c string) error {
	return f.record("list " + c)
}
func (f *fakeExec) AddTrip(context.Context) error     { return f.record("addtrip") }
func (f *fakeExec) AddEarning(context.Context) error  { return f.record("addearning") }
func (f *fakeExec) AddExpense(context.Context) error  { return f.record("addexpense") }
func (f *fakeExec) AddNote(context.Context) error     { return f.record("addnote") }
func (f *fakeExec) AddSchedule(context.Context) error { return f.record("addschedule") }
func (f *fakeExec) Delete(_ context.Context, c, id string) error {
	return f.record("delete " + c + " " + id)
}
func (f *fakeExec) Hotspots(_ context.Context, days string) error {
	return f.record("hotspots " + days)
}
func (f *fakeExec) Import(_ context.Context, ref string) error {
	return f.record("import " + ref)
}
func (f *fakeExec) Settings(context.Context) error { return f.record("settings") }
func (f *fakeExec) Set(_ context.Context, k, v string) error {
	return f.record("set " + k + "=" + v)
}
func (f *fakeExec) Summary(context.Context) error { return f.record("summary") }

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	capturePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"login",
		"",
		"list trips",
		"l notes",
		"addtrip",
		"addearning",
		"addexpense",
		"addnote",
		"addschedule",
		"delete trips id-1",
		"hotspots",
		"hotspots 14",
		"import rides.json",
		"settings",
		"set heatmapGoal economy",
		"summary",
		"sync",
		"status",
		"logout",
		"exit",
		"sync",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(offline)" }, bufio.NewReader(input))

	assert.Equal(t, []string{
		"login",
		"list trips",
		"list notes",
		"addtrip",
		"addearning",
		"addexpense",
		"addnote",
		"addschedule",
		"delete trips id-1",
		"hotspots ",
		"hotspots 14",
		"import rides.json",
		"settings",
		"set heatmapGoal=economy",
		"summary",
		"sync",
		"status",
		"logout",
	}, exec.calls)
}

func TestRunREPL_UsageAndUnknown(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.NewReader("list\ndelete trips\nimport\nset mapPrecision\nfoobar\nquit\n")
	exec := &fakeExec{loggedIn: true}

	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(input))

	assert.Empty(t, exec.calls)
	out := strings.Join(*lines, "\n")
	assert.Contains(t, out, "Usage: list <collection>")
	assert.Contains(t, out, "Usage: delete <collection> <id>")
	assert.Contains(t, out, "Usage: import <path|s3://bucket/key>")
	assert.Contains(t, out, "Usage: set <key> <value>")
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "Bye!")
}

func TestRunREPL_HelpDependsOnSession(t *testing.T) {
	lines := capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("help\nlogin\nhelp\n")))

	require.Contains(t, *lines, helpLoggedOut)
	require.Contains(t, *lines, helpLoggedIn)
}

func TestRunREPL_PrintsHandlerErrorsAndContinues(t *testing.T) {
	lines := capturePrintln(t)

	exec := &fakeExec{loggedIn: true, err: errors.New("boom")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("sync\nsummary\n")))

	assert.Equal(t, []string{"sync", "summary"}, exec.calls)
	assert.Contains(t, *lines, "Error: boom")
}

func TestRunREPL_SetJoinsValueWords(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("set heatmapGoal  order now\n")))

	assert.Equal(t, []string{"set heatmapGoal=order now"}, exec.calls)
}
