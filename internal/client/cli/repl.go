package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	List(ctx context.Context, collection string) error
	AddTrip(ctx context.Context) error
	AddEarning(ctx context.Context) error
	AddExpense(ctx context.Context) error
	AddNote(ctx context.Context) error
	AddSchedule(ctx context.Context) error
	Delete(ctx context.Context, collection, id string) error
	Hotspots(ctx context.Context, days string) error
	Import(ctx context.Context, ref string) error
	Settings(ctx context.Context) error
	Set(ctx context.Context, key, value string) error
	Summary(ctx context.Context) error
}

const (
	helpLoggedOut = "Available commands: login, status, settings, set, exit"
	helpLoggedIn  = "Available commands: list, addtrip, addearning, addexpense, addnote, addschedule, " +
		"delete, hotspots, import, summary, sync, status, settings, set, logout, exit"
)

// runREPL reads commands from scanner until EOF or "exit".
//
// Commands
//
//	help                        show available commands
//	login | logout              start or end the session (access token)
//	sync                        run a sync cycle now
//	status                      session, connectivity and last sync
//	list <collection>           records of a collection, newest first
//	addtrip | addearning | addexpense | addnote | addschedule
//	delete <collection> <id>    soft-delete a record
//	hotspots [days]             recommended pickup cells
//	import <path|s3://b/k>      import ride history
//	settings                    show settings
//	set <key> <value>           change one setting
//	summary                     today and last 7 days
//	exit | quit                 leave the program
//
// Errors returned by handlers are printed and the loop goes on. Commands and
// the prompts they open read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("taxi %s> ", statusFn()))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && (line == "" || !errors.Is(readErr, io.EOF)) {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "status":
			err = a.Status(ctx)

		case "l", "list":
			if len(args) != 1 {
				printlnFn("Usage: list <collection>")
				continue
			}
			err = a.List(ctx, args[0])

		case "addtrip":
			err = a.AddTrip(ctx)

		case "addearning":
			err = a.AddEarning(ctx)

		case "addexpense":
			err = a.AddExpense(ctx)

		case "addnote":
			err = a.AddNote(ctx)

		case "addschedule":
			err = a.AddSchedule(ctx)

		case "delete":
			if len(args) != 2 {
				printlnFn("Usage: delete <collection> <id>")
				continue
			}
			err = a.Delete(ctx, args[0], args[1])

		case "hotspots":
			days := ""
			if len(args) > 0 {
				days = args[0]
			}
			err = a.Hotspots(ctx, days)

		case "import":
			if len(args) != 1 {
				printlnFn("Usage: import <path|s3://bucket/key>")
				continue
			}
			err = a.Import(ctx, args[0])

		case "settings":
			err = a.Settings(ctx)

		case "set":
			if len(args) < 2 {
				printlnFn("Usage: set <key> <value>")
				continue
			}
			err = a.Set(ctx, args[0], strings.Join(args[1:], " "))

		case "summary":
			err = a.Summary(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
