// cmd/atm/console.go

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"atm/internal/display"
	"atm/internal/session"
)

const consoleHelp = `keys: digits 0-9 (e.g. "1111" or "70"), c=clear, x=cancel, e=enter
commands: n=new session, q=quit, ?=help`

// aliases 為終端機上的簡寫按鍵。
var aliases = map[string]string{
	"c": "clear",
	"x": "cancel",
	"e": "enter",
}

// consoleAction 為一行輸入中非按鍵的指令。
type consoleAction int

const (
	actionNone consoleAction = iota
	actionNewSession
	actionQuit
	actionHelp
)

// parseLine 把一行輸入拆成按鍵事件；數字串逐位拆開。
func parseLine(line string) ([]session.Event, consoleAction, error) {
	var events []session.Event
	for _, tok := range strings.Fields(strings.ToLower(line)) {
		switch tok {
		case "n", "new":
			return events, actionNewSession, nil
		case "q", "quit", "exit":
			return events, actionQuit, nil
		case "?", "h", "help":
			return events, actionHelp, nil
		}
		if name, ok := aliases[tok]; ok {
			tok = name
		}
		if ev, err := session.ParseKey(tok); err == nil {
			events = append(events, ev)
			continue
		}
		for _, r := range tok {
			ev, err := session.ParseKey(string(r))
			if err != nil {
				return nil, actionNone, fmt.Errorf("%w: %q", session.ErrUnknownKey, tok)
			}
			events = append(events, ev)
		}
	}
	return events, actionNone, nil
}

func newConsoleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Operate the ATM interactively from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.newMachine()
			if err != nil {
				return err
			}
			r := display.New(a.cfg.Display.Currency)
			return runConsole(cmd, m, r, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runConsole(cmd *cobra.Command, m *session.Machine, r display.Renderer, in io.Reader, out io.Writer) error {
	show := func() {
		fmt.Fprintf(out, "\n%s\n> ", r.Render(m.Snapshot()))
	}

	fmt.Fprintln(out, consoleHelp)
	show()

	sc := bufio.NewScanner(in)
	for sc.Scan() {
		events, action, err := parseLine(sc.Text())
		if err != nil {
			fmt.Fprintf(out, "%v\n%s\n> ", err, consoleHelp)
			continue
		}
		for _, ev := range events {
			m.Dispatch(cmd.Context(), ev)
			// 逐鍵等待，讓 PIN 驗證結果在下一個按鍵前生效
			m.Wait()
		}
		switch action {
		case actionQuit:
			return nil
		case actionNewSession:
			m.NewSession()
		case actionHelp:
			fmt.Fprintln(out, consoleHelp)
		}
		show()
	}
	if err := sc.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
