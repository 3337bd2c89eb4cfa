package admin

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnknownCommand = errors.New("unknown command")
var ErrUsage = errors.New("usage")
var ErrControlDisabled = errors.New("control disabled")

// Gate reports whether a button is currently disabled.
type Gate interface {
	Disabled(id string) bool
}

// Console turns operator lines ("add k", "kill", "reset") into dispatcher calls.
type Console struct {
	d      *Dispatcher
	gate   Gate
	status func() string
}

func NewConsole(d *Dispatcher, gate Gate) *Console {
	return &Console{d: d, gate: gate}
}

// WithStatus adds a "status" command that prints fn's output.
func (c *Console) WithStatus(fn func() string) *Console {
	c.status = fn
	return c
}

const consoleHelp = `commands:
  add <k|l|x>       add a vote
  remove <k|l|x>    remove a vote
  force <k|l|x>     force execute
  pause | resume | reset
  key <key> [group] send a raw keypress
  cooldowns         request cooldown state
  status | help | quit
  %s
`

func (c *Console) Help() string {
	names := make([]string, len(Controls))
	for i, ctl := range Controls {
		names[i] = ctl.Name
	}
	return fmt.Sprintf(consoleHelp, strings.Join(names, " | "))
}

// Exec runs one command line. Blank lines are ignored.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "add", "remove", "force":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <k|l|x>", ErrUsage, cmd)
		}
		switch cmd {
		case "add":
			c.d.AddVote(args[0])
		case "remove":
			c.d.RemoveVote(args[0])
		default:
			c.d.ForceExecute(args[0])
		}
	case "pause":
		c.d.PauseTimer()
	case "resume":
		c.d.ResumeTimer()
	case "reset":
		c.d.ResetTimer()
	case "cooldowns":
		c.d.RequestCooldowns()
	case "key":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("%w: key <key> [group]", ErrUsage)
		}
		group := ""
		if len(args) == 2 {
			group = args[1]
		}
		c.d.SendKeypress(args[0], group)
	default:
		ctl, ok := LookupControl(cmd)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
		}
		if c.d.cfg.Cooldowns && c.gate != nil && c.gate.Disabled(ctl.Button) {
			return fmt.Errorf("%w: %s is cooling down", ErrControlDisabled, ctl.Name)
		}
		c.d.SendKeypress(ctl.Key, ctl.Group)
	}
	return nil
}

// Run reads lines from r until EOF or ctx ends, reporting errors to w.
func (c *Console) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			return err
		case line := <-lines:
			switch strings.TrimSpace(line) {
			case "help", "?":
				fmt.Fprint(w, c.Help())
				continue
			case "quit", "exit":
				return nil
			case "status":
				if c.status != nil {
					fmt.Fprint(w, c.status())
					continue
				}
			}
			if err := c.Exec(line); err != nil {
				fmt.Fprintln(w, err)
			}
		}
	}
}
