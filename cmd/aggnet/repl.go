package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ergochat/readline"

	"github.com/zzhang154/Decentralized-Aggregation/names"
	"github.com/zzhang154/Decentralized-Aggregation/utils"
)

var ErrBadCommand = errors.New("bad command; try help")

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("nodes"),
	readline.PcItem("sum"),
	readline.PcItem("cache"),
	readline.PcItem("pit"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

type REPL struct {
	cluster *Cluster
	rl      *readline.Instance
	timeout time.Duration
}

func (repl *REPL) Open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "Σ ",
		HistoryFile:     ".aggnet_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	return nil
}

// REPL reads and runs one command; io.EOF means "exit".
func (repl *REPL) REPL() error {
	line, err := repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return nil
	}
	if err != nil {
		return err
	}
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}
	args := strings.Fields(line)
	cmd, args := args[0], args[1:]

	switch cmd {
	case "help":
		fmt.Println("nodes                    list topology nodes")
		fmt.Println("sum <node> <id,id,...>   query the sum at a node")
		fmt.Println("cache <node>             show a node's value cache")
		fmt.Println("pit <node>               show a node's pending requests")
		fmt.Println("exit | quit              leave")
	case "nodes":
		repl.commandNodes()
	case "sum":
		err = repl.commandSum(args)
	case "cache":
		err = repl.commandCache(args)
	case "pit":
		err = repl.commandPit(args)
	case "exit", "quit":
		return io.EOF
	default:
		err = ErrBadCommand
	}
	if err != nil && err != io.EOF {
		fmt.Println("error:", err)
		err = nil
	}
	return err
}

func (repl *REPL) commandNodes() {
	for _, name := range repl.cluster.order {
		n := repl.cluster.nodes[name]
		neighbors := utils.SortedKeys(n.faces)
		fmt.Printf("%s\tlinks: %s\n", name, strings.Join(neighbors, " "))
	}
}

func parseIDList(s string) (names.IDSet, error) {
	ids := names.IDSet{}
	for _, part := range strings.Split(s, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("bad source id %q", part)
		}
		ids.Add(id)
	}
	return ids, nil
}

func (repl *REPL) commandSum(args []string) error {
	if len(args) != 2 {
		return ErrBadCommand
	}
	ids, err := parseIDList(args[1])
	if err != nil {
		return err
	}
	started := time.Now()
	sum, err := repl.cluster.Sum(args[0], ids, repl.timeout)
	if err != nil {
		return err
	}
	fmt.Printf("sum%s = %d\t(%s)\n", ids, sum, time.Since(started).Round(time.Microsecond))
	return nil
}

func (repl *REPL) commandCache(args []string) error {
	if len(args) != 1 {
		return ErrBadCommand
	}
	snap, err := repl.cluster.CacheOf(args[0])
	if err != nil {
		return err
	}
	for _, id := range utils.SortedKeys(snap) {
		fmt.Printf("%d\t%d\n", id, snap[id])
	}
	fmt.Printf("%d value(s)\n", len(snap))
	return nil
}

func (repl *REPL) commandPit(args []string) error {
	if len(args) != 1 {
		return ErrBadCommand
	}
	pending, err := repl.cluster.PendingOf(args[0])
	if err != nil {
		return err
	}
	for _, name := range pending {
		fmt.Println(name)
	}
	fmt.Printf("%d pending\n", len(pending))
	return nil
}
