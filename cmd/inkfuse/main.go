// Command inkfuse is the engine's interactive runner: a small REPL
// over a loaded Relation, used to drive canned query plans through the
// execution engine and print their results (spec §6 "CLI surface
// (runner collaborator, out of core)"). It intentionally has no SQL
// parser — that is an explicit Non-goal — so "run" dispatches to a
// small built-in registry of query builders instead of arbitrary text.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/inkfuse/inkfuse/config"
	"github.com/inkfuse/inkfuse/exec"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/printsink"
	"github.com/inkfuse/inkfuse/relalg"
	"github.com/inkfuse/inkfuse/subop"
)

var (
	configPath = flag.String("config", "", "path to a YAML engine configuration file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("inkfuse: %v", err)
	}

	r := &repl{cfg: cfg, logger: log.New(os.Stderr, "inkfuse: ", 0)}
	r.run()
}

type repl struct {
	cfg      config.Engine
	logger   *log.Logger
	relation *relalg.Relation
	relName  string
}

func (r *repl) run() {
	fmt.Println("inkfuse interactive runner. Type 'help' for commands.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "help":
			r.help()
		case "exit", "quit":
			return
		case "threads":
			r.setThreads(fields)
		case "mode":
			r.setMode(fields)
		case "load":
			r.load(fields)
		case "show":
			r.show()
		case "run":
			r.runQuery(fields)
		default:
			fmt.Printf("unknown command %q; type 'help'\n", fields[0])
		}
	}
}

func (r *repl) help() {
	fmt.Println(`commands:
  load sf<X>          load the scale-factor-X demo relation (e.g. "load sf1")
  show                print the currently loaded relation's schema
  threads K            set the worker thread count
  mode {Compiled|Interpreted|Hybrid}   pin or restore the execution mode
  run qN [mode M]      run canned query qN, optionally overriding mode
  help                 print this message
  exit                 quit`)
}

func (r *repl) setThreads(fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: threads K")
		return
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n <= 0 {
		fmt.Println("threads: K must be a positive integer")
		return
	}
	r.cfg.NumThreads = n
}

func (r *repl) setMode(fields []string) {
	if len(fields) != 2 {
		fmt.Println("usage: mode {Compiled|Interpreted|Hybrid}")
		return
	}
	switch fields[1] {
	case "Compiled":
		r.cfg.ForceFused, r.cfg.ForceInterpreted = true, false
	case "Interpreted":
		r.cfg.ForceFused, r.cfg.ForceInterpreted = false, true
	case "Hybrid":
		r.cfg.ForceFused, r.cfg.ForceInterpreted = false, false
	default:
		fmt.Println("mode: expected Compiled, Interpreted, or Hybrid")
	}
}

// load builds an in-memory demo relation sized by the requested scale
// factor; there is no dataset loader wired in here (the benchmark
// corpus this refers to is out of core), so "sf<X>" just sizes a
// single-column relation of X*1000 sequential integers.
func (r *repl) load(fields []string) {
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "sf") {
		fmt.Println("usage: load sf<X>")
		return
	}
	sf, err := strconv.Atoi(strings.TrimPrefix(fields[1], "sf"))
	if err != nil || sf <= 0 {
		fmt.Println("load: X must be a positive integer")
		return
	}
	rel := relalg.NewRelation(sf * 1000)
	col := rel.AddColumn("id", ir.I8)
	for i := 0; i < rel.NumRows; i++ {
		v := int64(i)
		col.Append(unsafe.Pointer(&v))
	}
	r.relation = rel
	r.relName = fields[1]
	fmt.Printf("loaded %s: %d rows, columns: %s\n", r.relName, rel.NumRows, strings.Join(rel.ColumnNames(), ", "))
}

func (r *repl) show() {
	if r.relation == nil {
		fmt.Println("no relation loaded; use 'load sf<X>' first")
		return
	}
	fmt.Printf("%s: %d rows\n", r.relName, r.relation.NumRows)
	for _, name := range r.relation.ColumnNames() {
		fmt.Printf("  %s %s\n", name, r.relation.Columns[name].Type())
	}
}

// runQuery dispatches to the one built-in query this REPL ships with:
// "q1" scans every column of the loaded relation and prints it. A real
// deployment would register more entries here; adding a query language
// on top is explicitly out of scope (spec §1 Non-goals).
func (r *repl) runQuery(fields []string) {
	if len(fields) < 2 {
		fmt.Println("usage: run qN [mode M]")
		return
	}
	if r.relation == nil {
		fmt.Println("no relation loaded; use 'load sf<X>' first")
		return
	}
	cfg := r.cfg
	if len(fields) == 4 && fields[2] == "mode" {
		switch fields[3] {
		case "Compiled":
			cfg.ForceFused, cfg.ForceInterpreted = true, false
		case "Interpreted":
			cfg.ForceFused, cfg.ForceInterpreted = false, true
		case "Hybrid":
			cfg.ForceFused, cfg.ForceInterpreted = false, false
		}
	}

	switch fields[1] {
	case "q1":
		r.runScanAndPrint(cfg)
	default:
		fmt.Printf("unknown query %q; only q1 is registered\n", fields[1])
	}
}

func (r *repl) runScanAndPrint(cfg config.Engine) {
	names := r.relation.ColumnNames()
	scan := &relalg.TableScan{Relation: r.relation, ColumnNames: names, Tag: "q1"}

	dag := subop.NewPipelineDAG()
	ids, err := scan.Decay(dag)
	if err != nil {
		r.logger.Printf("decay: %v", err)
		return
	}

	sink := &printsink.TableWriter{Out: os.Stdout}
	print := &relalg.Print{
		Children:    []relalg.Op{passthroughOp{ids}},
		Tag:         "q1",
		OutputIUs:   ids,
		ColumnNames: names,
		Into:        sink,
	}
	if _, err := print.Decay(dag); err != nil {
		r.logger.Printf("decay: %v", err)
		return
	}

	e := &exec.Executor{Config: cfg}
	if err := e.Run(dag); err != nil {
		r.logger.Printf("run: %v", err)
		return
	}
	sink.Flush()
}

// passthroughOp is Print's required child list; the scan has already
// decayed into the shared dag above, so this just reports the IUs it
// produced back to Print without adding any further suboperators.
type passthroughOp struct {
	ids []*iu.IU
}

func (p passthroughOp) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) { return p.ids, nil }
