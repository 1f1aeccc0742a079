// Command lstorecli is a minimal line-oriented REPL over the lstore
// engine: one command per line, space-separated arguments, grounded on
// tinySQL's cmd/repl/main.go scan-a-line-dispatch-a-command shape
// (simplified here to lstore's fixed command set instead of full SQL).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tantalum-db/lstore/lstore"
)

var flagDB = flag.String("db", "./lstoredata", "database root directory")

func main() {
	flag.Parse()

	db, err := lstore.Open(*flagDB, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open error:", err)
		os.Exit(1)
	}

	sc := bufio.NewScanner(os.Stdin)
	interactive := false
	if fi, err := os.Stdin.Stat(); err == nil {
		interactive = (fi.Mode() & os.ModeCharDevice) != 0
	}

	if interactive {
		fmt.Println("lstore REPL. Type .help for commands, .quit to exit.")
	}

	for {
		if interactive {
			fmt.Print("lstore> ")
		}
		if !sc.Scan() {
			break
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !dispatch(db, line) {
			break
		}
	}

	if err := db.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close error:", err)
		os.Exit(1)
	}
}

// dispatch runs one command line and reports whether the REPL should
// keep reading (false on .quit).
func dispatch(db *lstore.Database, line string) bool {
	fields := strings.Fields(line)
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	switch cmd {
	case ".quit", ".exit":
		return false
	case ".help":
		printHelp()
	case "create":
		cmdCreate(db, args)
	case "insert":
		cmdInsert(db, args)
	case "select":
		cmdSelect(db, args)
	case "update":
		cmdUpdate(db, args)
	case "delete":
		cmdDelete(db, args)
	case "sum":
		cmdSum(db, args)
	case "stats":
		cmdStats(db, args)
	case "save":
		if err := db.Close(); err != nil {
			fmt.Println("ERR:", err)
		} else {
			fmt.Println("(ok)")
		}
	default:
		fmt.Println("ERR: unknown command:", cmd)
	}
	return true
}

func printHelp() {
	fmt.Println(`commands:
  create <table> <numColumns> <keyCol>
  insert <table> <v0> <v1> ... (use . for null)
  select <table> <col> <value>
  update <table> <rid> <v0> <v1> ... (use . to leave unchanged)
  delete <table> <rid>
  sum <table> <col> <lo> <hi>
  stats [table]
  save
  .quit`)
}

func cmdCreate(db *lstore.Database, args []string) {
	if len(args) != 3 {
		fmt.Println("ERR: usage: create <table> <numColumns> <keyCol>")
		return
	}
	numColumns, err1 := strconv.Atoi(args[1])
	keyCol, err2 := strconv.Atoi(args[2])
	if err1 != nil || err2 != nil {
		fmt.Println("ERR: numColumns and keyCol must be integers")
		return
	}
	if _, err := db.CreateTable(args[0], numColumns, keyCol); err != nil {
		fmt.Println("ERR:", err)
		return
	}
	fmt.Println("(ok)")
}

func cmdInsert(db *lstore.Database, args []string) {
	if len(args) < 2 {
		fmt.Println("ERR: usage: insert <table> <v0> <v1> ...")
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	values, err := parseValues(args[1:])
	if err != nil {
		fmt.Println("ERR:", err)
		return
	}
	rid, ok := h.InsertRID(values)
	if !ok {
		fmt.Println("ERR: insert failed (duplicate key or bad column count)")
		return
	}
	fmt.Println("(ok) rid =", rid)
}

func cmdSelect(db *lstore.Database, args []string) {
	if len(args) != 3 {
		fmt.Println("ERR: usage: select <table> <col> <value>")
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	col, err1 := strconv.Atoi(args[1])
	if err1 != nil {
		fmt.Println("ERR: col must be an integer")
		return
	}
	value, err2 := strconv.ParseInt(args[2], 10, 64)
	if err2 != nil {
		fmt.Println("ERR: value must be an integer")
		return
	}
	recs, ok := h.Select(value, col, nil)
	if !ok {
		fmt.Println("ERR: no index on column", col)
		return
	}
	for _, rec := range recs {
		printRecord(rec)
	}
	fmt.Println("(" + strconv.Itoa(len(recs)) + " rows)")
}

func cmdUpdate(db *lstore.Database, args []string) {
	if len(args) < 2 {
		fmt.Println("ERR: usage: update <table> <rid> <v0> <v1> ...")
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	rid, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("ERR: rid must be an integer")
		return
	}
	values, err := parseValues(args[2:])
	if err != nil {
		fmt.Println("ERR:", err)
		return
	}
	if !h.Update(rid, values) {
		fmt.Println("ERR: update failed")
		return
	}
	fmt.Println("(ok)")
}

func cmdDelete(db *lstore.Database, args []string) {
	if len(args) != 2 {
		fmt.Println("ERR: usage: delete <table> <rid>")
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	rid, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Println("ERR: rid must be an integer")
		return
	}
	if !h.Delete(rid) {
		fmt.Println("ERR: delete failed")
		return
	}
	fmt.Println("(ok)")
}

func cmdSum(db *lstore.Database, args []string) {
	if len(args) != 4 {
		fmt.Println("ERR: usage: sum <table> <col> <lo> <hi>")
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	col, err1 := strconv.Atoi(args[1])
	lo, err2 := strconv.ParseInt(args[2], 10, 64)
	hi, err3 := strconv.ParseInt(args[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		fmt.Println("ERR: col, lo, hi must be integers")
		return
	}
	total, ok := h.Sum(lo, hi, col)
	if !ok {
		fmt.Println("ERR: sum failed (no matching keys)")
		return
	}
	fmt.Println(total)
}

// cmdStats prints bufferpool stats, plus per-table stats if a table name
// is given.
func cmdStats(db *lstore.Database, args []string) {
	ps := db.PoolStats()
	fmt.Printf("pool: hits=%d misses=%d frames=%d/%d\n", ps.Hits, ps.Misses, ps.Frames, ps.Capacity)
	if len(args) == 0 {
		return
	}
	h, ok := db.GetTable(args[0])
	if !ok {
		fmt.Println("ERR: no such table:", args[0])
		return
	}
	ts, ok := h.Stats()
	if !ok {
		fmt.Println("ERR: stats failed")
		return
	}
	fmt.Printf("table %s: rows=%d merges=%d tail_chain_depth=%v\n", args[0], ts.RowCount, ts.MergeRuns, ts.TailChainDepth)
}

// parseValues parses a value list, treating "." as an explicit null.
func parseValues(args []string) ([]*int64, error) {
	values := make([]*int64, len(args))
	for i, a := range args {
		if a == "." {
			continue
		}
		v, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not an integer", a)
		}
		values[i] = &v
	}
	return values, nil
}

func printRecord(rec lstore.Record) {
	parts := make([]string, 0, len(rec.Columns)+1)
	parts = append(parts, fmt.Sprintf("rid=%d", rec.RID))
	for i, v := range rec.Columns {
		if v == nil {
			parts = append(parts, fmt.Sprintf("c%d=NULL", i))
			continue
		}
		parts = append(parts, fmt.Sprintf("c%d=%d", i, *v))
	}
	fmt.Println(strings.Join(parts, " "))
}
