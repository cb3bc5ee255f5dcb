package sqlview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/olekukonko/tablewriter"
)

// Shell is a psql style prompt over a Store.
type Shell struct {
	store Store
	out   io.Writer
}

func NewShell(store Store, out io.Writer) *Shell {
	return &Shell{store: store, out: out}
}

func (s *Shell) newTable(header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(s.out)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	return table
}

func (s *Shell) doSelect(ctx context.Context, query string) error {
	if !IsReadOnlyStatement(query) {
		return ErrNotReadOnly
	}

	results, err := s.store.RunStatement(ctx, query)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(s.out, "(no results)")
		return nil
	}

	table := s.newTable(results[0].Columns())

	rows := [][]string{}
	for _, result := range results {
		row := []string{}
		for _, v := range result.Values() {
			row = append(row, formatValue(v))
		}
		rows = append(rows, row)
	}

	table.AppendBulk(rows)
	table.Render()

	if len(rows) == 1 {
		fmt.Fprintln(s.out, "(1 result)")
	} else {
		fmt.Fprintf(s.out, "(%d results)\n", len(rows))
	}

	return nil
}

func (s *Shell) describeTable(ctx context.Context, name string) error {
	// psql behavior is to display all if no name is specified.
	if name == "" {
		return s.describeTables(ctx)
	}

	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, t := range tables {
		if t == name {
			found = true
		}
	}

	if !found {
		fmt.Fprintf(s.out, "Did not find any relation named \"%s\".\n", name)
		return nil
	}

	columns, err := s.store.ListColumns(ctx, name)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.out, "Table \"%s\"\n", name)

	table := s.newTable([]string{"Column", "Type", "Nullable", "Default", "Primary key"})
	rows := [][]string{}
	for _, c := range columns {
		nullable := ""
		if c.NotNull != 0 {
			nullable = "not null"
		}
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		pk := ""
		if c.PK > 0 {
			pk = "yes"
		}
		rows = append(rows, []string{c.Name, strings.ToLower(c.Type), nullable, def, pk})
	}

	table.AppendBulk(rows)
	table.Render()

	indexes, err := s.store.ListIndexes(ctx, name)
	if err != nil {
		return err
	}

	if len(indexes) > 0 {
		fmt.Fprintln(s.out, "Indexes:")
	}

	for _, index := range indexes {
		attributes := []string{}
		if index.PrimaryKey() {
			attributes = append(attributes, "PRIMARY KEY")
		} else if index.Unique != 0 {
			attributes = append(attributes, "UNIQUE")
		}
		if index.Partial != 0 {
			attributes = append(attributes, "PARTIAL")
		}

		if len(attributes) == 0 {
			fmt.Fprintf(s.out, "\t\"%s\"\n", index.Name)
			continue
		}
		fmt.Fprintf(s.out, "\t\"%s\" %s\n", index.Name, strings.Join(attributes, ", "))
	}

	fmt.Fprintln(s.out, "")
	return nil
}

func (s *Shell) describeTables(ctx context.Context) error {
	tables, err := s.store.ListTables(ctx)
	if err != nil {
		return err
	}

	if len(tables) == 0 {
		fmt.Fprintln(s.out, "Did not find any relations.")
		return nil
	}

	fmt.Fprintln(s.out, "List of relations")

	table := s.newTable([]string{"Name", "Type"})
	rows := [][]string{}
	for _, t := range tables {
		rows = append(rows, []string{t, "table"})
	}

	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintln(s.out, "")
	return nil
}

// Exec runs a single line of input and reports whether the shell should
// exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if trimmed == "quit" || trimmed == "exit" || trimmed == "\\q" {
		return true
	}

	var err error
	switch {
	case trimmed == "\\dt":
		err = s.describeTables(ctx)
	case strings.HasPrefix(trimmed, "\\d"):
		err = s.describeTable(ctx, strings.TrimSpace(trimmed[len("\\d"):]))
	default:
		err = s.doSelect(ctx, trimmed)
	}

	if err != nil {
		fmt.Fprintln(s.out, "Error:", err)
	}

	return false
}

// RunRepl reads lines from the terminal until the user quits.
func RunRepl(ctx context.Context, store Store, historyFile string) error {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "sqlview> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer l.Close()

	shell := NewShell(store, l.Stdout())

	fmt.Fprintln(l.Stdout(), "Welcome to sqlview.")
	for {
		line, err := l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return nil
			}
			continue
		} else if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if shell.Exec(ctx, line) {
			return nil
		}
	}
}
