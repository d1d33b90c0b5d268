// Command benchmark_parser turns `go test -bench` output into a markdown
// table. Pipe the benchmark run through it:
//
//	go test -bench=. -benchmem ./roots/... | go run scripts/benchmark_parser.go
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents one parsed benchmark line.
type BenchmarkResult struct {
	Name        string
	Package     string
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
)

// benchLine matches: BenchmarkName-8  123456  987.6 ns/op  64 B/op  2 allocs/op
var benchLine = regexp.MustCompile(
	`^(Benchmark\S+?)(?:-\d+)?\s+(\d+)\s+([\d.]+) ns/op(?:\s+(\d+) B/op)?(?:\s+(\d+) allocs/op)?`,
)

// pkgLine matches the "pkg:" header go test prints per package.
var pkgLine = regexp.MustCompile(`^pkg:\s+(\S+)`)

func main() {
	flag.Parse()

	in := os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	var results []BenchmarkResult
	pkg := ""
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if m := pkgLine.FindStringSubmatch(line); m != nil {
			pkg = m[1]
			continue
		}
		m := benchLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		r := BenchmarkResult{
			Name:    strings.TrimPrefix(m[1], "Benchmark"),
			Package: pkg,
		}
		r.Iterations, _ = strconv.Atoi(m[2])
		r.NsPerOp, _ = strconv.ParseFloat(m[3], 64)
		if m[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(m[4], 10, 64)
		}
		if m[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(m[5], 10, 64)
		}
		results = append(results, r)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stderr, "No benchmark lines found")
		os.Exit(1)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Package != results[j].Package {
			return results[i].Package < results[j].Package
		}
		return results[i].Name < results[j].Name
	})

	out := os.Stdout
	if *outputFile != "" {
		f, err := os.Create(*outputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	fmt.Fprintf(out, "# Benchmark Results\n\n")
	fmt.Fprintf(out, "Generated: %s\n\n", time.Now().Format(time.RFC1123))
	fmt.Fprintln(out, "| Package | Benchmark | Iterations | ns/op | B/op | allocs/op |")
	fmt.Fprintln(out, "|---------|-----------|-----------:|------:|-----:|----------:|")
	for _, r := range results {
		fmt.Fprintf(out, "| %s | %s | %d | %s | %d | %d |\n",
			shortPkg(r.Package), r.Name, r.Iterations, formatNs(r.NsPerOp),
			r.BytesPerOp, r.AllocsPerOp)
	}
}

// shortPkg trims the module prefix so the table stays narrow.
func shortPkg(pkg string) string {
	const prefix = "github.com/gcforge/handlekit/"
	if pkg == "" {
		return "-"
	}
	return strings.TrimPrefix(pkg, prefix)
}

// formatNs renders a duration in the most readable unit.
func formatNs(ns float64) string {
	switch {
	case ns >= 1e9:
		return fmt.Sprintf("%.2fs", ns/1e9)
	case ns >= 1e6:
		return fmt.Sprintf("%.2fms", ns/1e6)
	case ns >= 1e3:
		return fmt.Sprintf("%.2fµs", ns/1e3)
	default:
		return fmt.Sprintf("%.1fns", ns)
	}
}
