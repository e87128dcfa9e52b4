// Command bench_report turns allocator benchmark output into a markdown
// report comparing the plain and checks variants of each workload.
//
//	go test -run '^$' -bench . -benchmem ./alloc | go run ./scripts -output bench.md
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Workload    string
	Arena       string
	Variant     string // "plain" or "checks"
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs the plain and checks runs of one workload.
type ComparisonResult struct {
	Workload     string
	Arena        string
	PlainNs      float64
	ChecksNs     float64
	Overhead     float64 // ChecksNs / PlainNs
	PlainMem     int64
	ChecksMem    int64
	PlainAllocs  int64
	ChecksAllocs int64
	PlainOnly    bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
)

func main() {
	flag.Parse()

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	report := generateMarkdownReport(comparisons, time.Now())

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// BenchmarkChurn/checks/64KiB-8    1000000    112.4 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+B/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Try to parse as JSON (from -json flag)
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		matches := benchmarkRegex.FindStringSubmatch(strings.TrimSpace(line))
		if matches == nil {
			continue
		}

		r := BenchmarkResult{Name: matches[1]}
		r.Iterations, _ = strconv.Atoi(matches[2])
		r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
		if matches[4] != "" {
			r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
		}
		if matches[5] != "" {
			r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
		}

		// Benchmark<Workload>[/<variant>/<arena>]-<procs>
		parts := strings.Split(trimProcs(r.Name), "/")
		r.Workload = strings.TrimPrefix(parts[0], "Benchmark")
		r.Variant = "plain"
		if len(parts) >= 3 {
			r.Variant = parts[1]
			r.Arena = parts[2]
		}
		results = append(results, r)
	}

	return results
}

// trimProcs removes the trailing -GOMAXPROCS suffix.
func trimProcs(name string) string {
	if i := strings.LastIndex(name, "-"); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			return name[:i]
		}
	}
	return name
}

func generateComparisons(results []BenchmarkResult) []ComparisonResult {
	type key struct {
		workload string
		arena    string
	}

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, result := range results {
		k := key{result.Workload, result.Arena}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][result.Variant] = result
	}

	var comparisons []ComparisonResult
	for k, variants := range grouped {
		plain, hasPlain := variants["plain"]
		if !hasPlain {
			continue
		}
		comp := ComparisonResult{
			Workload:    k.workload,
			Arena:       k.arena,
			PlainNs:     plain.NsPerOp,
			PlainMem:    plain.BytesPerOp,
			PlainAllocs: plain.AllocsPerOp,
			PlainOnly:   true,
		}
		if checks, ok := variants["checks"]; ok {
			comp.ChecksNs = checks.NsPerOp
			comp.ChecksMem = checks.BytesPerOp
			comp.ChecksAllocs = checks.AllocsPerOp
			comp.PlainOnly = false
			if plain.NsPerOp > 0 {
				comp.Overhead = checks.NsPerOp / plain.NsPerOp
			}
		}
		comparisons = append(comparisons, comp)
	}

	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].Workload != comparisons[j].Workload {
			return comparisons[i].Workload < comparisons[j].Workload
		}
		return comparisons[i].Arena < comparisons[j].Arena
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Allocator Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	paired := 0
	totalOverhead := 0.0
	for _, comp := range comparisons {
		if !comp.PlainOnly {
			paired++
			totalOverhead += comp.Overhead
		}
	}

	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total workloads**: %d\n", len(comparisons))
	fmt.Fprintf(&sb, "- **With checks variant**: %d\n", paired)
	if paired > 0 {
		fmt.Fprintf(&sb, "  - Average checks overhead: **%.2fx**\n", totalOverhead/float64(paired))
	}
	sb.WriteString("\n")

	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString("| Workload | Arena | plain (ns/op) | checks (ns/op) | Overhead | Memory (B/op) | Allocs |\n")
	sb.WriteString("|----------|-------|---------------|----------------|----------|---------------|--------|\n")

	for _, comp := range comparisons {
		arena := comp.Arena
		if arena == "" {
			arena = "-"
		}
		if comp.PlainOnly {
			fmt.Fprintf(&sb, "| %s | %s | %s | *N/A* | *N/A* | %s | %s |\n",
				comp.Workload,
				arena,
				formatNumber(comp.PlainNs),
				formatBytes(comp.PlainMem),
				formatNumber(float64(comp.PlainAllocs)),
			)
			continue
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %.2fx | %s vs %s | %s vs %s |\n",
			comp.Workload,
			arena,
			formatNumber(comp.PlainNs),
			formatNumber(comp.ChecksNs),
			comp.Overhead,
			formatBytes(comp.PlainMem),
			formatBytes(comp.ChecksMem),
			formatNumber(float64(comp.PlainAllocs)),
			formatNumber(float64(comp.ChecksAllocs)),
		)
	}

	sb.WriteString("\n## Notes\n\n")
	sb.WriteString("- **Overhead**: checks ns/op divided by plain ns/op\n")
	sb.WriteString("- **Memory** and **Allocs** are Go heap figures; arena memory is not counted\n")

	return sb.String()
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b >= 1024*1024 {
		return fmt.Sprintf("%.2fMB", float64(b)/(1024*1024))
	} else if b >= 1024 {
		return fmt.Sprintf("%.1fKB", float64(b)/1024)
	}
	return fmt.Sprintf("%dB", b)
}
