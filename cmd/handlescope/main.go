package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gcforge/handlekit/cmd/handlescope/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	args := os.Args[1:]
	debugMode := false
	heaps := 4
	seed := int64(1)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--debug", "-d":
			debugMode = true
		case "--heaps":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n < 1 {
				fmt.Fprintf(os.Stderr, "Error: invalid heap count: %s\n", args[i])
				os.Exit(1)
			}
			heaps = n
		case "--seed":
			if i+1 >= len(args) {
				printUsage()
				os.Exit(1)
			}
			i++
			n, err := strconv.ParseInt(args[i], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid seed: %s\n", args[i])
				os.Exit(1)
			}
			seed = n
		case "--help", "-h":
			printHelp()
			os.Exit(0)
		case "--version", "-v":
			fmt.Printf("handlescope %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			os.Exit(0)
		default:
			printUsage()
			os.Exit(1)
		}
	}

	if debugMode {
		path, err := logger.Enable("", slog.LevelDebug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: debug logging disabled: %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "Logging to %s\n", path)
		}
	}

	logger.Info("starting handlescope", "heaps", heaps, "seed", seed, "debug", debugMode)

	m, err := NewModel(heaps, seed)
	if err != nil {
		logger.Error("failed to build model", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(), // Use alternate screen buffer
	)

	finalModel, err := p.Run()
	if err != nil {
		logger.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Clean up resources
	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.Warn("error closing resources", "error", err)
		}
	}

	logger.Info("handlescope exited normally")
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: handlescope [options]\n")
	fmt.Fprintf(os.Stderr, "Try 'handlescope --help' for more information.\n")
}

func printHelp() {
	fmt.Println("handlescope - Interactive viewer for simulated handle-table collections")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  handlescope [options]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Runs the handle-table scanning subsystem against a simulated heap and")
	fmt.Println("  shows each collection live: per-pass timings, promotion and severance")
	fmt.Println("  counts, dependent-handle convergence rounds, and the handle census.")
	fmt.Println()
	fmt.Println("  Keys:")
	fmt.Println("    space/Enter  Run one collection")
	fmt.Println("    a            Toggle auto mode (one collection per second)")
	fmt.Println("    g            Cycle the next condemned generation")
	fmt.Println("    q            Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --heaps N      Number of heaps and scan workers (default 4)")
	fmt.Println("  --seed N       Population seed (default 1)")
	fmt.Println("  -d, --debug    Enable debug logging to ~/.handlescope/logs/")
	fmt.Println("  -h, --help     Show this help message")
	fmt.Println("  -v, --version  Show version information")
}
