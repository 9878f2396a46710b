package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Smattr/alfred/pkg/client"
	"github.com/peterh/liner"
)

const prompt = "> "

func main() {
	addr := flag.String("addr", "localhost:3876", "Server address")
	flag.Parse()

	fmt.Printf("alfred shell\n")
	fmt.Printf("Connecting to %s...\n", *addr)

	cli, err := client.Dial(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer cli.Close()

	fmt.Printf("Connected. Type '.help' for commands.\n\n")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".alfredsh_history")
	if f, err := os.Open(historyPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	repl(line, cli)
}

func repl(line *liner.State, cli *client.Client) {
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted {
				// Ctrl+C clears the current line.
				continue
			}
			if err != io.EOF {
				fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			}
			fmt.Println()
			return
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, ".") {
			if quit := command(input); quit {
				return
			}
			continue
		}

		result, err := cli.Exec(input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Connection lost: %v\n", err)
			return
		}
		printResult(result)
	}
}

func command(input string) (quit bool) {
	switch input {
	case ".help":
		fmt.Println("Statements are sent to the server one line at a time.")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  .help  Show this help")
		fmt.Println("  .quit  Exit the shell")
	case ".quit", ".exit":
		return true
	default:
		fmt.Printf("Unknown command %q. Type '.help' for commands.\n", input)
	}
	return false
}

func printResult(result *client.Result) {
	for _, field := range result.Fields {
		if field.Null {
			fmt.Printf("%s = NULL\n", field.Column)
		} else {
			fmt.Printf("%s = %s\n", field.Column, field.Value)
		}
	}
	if result.Ok() {
		fmt.Println("OK")
	} else {
		fmt.Printf("Error: %s\n", result.Err)
	}
	fmt.Println()
}
