package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/design-coach/internal/matching"
	"github.com/jonathan/design-coach/internal/observability"
	"github.com/jonathan/design-coach/internal/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <list-a> <list-b>",
	Short: "Merge two candidate lists",
	Long: "Runs the requirement matcher over two files of candidates. Each file is either a JSON " +
		"array of strings or plain text with one candidate per line. The first file's order wins.",
	Args: cobra.ExactArgs(2),
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	listA, err := readCandidates(args[0])
	if err != nil {
		return err
	}
	listB, err := readCandidates(args[1])
	if err != nil {
		return err
	}

	result, source := matching.MergeWithSource(listA, listB)
	resp := &types.MergeResponse{Result: result, Source: string(source)}

	if verbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintMerge(resp)
	}
	return writeJSON(cmd, resp)
}

// readCandidates loads a candidate list from a JSON array or a line-per-item text file.
func readCandidates(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidates file %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) {
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse candidates JSON %s: %w", path, err)
		}
		return items, nil
	}

	items := []string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			items = append(items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidates file %s: %w", path, err)
	}
	return items, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}
