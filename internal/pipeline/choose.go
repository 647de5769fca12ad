package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Choose lists files on w and reads a comma-separated list of indices from
// r. Entries that are not numbers or out of range are ignored, so an empty
// answer selects nothing.
func Choose(r io.Reader, w io.Writer, files []string, prompt string) ([]string, error) {
	if len(files) == 0 {
		fmt.Fprintln(w, "No files found.")
		return nil, nil
	}

	for i, f := range files {
		fmt.Fprintf(w, "%d: %s\n", i, f)
	}
	fmt.Fprintf(w, "%s ", prompt)

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	return pick(files, line), nil
}

func pick(files []string, answer string) []string {
	var selected []string
	for _, field := range strings.Split(answer, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || i < 0 || i >= len(files) {
			continue
		}
		selected = append(selected, files[i])
	}
	return selected
}
