// Package parser extracts card entries from markdown files using the
// Q:/A:/C: block format. Entries carry raw text; validation into domain
// cards happens at import time.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Entry is one parsed card: a prompt, its answer, and optional context.
type Entry struct {
	Question string
	Answer   string
	Context  string
}

const (
	questionPrefix = "Q:"
	answerPrefix   = "A:"
	contextPrefix  = "C:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingAnswer
	readingContext
)

// ParseFile reads a file from the given path and extracts all entries.
func ParseFile(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads from an io.Reader and extracts all entries.
func Parse(r io.Reader) ([]Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []Entry
	var current Entry
	var currentBlock []string
	currentState := seeking

	flushBlock := func() {
		if len(currentBlock) == 0 {
			return
		}
		content := strings.Join(currentBlock, "\n")
		switch currentState {
		case readingQuestion:
			current.Question = content
		case readingAnswer:
			current.Answer = content
		case readingContext:
			current.Context = content
		}
		currentBlock = nil
	}

	finishEntry := func() {
		flushBlock()
		if current.Question != "" {
			entries = append(entries, current)
		}
		current = Entry{}
		currentState = seeking
	}

	stripPrefix := func(line, prefix string) string {
		content := line[len(prefix):]
		if strings.HasPrefix(content, " ") {
			content = content[1:]
		}
		return content
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "---":
			finishEntry()

		case strings.HasPrefix(line, questionPrefix):
			flushBlock()
			if currentState != seeking { // A new question always starts a new entry
				finishEntry()
			}
			currentState = readingQuestion
			currentBlock = append(currentBlock, stripPrefix(line, questionPrefix))

		case strings.HasPrefix(line, answerPrefix):
			flushBlock()
			currentState = readingAnswer
			currentBlock = append(currentBlock, stripPrefix(line, answerPrefix))

		case strings.HasPrefix(line, contextPrefix):
			flushBlock()
			currentState = readingContext
			currentBlock = append(currentBlock, stripPrefix(line, contextPrefix))

		case currentState != seeking:
			currentBlock = append(currentBlock, line)
		}
	}

	finishEntry() // Finish the very last entry in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
