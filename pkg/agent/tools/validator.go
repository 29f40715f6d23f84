package tools

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// blockedModules are denied before any code reaches the sandbox. The
// sandbox blocks them too; rejecting here saves a round trip and gives the
// agent an actionable observation.
var blockedModules = map[string]bool{
	"os": true, "subprocess": true, "sys": true, "socket": true,
	"urllib": true, "requests": true, "httpx": true, "shutil": true,
	"pathlib": true, "__import__": true, "eval": true, "exec": true,
	"compile": true,
}

// safeModules is the allowlist quoted in rejection messages.
var safeModules = []string{
	"collections", "datetime", "functools", "itertools",
	"json", "math", "random", "re", "string",
}

const maxCodeLength = 5000

var (
	importPattern     = regexp.MustCompile(`(?m)^\s*import\s+([A-Za-z_][\w.]*(?:\s*,\s*[A-Za-z_][\w.]*)*)`)
	fromImportPattern = regexp.MustCompile(`(?m)^\s*from\s+([A-Za-z_][\w.]*)\s+import\b`)
	printCallPattern  = regexp.MustCompile(`\bprint\s*\(`)
	defPattern        = regexp.MustCompile(`(?m)^\s*def\s+\w+`)
	classPattern      = regexp.MustCompile(`(?m)^\s*class\s+\w+`)
	assignPattern     = regexp.MustCompile(`(?m)^[A-Za-z_][\w.\[\]'" ]*\s*[+\-*/]?=[^=]`)
)

// ValidateCode checks code before sandbox submission.
//
// ok=false means a blocking problem (empty, oversize, syntax, blocked
// import) and the code must not be executed; msg carries the reason.
// ok=true with a non-empty msg is a warning — the code runs, but the
// warning is surfaced with the result.
func ValidateCode(code string) (ok bool, msg string) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, "Code is empty"
	}
	if len(code) > maxCodeLength {
		return false, fmt.Sprintf("Code too long (%d chars). Maximum %d characters.", len(code), maxCodeLength)
	}

	if line, detail := checkSyntax(code); detail != "" {
		return false, fmt.Sprintf("Syntax error: Line %d: %s", line, detail)
	}

	if blocked := findBlockedImports(code); len(blocked) > 0 {
		return false, fmt.Sprintf(
			"Blocked imports detected: %s\n"+
				"These modules are disabled in the sandbox for security.\n"+
				"Safe modules: %s",
			strings.Join(blocked, ", "), strings.Join(safeModules, ", "))
	}

	return true, outputWarning(code)
}

// checkSyntax runs the structural check possible without a Python parser:
// bracket balance outside strings and comments. Returns the offending line
// and a description, or (0, "") when nothing is wrong. Anything subtler is
// left to the sandbox's interpreter.
func checkSyntax(code string) (int, string) {
	var stack []rune
	var stackLines []int
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	inBlock := rune(0) // inside a triple-quoted string

	for lineNo, line := range strings.Split(code, "\n") {
		inString := rune(0)
		escaped := false
		comment := false
		runes := []rune(line)
		for i := 0; i < len(runes); i++ {
			ch := runes[i]
			if comment {
				break
			}
			if inBlock != 0 {
				if ch == inBlock && strings.HasPrefix(string(runes[i:]), strings.Repeat(string(inBlock), 3)) {
					inBlock = 0
					i += 2
				}
				continue
			}
			if inString != 0 {
				switch {
				case escaped:
					escaped = false
				case ch == '\\':
					escaped = true
				case ch == inString:
					inString = 0
				}
				continue
			}
			switch ch {
			case '\'', '"':
				if strings.HasPrefix(string(runes[i:]), strings.Repeat(string(ch), 3)) {
					inBlock = ch
					i += 2
				} else {
					inString = ch
				}
			case '#':
				comment = true
			case '(', '[', '{':
				stack = append(stack, ch)
				stackLines = append(stackLines, lineNo+1)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != pairs[ch] {
					return lineNo + 1, fmt.Sprintf("unmatched '%c'", ch)
				}
				stack = stack[:len(stack)-1]
				stackLines = stackLines[:len(stackLines)-1]
			}
		}
	}
	if len(stack) > 0 {
		return stackLines[len(stack)-1], fmt.Sprintf("unclosed '%c'", stack[len(stack)-1])
	}
	return 0, ""
}

// findBlockedImports returns the blocked modules the code imports, deduped
// and sorted. Only the first dotted segment matters: "import os.path" is
// still os.
func findBlockedImports(code string) []string {
	seen := make(map[string]bool)
	for _, m := range importPattern.FindAllStringSubmatch(code, -1) {
		for _, name := range strings.Split(m[1], ",") {
			root := strings.SplitN(strings.TrimSpace(name), ".", 2)[0]
			if blockedModules[root] {
				seen[root] = true
			}
		}
	}
	for _, m := range fromImportPattern.FindAllStringSubmatch(code, -1) {
		root := strings.SplitN(m[1], ".", 2)[0]
		if blockedModules[root] {
			seen[root] = true
		}
	}
	blocked := make([]string, 0, len(seen))
	for name := range seen {
		blocked = append(blocked, name)
	}
	sort.Strings(blocked)
	return blocked
}

// outputWarning flags code that executes but prints nothing, so the agent
// learns why its observation came back empty.
func outputWarning(code string) string {
	if printCallPattern.MatchString(code) {
		return ""
	}
	definesFunc := defPattern.MatchString(code)
	definesClass := classPattern.MatchString(code)
	hasStatements := assignPattern.MatchString(code)

	switch {
	case definesFunc && !hasStatements:
		return "WARNING: Your code defines a function but doesn't call it or print the result.\n" +
			"Add a print statement, like: print(my_function(arguments))\n" +
			"Code will execute, but you won't see any output."
	case definesClass && !hasStatements:
		return "WARNING: Your code defines a class but doesn't use it or print anything.\n" +
			"Create an instance and print the result, like: obj = MyClass(); print(obj.method())\n" +
			"Code will execute, but you won't see any output."
	case hasStatements:
		return "WARNING: Your code runs calculations but doesn't print the result.\n" +
			"Add print() to see the output, like: print(result)\n" +
			"Code will execute, but you won't see any output."
	default:
		return "WARNING: Your code doesn't appear to do anything or produce output.\n" +
			"Add print() statements to see results."
	}
}
