package tools

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCodeBlocking(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{"empty", "   ", "Code is empty"},
		{"oversize", "print(" + strings.Repeat("1", 5000) + ")", "Code too long (5008 chars). Maximum 5000 characters."},
		{"unclosed paren", "print(factorial(7)", "Syntax error: Line 1: unclosed '('"},
		{"unmatched bracket", "x = [1, 2]]", "Syntax error: Line 1: unmatched ']'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateCode(tt.code)
			assert.False(t, ok)
			assert.Equal(t, tt.want, msg)
		})
	}
}

func TestValidateCodeBlockedImports(t *testing.T) {
	for module := range blockedModules {
		if module == "__import__" || module == "eval" || module == "exec" || module == "compile" {
			continue
		}
		t.Run("import "+module, func(t *testing.T) {
			ok, msg := ValidateCode(fmt.Sprintf("import %s\nprint(1)", module))
			require.False(t, ok)
			assert.Contains(t, msg, "Blocked imports detected: "+module)
			assert.Contains(t, msg, "Safe modules:")
		})
		t.Run("from "+module, func(t *testing.T) {
			ok, msg := ValidateCode(fmt.Sprintf("from %s import something", module))
			require.False(t, ok)
			assert.Contains(t, msg, "Blocked imports detected: "+module)
		})
	}
}

func TestValidateCodeBlockedImportVariants(t *testing.T) {
	ok, msg := ValidateCode("import os.path\nprint(1)")
	require.False(t, ok)
	assert.Contains(t, msg, "Blocked imports detected: os")

	ok, msg = ValidateCode("import math, subprocess\nprint(1)")
	require.False(t, ok)
	assert.Contains(t, msg, "subprocess")
	assert.NotContains(t, msg, "math,")

	ok, msg = ValidateCode("import sys\nimport socket\nprint(1)")
	require.False(t, ok)
	assert.Contains(t, msg, "Blocked imports detected: socket, sys")
}

func TestValidateCodeAllowsSafeImports(t *testing.T) {
	ok, msg := ValidateCode("import math\nimport json\nprint(math.pi)")
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestValidateCodeIgnoresMentionsInStrings(t *testing.T) {
	ok, msg := ValidateCode(`print("you could import os here but we won't")`)
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestValidateCodeWarnings(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		fragment string
	}{
		{
			"function never called",
			"def factorial(n):\n    return 1 if n <= 1 else n * factorial(n - 1)",
			"defines a function but doesn't call it",
		},
		{
			"class never used",
			"class Counter:\n    pass",
			"defines a class but doesn't use it",
		},
		{
			"calculation without print",
			"result = 7 * 6 * 5",
			"doesn't print the result",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, msg := ValidateCode(tt.code)
			assert.True(t, ok, "warnings must not block execution")
			assert.Contains(t, msg, "WARNING:")
			assert.Contains(t, msg, tt.fragment)
		})
	}
}

func TestValidateCodeWithPrintHasNoWarning(t *testing.T) {
	ok, msg := ValidateCode("result = 7 * 6\nprint(result)")
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestCheckSyntaxHandlesTripleQuotedStrings(t *testing.T) {
	code := "doc = \"\"\"Bob's notes:\n(unbalanced [ inside a docstring is fine\n\"\"\"\nprint(doc)"
	line, detail := checkSyntax(code)
	assert.Zero(t, line)
	assert.Empty(t, detail)
}

func TestCheckSyntaxIgnoresComments(t *testing.T) {
	line, detail := checkSyntax("x = 1  # this ( comment is unbalanced\nprint(x)")
	assert.Zero(t, line)
	assert.Empty(t, detail)
}
