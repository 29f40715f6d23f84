package tools

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Basic returns the six self-contained string and math tools.
func Basic() *Registry {
	r := NewRegistry()
	r.Register(Tool{
		Name: "Calculator",
		Description: "Perform mathematical calculations safely. " +
			"Supports: Two-operand (e.g., '15 * 23'), multi-operand addition/subtraction (e.g., '150 + 200 + 175'), " +
			"and functions sqrt(num) and abs(num). " +
			"Operations: +, -, *, /, //, %, **. " +
			"Input: Just the expression (no extra quotes needed). " +
			"Examples: '50 * 8', '100 + 200 + 50', 'sqrt(144)', '67 - 23'",
		Run: func(_ context.Context, input string) string { return Calculate(input) },
	})
	r.Register(Tool{
		Name: "StringLength",
		Description: "Count the number of characters in a text string. " +
			"Use this to get the length of any text. " +
			"Input format: the text string to measure",
		Run: func(_ context.Context, input string) string {
			return fmt.Sprintf("The text has %d characters", len([]rune(input)))
		},
	})
	r.Register(Tool{
		Name: "WordCount",
		Description: "Count the number of words in a text string. " +
			"Use this to analyze text length or check word limits. " +
			"Input format: the text string to count words in",
		Run: func(_ context.Context, input string) string {
			return fmt.Sprintf("The text has %d words", len(strings.Fields(input)))
		},
	})
	r.Register(Tool{
		Name: "ReverseString",
		Description: "Reverse the characters in a text string. " +
			"Use this for string manipulation or checking palindromes. " +
			"Input format: the text string to reverse",
		Run: func(_ context.Context, input string) string {
			runes := []rune(input)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return "Reversed: " + string(runes)
		},
	})
	r.Register(Tool{
		Name: "ToUppercase",
		Description: "Convert all characters in a text string to uppercase. " +
			"Use this for text formatting or normalization. " +
			"Input format: the text string to convert",
		Run: func(_ context.Context, input string) string {
			return "Uppercase: " + strings.ToUpper(input)
		},
	})
	r.Register(Tool{
		Name: "ExtractNumbers",
		Description: "Find and extract all numbers from a text string. " +
			"Use this to parse numeric data from mixed text. " +
			"Input format: the text string to search for numbers in",
		Run: func(_ context.Context, input string) string {
			numbers := numberPattern.FindAllString(input, -1)
			if len(numbers) == 0 {
				return "No numbers found in the text"
			}
			return "Found numbers: " + strings.Join(numbers, ", ")
		},
	})
	return r
}

var (
	numberPattern     = regexp.MustCompile(`-?\d+\.?\d*`)
	multiOperandShape = regexp.MustCompile(`^[\d\s+\-.]+$`)
	twoOperandShape   = regexp.MustCompile(`^\s*(-?\d+\.?\d*)\s*(\*\*|//|[+\-*/%])\s*(-?\d+\.?\d*)\s*$`)
	bareNumberShape   = regexp.MustCompile(`^\s*-?\d+\.?\d*\s*$`)
)

// Calculate evaluates a restricted arithmetic grammar: a bare number, a
// two-operand expression, a +/- chain, or sqrt()/abs(). Anything else is
// rejected rather than interpreted.
func Calculate(expression string) string {
	expr := stripWrappingQuotes(strings.TrimSpace(expression))

	// Multi-operand chains are addition/subtraction only; mixed operators
	// are ambiguous without a real parser.
	if strings.Contains(expr, "+") || strings.Count(expr, "-") > 1 {
		if multiOperandShape.MatchString(expr) {
			if result, ok := sumChain(expr); ok {
				return formatResult(result)
			}
		}
	}

	if m := twoOperandShape.FindStringSubmatch(expr); m != nil {
		a, err1 := strconv.ParseFloat(m[1], 64)
		b, err2 := strconv.ParseFloat(m[3], 64)
		if err1 != nil || err2 != nil {
			return "Error: Invalid number format"
		}
		return applyOperator(a, m[2], b)
	}

	if bareNumberShape.MatchString(expr) {
		n, err := strconv.ParseFloat(strings.TrimSpace(expr), 64)
		if err != nil {
			return "Error: Invalid number format"
		}
		return formatResult(n)
	}

	if inner, ok := unaryCall(expr, "sqrt"); ok {
		n, err := strconv.ParseFloat(inner, 64)
		if err != nil {
			return "Error: Invalid number format"
		}
		return formatResult(math.Sqrt(n))
	}
	if inner, ok := unaryCall(expr, "abs"); ok {
		n, err := strconv.ParseFloat(inner, 64)
		if err != nil {
			return "Error: Invalid number format"
		}
		return formatResult(math.Abs(n))
	}

	return "Error: Expression too complex. Supported: 'num op num', 'num + num + num' (addition/subtraction only), 'sqrt(num)', 'abs(num)'"
}

// sumChain evaluates "150 + 200 - 75" style chains by normalizing
// subtraction into signed addends.
func sumChain(expr string) (float64, bool) {
	normalized := strings.ReplaceAll(strings.ReplaceAll(expr, " ", ""), "-", "+-")
	var sum float64
	var terms int
	for _, part := range strings.Split(normalized, "+") {
		if part == "" {
			continue
		}
		n, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, false
		}
		sum += n
		terms++
	}
	return sum, terms > 0
}

func applyOperator(a float64, op string, b float64) string {
	switch op {
	case "+":
		return formatResult(a + b)
	case "-":
		return formatResult(a - b)
	case "*":
		return formatResult(a * b)
	case "/":
		if b == 0 {
			return "Error: Division by zero"
		}
		return formatResult(a / b)
	case "//":
		if b == 0 {
			return "Error: Division by zero"
		}
		return formatResult(math.Floor(a / b))
	case "%":
		if b == 0 {
			return "Error: Division by zero"
		}
		return formatResult(math.Mod(a, b))
	case "**":
		return formatResult(math.Pow(a, b))
	default:
		return fmt.Sprintf("Error: Unsupported operator '%s'", op)
	}
}

// unaryCall extracts the argument of "name(arg)" expressions.
func unaryCall(expr, name string) (string, bool) {
	prefix := name + "("
	if strings.HasPrefix(expr, prefix) && strings.HasSuffix(expr, ")") {
		return strings.TrimSpace(expr[len(prefix) : len(expr)-1]), true
	}
	return "", false
}

// formatResult renders numbers the way the tools promise: integers without
// a trailing ".0" noise only when the value is whole.
func formatResult(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("Result: %.1f", v)
	}
	return fmt.Sprintf("Result: %g", v)
}

// stripWrappingQuotes removes one layer of LLM-added quotes.
func stripWrappingQuotes(s string) string {
	for _, q := range []string{"'", `"`} {
		if len(s) >= 2 && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}
