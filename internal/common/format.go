package common

import (
	"fmt"
	"strings"
	"time"

	"custody-capital-go/internal/amount"
)

// DefaultWidth is the report width used by the CLIs
const DefaultWidth = 80

const timestampLayout = "2006-01-02 15:04:05"

func rule(char string, width int) string {
	return strings.Repeat(char, width)
}

// PrintHeader prints a report title between two rules
func PrintHeader(title string, width int) {
	fmt.Println("\n" + rule("=", width))
	fmt.Println(title)
	fmt.Println(rule("=", width))
}

// PrintFooter prints a closing summary line between two rules
func PrintFooter(message string, width int) {
	fmt.Println("\n" + rule("=", width))
	fmt.Println(message)
	fmt.Println(rule("=", width) + "\n")
}

// PrintSection opens a boxed section with a label and a count line
func PrintSection(label, name string, count int, width int) {
	fmt.Printf("\n┌─ %s: %s\n", label, name)
	fmt.Printf("│  Count: %d\n", count)
	PrintBoxSeparator(width - 2)
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + rule("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}

// BoxDetailPrefix returns the prefix for detail lines under list items
func BoxDetailPrefix(isLast bool) string {
	if isLast {
		return "   "
	}
	return "│  "
}

// FormatHolding renders an amount in whole units followed by the asset symbol
func (r AssetRegistry) FormatHolding(assetId string, a amount.Amount) string {
	return r.Human(assetId, a).String() + " " + r.Symbol(assetId)
}

// FormatTimestamp renders a lock boundary, or "-" for the zero time
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timestampLayout)
}
