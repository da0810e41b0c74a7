package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal palette. ANSI-256 indexes, picked to stay legible on dark and
// light backgrounds alike.
var (
	inkPrimary = lipgloss.Color("36")  // teal
	inkGood    = lipgloss.Color("35")  // green
	inkWarn    = lipgloss.Color("220") // amber
	inkAccent  = lipgloss.Color("75")  // light blue
	inkBright  = lipgloss.Color("255") // bright white
	inkSoft    = lipgloss.Color("245") // gray
	inkFaint   = lipgloss.Color("240") // dim gray
)

// Styles shared with the interactive order browser.
var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(inkPrimary)
	StyleDim     = lipgloss.NewStyle().Foreground(inkFaint)
	StyleValue   = lipgloss.NewStyle().Foreground(inkBright)
	StyleNumber  = lipgloss.NewStyle().Foreground(inkPrimary)
	StyleWarning = lipgloss.NewStyle().Foreground(inkWarn)
)

var (
	styleSpinner = lipgloss.NewStyle().Foreground(inkPrimary)
	styleGood    = lipgloss.NewStyle().Foreground(inkGood)
	styleSoft    = lipgloss.NewStyle().Foreground(inkSoft)
	styleCommand = lipgloss.NewStyle().Foreground(inkAccent)
	styleLabel   = lipgloss.NewStyle().Foreground(inkSoft).Width(14)
)

// status prints one line prefixed with a styled marker.
func status(marker string, style lipgloss.Style, msg string) {
	fmt.Println(style.Render(marker) + " " + msg)
}

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	status("✓", styleGood, fmt.Sprintf(format, args...))
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	status("!", StyleWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printInfo prints a neutral status message.
func printInfo(format string, args ...any) {
	status("›", styleSoft, fmt.Sprintf(format, args...))
}

// printDetail prints an indented, muted detail line.
func printDetail(format string, args ...any) {
	fmt.Println("  " + StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written artifact.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render("→") + " " + StyleValue.Render(path))
}

// printKeyValue prints a label padded to a fixed column, then its value.
func printKeyValue(key, value string) {
	fmt.Println(styleLabel.Render(key) + " " + StyleValue.Render(value))
}

// printStats prints node and edge counts plus whether the result came from
// cache.
func printStats(nodeCount, edgeCount int, cached bool) {
	var parts []string
	if nodeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d nodes", nodeCount))
	}
	if edgeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d edges", edgeCount))
	}
	line := strings.Join(parts, " · ")
	if line != "" {
		line += " · "
	}

	freshness := styleSoft.Render("fresh")
	if cached {
		freshness = styleGood.Render("cached")
	}
	fmt.Println("  " + StyleDim.Render(line) + freshness)
}

// printNextStep prints a suggested follow-up command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Println()
}
