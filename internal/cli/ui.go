package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/depscout/depscout/pkg/risk"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success, low risk
	colorYellow = lipgloss.Color("220") // Amber - warnings, medium risk
	colorRed    = lipgloss.Color("167") // Soft red - errors, high risk
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)

	styleRiskHigh    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	styleRiskMedium  = lipgloss.NewStyle().Foreground(colorYellow)
	styleRiskLow     = lipgloss.NewStyle().Foreground(colorGreen)
	styleRiskUnknown = lipgloss.NewStyle().Foreground(colorGray)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Risk Output
// =============================================================================

// riskBadge renders a risk level in its severity color.
func riskBadge(level string) string {
	switch level {
	case risk.LevelHigh:
		return styleRiskHigh.Render(level)
	case risk.LevelMedium:
		return styleRiskMedium.Render(level)
	case risk.LevelLow:
		return styleRiskLow.Render(level)
	default:
		return styleRiskUnknown.Render(risk.LevelUnknown)
	}
}

// printDependency prints one resolved dependency line.
func printDependency(name, version, license string, level string, score *int) {
	value := name
	if version != "" {
		value += "@" + version
	}
	line := "  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(value)
	if license != "" {
		line += " " + StyleDim.Render(license)
	}
	line += " " + riskBadge(level)
	if score != nil {
		line += " " + StyleDim.Render(fmt.Sprintf("(%d)", *score))
	}
	fmt.Println(line)
}
