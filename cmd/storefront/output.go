package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"storefront/internal/model"
)

// ANSI color codes
var (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

func init() {
	if os.Getenv("NO_COLOR") != "" {
		disableColors()
	}
}

func disableColors() {
	colorReset, colorRed, colorGreen, colorYellow = "", "", "", ""
	colorCyan, colorGray, colorBold = "", "", ""
}

// emit prints v as indented JSON when -json is set and reports whether it did.
func emit(v any) bool {
	if !jsonOut {
		return false
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("Encoding output: %v", err)
	}
	return true
}

func printSuccess(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
	}
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
}

func printWarning(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s⚠ %s%s\n", colorYellow, fmt.Sprintf(format, args...), colorReset)
}

func printInfo(format string, args ...interface{}) {
	if !quiet {
		fmt.Printf("%s→ %s%s\n", colorGray, fmt.Sprintf(format, args...), colorReset)
	}
}

func rupees(m model.Money) string {
	return "₹" + m.String()
}

// describe renders an error for the buyer, including per-field messages.
func describe(err error) string {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if errors.Is(err, model.ErrSessionExpired) || errors.Is(err, model.ErrAuthExpired) {
		return apiErr.Message + " (run 'storefront login')"
	}
	msg := apiErr.Message
	if len(apiErr.Fields) > 0 && !strings.Contains(msg, ":") {
		msg += ": " + apiErr.FieldSummary()
	}
	return msg
}

var (
	osExit   = os.Exit
	cleanups []func()
)

// atExit registers fn to run before exit terminates the process.
func atExit(fn func()) {
	cleanups = append(cleanups, fn)
}

// exit runs the registered cleanups, newest first, then exits with code.
// Deferred calls do not run on os.Exit, so commands exit through here.
func exit(code int) {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
	osExit(code)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "%s✗ %s%s\n", colorRed, fmt.Sprintf(format, args...), colorReset)
	exit(1)
}

// check exits with a readable message when err is set.
func check(action string, err error) {
	if err != nil {
		fatal("%s: %s", action, describe(err))
	}
}
