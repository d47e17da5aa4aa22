package conversation

import (
	"context"
	"fmt"

	"github.com/hammamikhairi/pomo/internal/domain"
	"github.com/hammamikhairi/pomo/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// ANSI escape codes for terminal formatting.
const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	red    = "\033[31m"
	yellow = "\033[33m"
	cyan   = "\033[36m"
)

// PrintFunc is a function used to print formatted output.
type PrintFunc func(format string, a ...interface{})

// CLINotifier writes notifications to stdout with ANSI formatting.
type CLINotifier struct {
	log     *logger.Logger
	printFn PrintFunc
}

// NewCLINotifier creates a stdout-based notifier.
// If printFn is nil, fmt.Printf is used.
func NewCLINotifier(log *logger.Logger, printFn PrintFunc) *CLINotifier {
	return &CLINotifier{log: log, printFn: orPrintf(printFn)}
}

// Notify prints the alert in bold red, with a terminal bell.
func (n *CLINotifier) Notify(ctx context.Context, title, message string) error {
	n.log.Debug("notify: %s: %s", title, message)
	n.printFn("\a%s%s[%s]%s %s%s%s", red, bold, title, reset, yellow, message, reset)
	n.printFn("%s(type 'ok' to dismiss)%s", cyan, reset)
	return nil
}

func orPrintf(printFn PrintFunc) PrintFunc {
	if printFn != nil {
		return printFn
	}
	return func(format string, a ...interface{}) {
		fmt.Printf(format+"\n", a...)
	}
}
