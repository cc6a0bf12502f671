// Command dosetrack manages medication schedules and intake records.
package main

import (
	"errors"
	"fmt"
	"os"

	apperrors "github.com/kimhsiao/dosetrack/internal/errors"
	"github.com/kimhsiao/dosetrack/internal/logging"
)

func main() {
	logging.Init(os.Stderr, logging.LevelWarn, logging.FormatText)

	if err := rootCmd.Execute(); err != nil {
		logging.Debug("command failed", map[string]interface{}{
			"code":  string(apperrors.CodeOf(err)),
			"error": err.Error(),
		})
		fmt.Fprintln(os.Stderr, "Error:", errorMessage(err))
		os.Exit(1)
	}
}

// errorMessage returns the display message of coded errors and the raw
// message of everything else, which is usually a usage error from cobra.
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.UserMessage()
	}
	return err.Error()
}
