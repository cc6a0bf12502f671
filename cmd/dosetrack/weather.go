package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/dosetrack/internal/advisory"
	"github.com/kimhsiao/dosetrack/internal/models"
)

var (
	weatherTemperature float64
	weatherHumidity    float64
	weatherDescription string
	weatherMeasuredAt  string
	weatherMaxAge      float64
)

var weatherCheckCmd = &cobra.Command{
	Use:   "weather-check",
	Short: "Check a weather reading for medication storage advisories",
	Example: `  dosetrack weather-check --temperature 31.5 --humidity 65 --measured-at 2024-07-01T12:00:00Z`,
	Args: cobra.NoArgs,
	RunE: runWeatherCheck,
}

func init() {
	weatherCheckCmd.Flags().Float64Var(&weatherTemperature, "temperature", 0, "Temperature in °C (required)")
	weatherCheckCmd.Flags().Float64Var(&weatherHumidity, "humidity", 0, "Relative humidity in percent (required)")
	weatherCheckCmd.Flags().StringVar(&weatherDescription, "description", "", "Free-text conditions")
	weatherCheckCmd.Flags().StringVar(&weatherMeasuredAt, "measured-at", "", "RFC 3339 time of the reading (default: now)")
	weatherCheckCmd.Flags().Float64Var(&weatherMaxAge, "max-age", 0, "Hours after which a reading is stale (default: from config)")
	weatherCheckCmd.MarkFlagRequired("temperature")
	weatherCheckCmd.MarkFlagRequired("humidity")
	rootCmd.AddCommand(weatherCheckCmd)
}

func runWeatherCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	measuredAt := now()
	if weatherMeasuredAt != "" {
		if measuredAt, err = time.Parse(time.RFC3339, weatherMeasuredAt); err != nil {
			return invalidInput("--measured-at must be an RFC 3339 time such as 2024-07-01T12:00:00Z, got %q.", weatherMeasuredAt)
		}
	}
	maxAge := cfg.Advisory.StaleAfterHours
	if weatherMaxAge > 0 {
		maxAge = weatherMaxAge
	}

	checker := advisory.NewChecker(thresholdsOf(cfg), advisory.WithClock(now))
	report := checker.Check(models.WeatherReading{
		Temperature: weatherTemperature,
		Humidity:    weatherHumidity,
		Description: weatherDescription,
		MeasuredAt:  measuredAt,
	}, maxAge)

	return render(cmd, report, func(w io.Writer) error {
		if report.Stale {
			fmt.Fprintf(w, "Warning: this reading is more than %.0f hours old.\n", maxAge)
		}
		for _, a := range report.Advisories {
			fmt.Fprintln(w, a)
		}
		if report.Favorable {
			fmt.Fprintln(w, "Conditions are favorable for storing medication.")
		} else if len(report.Advisories) == 0 {
			fmt.Fprintln(w, "No advisories.")
		}
		return nil
	})
}
