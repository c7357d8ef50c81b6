// predictctl submits businesses to the MSME risk prediction service from the command line.
//
// Usage:
//
//	predictctl manual --monthly-sales 250000 --stock-value 80000 ...
//	predictctl bulk --file businesses.csv
//	predictctl health
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/Alias1177/MSMEPredictor/internal/analyze"
	"github.com/Alias1177/MSMEPredictor/internal/config"
	"github.com/Alias1177/MSMEPredictor/internal/form"
	"github.com/Alias1177/MSMEPredictor/internal/predictor"
	"github.com/Alias1177/MSMEPredictor/models"
)

var version = "dev"

func main() {
	app := &cli.App{
		Name:    "predictctl",
		Usage:   "Predict MSME business risk with the prediction service",
		Version: version,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "predictor-url",
				Value:   config.DefaultPredictorURL,
				Usage:   "Base URL of the prediction service",
				EnvVars: []string{"PREDICTOR_URL"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.IntFlag{
				Name:    "timeout",
				Value:   0,
				Usage:   "Request timeout in seconds, 0 for none",
				EnvVars: []string{"REQUEST_TIMEOUT"},
			},
		},

		Before: func(c *cli.Context) error {
			setupLogging(c.String("log-level"))
			return nil
		},

		Commands: []*cli.Command{
			manualCommand(),
			bulkCommand(),
			healthCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(logLevel string) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level)
}

func newClient(c *cli.Context) (*predictor.Client, error) {
	cfg := &models.Config{
		PredictorURL:   strings.TrimRight(c.String("predictor-url"), "/"),
		RequestTimeout: c.Int("timeout"),
		RequestsPerSec: config.DefaultRequestsPerSec,
		MaxUploadBytes: config.DefaultMaxUploadBytes,
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return predictor.NewClient(cfg), nil
}

// flagName maps a payload field to its command line flag: monthly_sales -> monthly-sales
func flagName(field string) string {
	return strings.ReplaceAll(field, "_", "-")
}

// =============================================================================
// MANUAL COMMAND
// =============================================================================

func manualCommand() *cli.Command {
	flags := make([]cli.Flag, 0, len(models.PredictionFields)+1)
	for _, field := range models.PredictionFields {
		flags = append(flags, &cli.StringFlag{
			Name:  flagName(field),
			Usage: field + " of the business",
		})
	}
	flags = append(flags, &cli.BoolFlag{Name: "json", Usage: "Print the raw result as JSON"})

	return &cli.Command{
		Name:   "manual",
		Usage:  "Predict the risk of one business",
		Flags:  flags,
		Action: runManual,
	}
}

func runManual(c *cli.Context) error {
	values := url.Values{}
	for _, field := range models.PredictionFields {
		values.Set(field, c.String(flagName(field)))
	}

	req, manual := form.ParseManual(values)
	if !manual.Valid() {
		for _, f := range manual.Fields() {
			if f.Error != "" {
				fmt.Fprintf(os.Stderr, "--%s: %s\n", flagName(f.Name), f.Error)
			}
		}
		return errors.New("invalid business metrics")
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}

	result, err := client.PredictManual(c.Context, req)
	if err != nil {
		return fmt.Errorf("%s: %w", form.MsgManualFailed, err)
	}

	if c.Bool("json") {
		return writeJSON(os.Stdout, result)
	}
	writeResult(os.Stdout, result)
	if result.IsError() {
		return errors.New("prediction service returned an error")
	}
	return nil
}

// =============================================================================
// BULK COMMAND
// =============================================================================

func bulkCommand() *cli.Command {
	return &cli.Command{
		Name:  "bulk",
		Usage: "Predict the risk of every business in a CSV file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "CSV file with one business per row",
				Required: true,
			},
			&cli.BoolFlag{Name: "json", Usage: "Print the numbered results as JSON"},
		},
		Action: runBulk,
	}
}

func runBulk(c *cli.Context) error {
	path := c.String("file")
	name := filepath.Base(path)
	if !form.IsCSV(name, "") {
		return errors.New(form.MsgNotCSV)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	batch := &models.Batch{FileName: name, CSVRows: -1}
	if n, err := form.CountRows(bytes.NewReader(data)); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("Could not count CSV rows")
	} else {
		batch.CSVRows = n
	}

	client, err := newClient(c)
	if err != nil {
		return err
	}

	results, err := client.PredictBulk(c.Context, name, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: %w", form.MsgBulkFailed, err)
	}
	batch.Rows = analyze.NumberRows(results)

	if c.Bool("json") {
		return writeJSON(os.Stdout, batch)
	}
	writeBulk(os.Stdout, batch)
	return nil
}

// =============================================================================
// HEALTH COMMAND
// =============================================================================

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the prediction service is reachable",
		Action: func(c *cli.Context) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(c.Context, 10*time.Second)
			defer cancel()

			if err := client.Health(ctx); err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s is healthy\n", c.String("predictor-url"))
			return nil
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
