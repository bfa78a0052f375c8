package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gaborage/fnbricks/apierror"
	"github.com/gaborage/fnbricks/config"
	"github.com/gaborage/fnbricks/httpclient"
	"github.com/gaborage/fnbricks/logger"
	"github.com/gaborage/fnbricks/observability"
)

// CallOptions holds options for the call command
type CallOptions struct {
	ConfigFile     string
	Headers        []string
	Query          []string
	Data           string
	Timeout        time.Duration
	Retries        int
	RetryStatus    []string
	RetryPatterns  []string
	RequestID      string
	PayloadLogging bool
	Telemetry      bool
}

// NewCallCommand creates the call command
func NewCallCommand() *cobra.Command {
	opts := &CallOptions{}

	cmd := &cobra.Command{
		Use:   "call <method> <url>",
		Short: "Send one resilient HTTP call and print the envelope",
		Long: `Sends an HTTP request and prints the envelope {status, body, error, headers} as JSON.

The command exits with status 1 when the envelope carries an error; the problem
details of the failure are written to stderr.`,
		Example: `  # Simple GET
  fncall call GET https://api.example.com/version

  # POST JSON, retrying 503 and any 5xx up to 3 times with a 2s attempt timeout
  fncall call POST https://api.example.com/orders -d '{"sku":"A-1"}' \
    --retries 3 --timeout 2s --retry-status 503 --retry-pattern '^5\d\d$'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", config.DefaultFile, "Configuration file")
	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request header as key=value or 'Key: value' (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.Query, "query", "q", nil, "Query parameter as key=value (repeatable)")
	cmd.Flags().StringVarP(&opts.Data, "data", "d", "", "Request body; valid JSON is sent as is, anything else as text")
	cmd.Flags().DurationVarP(&opts.Timeout, "timeout", "t", httpclient.DefaultTimeout, "Per-attempt timeout (0 disables it)")
	cmd.Flags().IntVarP(&opts.Retries, "retries", "r", httpclient.DefaultMaxRetries, "Additional attempts after the first")
	cmd.Flags().StringSliceVar(&opts.RetryStatus, "retry-status", nil, "Status codes that trigger a retry, e.g. 503,504")
	cmd.Flags().StringArrayVar(&opts.RetryPatterns, "retry-pattern", nil, "Status regular expression that triggers a retry (repeatable)")
	cmd.Flags().StringVar(&opts.RequestID, "request-id", "", "Request ID propagated to the upstream")
	cmd.Flags().BoolVar(&opts.PayloadLogging, "log-payloads", false, "Log headers and body previews at debug level")
	cmd.Flags().BoolVar(&opts.Telemetry, "telemetry", false, "Export the call span and metrics (stderr unless observability.endpoint is set)")

	return cmd
}

func runCall(cmd *cobra.Command, opts *CallOptions, method, url string) error {
	cfg, err := config.LoadFile(opts.ConfigFile)
	if err != nil {
		return err
	}
	applyFlags(cmd, opts, &cfg.HTTPClient)
	if opts.Telemetry {
		cfg.Observability.Enabled = true
	}

	req, err := buildRequest(opts, url)
	if err != nil {
		return err
	}

	log := newCLILogger(cmd.ErrOrStderr(), &cfg.Log)
	telemetry, err := newTelemetry(cmd.ErrOrStderr(), cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(telemetry, observability.DefaultShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("Telemetry flush failed")
		}
	}()

	builder, err := httpclient.NewBuilderFromConfig(&cfg.HTTPClient, log)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if opts.RequestID != "" {
		ctx = httpclient.WithTraceID(ctx, opts.RequestID)
	}
	env := builder.Build().Do(ctx, method, req)

	if err := printJSON(cmd.OutOrStdout(), env); err != nil {
		return err
	}

	if callErr := apierror.FromEnvelope(env); callErr != nil {
		if apiErr := apierror.Classify(callErr); apiErr != nil {
			if err := printJSON(cmd.ErrOrStderr(), apierror.Problem(apiErr)); err != nil {
				return err
			}
		}
		return fmt.Errorf("%w: %s", ErrCallFailed, env.Error.Message)
	}
	return nil
}

// applyFlags overrides configuration values with the flags set on the command line.
func applyFlags(cmd *cobra.Command, opts *CallOptions, cfg *config.HTTPClientConfig) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.Timeout = opts.Timeout
	}
	if flags.Changed("retries") {
		cfg.MaxRetries = opts.Retries
	}
	cfg.Retry.StatusCodes = append(cfg.Retry.StatusCodes, opts.RetryStatus...)
	cfg.Retry.StatusPatterns = append(cfg.Retry.StatusPatterns, opts.RetryPatterns...)
	if opts.PayloadLogging {
		cfg.LogPayloads = true
	}
}

func buildRequest(opts *CallOptions, url string) (*httpclient.Request, error) {
	headers, err := parsePairs(opts.Headers, "header", ":", "=")
	if err != nil {
		return nil, err
	}
	query, err := parsePairs(opts.Query, "query", "=")
	if err != nil {
		return nil, err
	}

	req := &httpclient.Request{URL: url, Headers: headers, QueryParams: query}
	if opts.Data != "" {
		if json.Valid([]byte(opts.Data)) {
			req.Body = json.RawMessage(opts.Data)
		} else {
			req.Body = opts.Data
		}
	}
	return req, nil
}

// parsePairs splits each value at the earliest of the given separators.
func parsePairs(values []string, kind string, separators ...string) (map[string]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(values))
	for _, value := range values {
		key, val, ok := cutEarliest(value, separators)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s %q: expected key%svalue", kind, value, separators[len(separators)-1])
		}
		pairs[key] = strings.TrimSpace(val)
	}
	return pairs, nil
}

func cutEarliest(s string, separators []string) (before, after string, found bool) {
	at, width := -1, 0
	for _, sep := range separators {
		if i := strings.Index(s, sep); i >= 0 && (at < 0 || i < at) {
			at, width = i, len(sep)
		}
	}
	if at < 0 {
		return s, "", false
	}
	return s[:at], s[at+width:], true
}

func newCLILogger(w io.Writer, cfg *config.LogConfig) logger.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return logger.NewWithWriter(w, cfg.Level)
}

func newTelemetry(w io.Writer, cfg *config.Config, log logger.Logger) (observability.Provider, error) {
	opts := []observability.Option{observability.WithWriter(w), observability.WithLogger(log)}
	if cfg.Log.Pretty {
		opts = append(opts, observability.WithPrettyPrint())
	}
	return observability.NewProvider(cfg, opts...)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
