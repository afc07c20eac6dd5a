package exec

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ValentinKolb/jsonq/cmd/util"
	"github.com/ValentinKolb/jsonq/lib/document"
	"github.com/ValentinKolb/jsonq/lib/engine"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	ExecCmd = &cobra.Command{
		Use:   "exec [REQUEST...]",
		Short: "Execute request documents and print the responses",
		Long: `Execute request documents against a fresh engine and print one response per line.

Requests are read from the arguments, from --file, or from stdin (in that order
of precedence). Any sequence of JSON objects is accepted, e.g. JSON lines.
Requests run one after another; each waits for the previous response.

Example:

  jsonq exec '{"id":"1","op":"provision","store":"users","payload":{"provider":"mem"}}' \
             '{"id":"2","op":"save","store":"users","payload":{"name":"Alice"}}'`,
		RunE: run,
	}
)

func init() {
	key := "file"
	ExecCmd.Flags().String(key, "", util.WrapString("Read requests from this file instead of the arguments or stdin"))

	key = "timeout"
	ExecCmd.Flags().Int(key, 10, util.WrapString("The timeout in seconds to wait for each response"))

	key = "keep-going"
	ExecCmd.Flags().Bool(key, true, util.WrapString("Continue with the next request after a malformed one"))
}

func run(cmd *cobra.Command, args []string) error {
	conf, err := util.GetEngineConfig(cmd)
	if err != nil {
		return err
	}

	input, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer input.Close()

	e, err := engine.New(conf)
	if err != nil {
		return err
	}
	defer e.Close()

	r := &runner{
		engine:    e,
		out:       cmd.OutOrStdout(),
		timeout:   time.Duration(viper.GetInt("timeout")) * time.Second,
		keepGoing: viper.GetBool("keep-going"),
	}
	if err := r.runAll(cmd.Context(), input); err != nil {
		return err
	}

	if conf.MetricsEnabled {
		fmt.Fprintln(cmd.ErrOrStderr())
		e.Database().WriteMetrics(cmd.ErrOrStderr())
	}
	return nil
}

// openInput picks the request source: arguments, --file or stdin.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) > 0 {
		return io.NopCloser(strings.NewReader(strings.Join(args, "\n"))), nil
	}
	if path := viper.GetString("file"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open request file: %w", err)
		}
		return f, nil
	}
	return io.NopCloser(cmd.InOrStdin()), nil
}

// --------------------------------------------------------------------------
// Runner
// --------------------------------------------------------------------------

type runner struct {
	engine    *engine.Engine
	out       io.Writer
	timeout   time.Duration
	keepGoing bool
}

// runAll executes every JSON object of input in order and writes each
// response as one line. Malformed requests are reported as error lines.
func (r *runner) runAll(ctx context.Context, input io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dec := json.NewDecoder(input)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read request: %w", err)
		}

		line, err := r.runOne(ctx, bytes.TrimSpace(raw))
		if err != nil {
			var validation *engine.ValidationError
			if !r.keepGoing || !(errors.As(err, &validation) || errors.Is(err, document.ErrInvalidArgument)) {
				return err
			}
			encoded, jsonErr := json.Marshal(map[string]string{"error": err.Error()})
			if jsonErr != nil {
				return jsonErr
			}
			line = string(encoded)
		}
		if _, err := fmt.Fprintln(r.out, line); err != nil {
			return err
		}
	}
}

func (r *runner) runOne(ctx context.Context, raw []byte) (string, error) {
	request, err := document.Parse(raw)
	if err != nil {
		return "", err
	}
	f, err := r.engine.Exec(request)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	response, failure, ok, err := f.Await(ctx)
	if err != nil {
		return "", fmt.Errorf("no response for request: %w", err)
	}
	if !ok {
		response = failure
	}
	return response.String(), nil
}
