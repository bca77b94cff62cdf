package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/frankli0324/pollhttp"
)

type fetchFlags struct {
	async   bool
	binary  bool
	data    string
	timeout time.Duration
}

func newFetchCmd(root *rootFlags) *cobra.Command {
	f := &fetchFlags{}
	cmd := &cobra.Command{
		Use:   "fetch URL...",
		Short: "Send a request to each URL and print the responses",
		Long: `Fetch sends one request per URL through the transfer queue.

Requests are sent one after the other and wait for their response, unless
--async is given: then all of them are queued at once and printed as they
complete.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := root.transport()
			if err != nil {
				return err
			}
			defer tr.Shutdown()

			ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
			defer cancel()
			go tr.Run(ctx)

			if f.async {
				return f.fetchAsync(ctx, cmd.OutOrStdout(), tr, args)
			}
			return f.fetchSync(ctx, cmd.OutOrStdout(), tr, args)
		},
	}
	cmd.Flags().BoolVar(&f.async, "async", false, "queue every request at once")
	cmd.Flags().BoolVar(&f.binary, "binary", false, "send --data as binary content, a GET when empty")
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "request body")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 30*time.Second, "give up after this long")
	return cmd
}

func (f *fetchFlags) request(url string) (*pollhttp.Request, pollhttp.ContentMode) {
	req := &pollhttp.Request{URL: url}
	if f.binary {
		if f.data != "" {
			req.BinaryContent = []byte(f.data)
		}
		return req, pollhttp.Binary
	}
	req.TextContent = f.data
	return req, pollhttp.Text
}

func (f *fetchFlags) fetchSync(ctx context.Context, out io.Writer, tr *pollhttp.Transport, urls []string) error {
	var failed int
	for _, url := range urls {
		req, mode := f.request(url)
		resp, err := tr.SendSyncContext(ctx, mode, req)
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s\terror: %v\n", url, err)
			continue
		}
		printResponse(out, resp)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(urls))
	}
	return nil
}

func (f *fetchFlags) fetchAsync(ctx context.Context, out io.Writer, tr *pollhttp.Transport, urls []string) error {
	results := make(chan *pollhttp.Response, len(urls))
	for _, url := range urls {
		req, mode := f.request(url)
		if err := tr.SendAsync(mode, req, func(r *pollhttp.Response) { results <- r }); err != nil {
			return err
		}
	}
	var failed int
	for range urls {
		select {
		case r := <-results:
			if r.Err != nil {
				failed++
				fmt.Fprintf(out, "%s\terror: %v\n", r.Request.URL, r.Err)
				continue
			}
			printResponse(out, r)
		case <-ctx.Done():
			return errors.New("timed out waiting for responses")
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d requests failed", failed, len(urls))
	}
	return nil
}

func printResponse(out io.Writer, r *pollhttp.Response) {
	fmt.Fprintf(out, "%s\t%d\t%d bytes\n", r.Request.URL, r.StatusCode, len(r.Body))
	if r.Text != "" {
		fmt.Fprintln(out, r.Text)
	}
}
