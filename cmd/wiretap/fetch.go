package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/supergoodsystems/wiretap"
)

func newFetchCmd(a *app) *cobra.Command {
	var (
		method  string
		data    string
		headers []string
		include bool
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Make one request through an instrumented client and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			svc, err := wiretap.New(a.options())
			if err != nil {
				return err
			}
			defer svc.Close()

			var body io.Reader
			if data != "" {
				body = strings.NewReader(data)
			}
			req, err := http.NewRequestWithContext(cmd.Context(), method, args[0], body)
			if err != nil {
				return err
			}
			for _, h := range headers {
				k, v, ok := strings.Cut(h, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, expected name:value", h)
				}
				req.Header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
			}

			resp, err := svc.DefaultClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			out := cmd.OutOrStdout()
			if include {
				fmt.Fprintln(out, resp.Proto, resp.Status)
				resp.Header.Write(out)
				fmt.Fprintln(out)
			}
			_, err = io.Copy(out, resp.Body)
			return err
		}),
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodGet, "request method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "request header as name:value, repeatable")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "print the status line and response headers")
	return cmd
}

func (a *app) options() *wiretap.Options {
	redact := make(map[string]bool, len(a.cfg.RedactHeaders))
	for _, h := range a.cfg.RedactHeaders {
		redact[h] = true
	}
	return &wiretap.Options{
		Store:                  a.store,
		Settings:               a.cfg.Settings,
		RedactHeaders:          redact,
		RedactRequestBodyKeys:  a.cfg.RedactRequestBodyKeys,
		RedactResponseBodyKeys: a.cfg.RedactResponseBodyKeys,
		AllowedDomains:         a.cfg.AllowedDomains,
		IgnorePaths:            a.cfg.IgnorePaths,
		Logger:                 a.log,
	}
}
