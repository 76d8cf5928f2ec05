package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"medula/internal/ics"
	appLog "medula/internal/log"
	"medula/internal/metrics"
	"medula/internal/model"
)

var errNoEvents = errors.New("no hay eventos para exportar")

func newExportCmd() *cobra.Command {
	var (
		id, out string
		add     bool
		in      model.EventInput
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write appointments as an ICS calendar",
		Long: "Without flags every appointment is exported. --id exports one event; " +
			"--add saves a new event from the field flags and exports it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if add && id != "" {
				return errors.New("--add and --id are mutually exclusive")
			}
			if add {
				if err := in.Validate(); err != nil {
					return err
				}
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			now := time.Now()
			var doc, name string
			switch {
			case add:
				ev, err := a.store.Add(cmd.Context(), in)
				if err != nil {
					return err
				}
				followAnchor(cmd.Context(), a, ev)
				if doc, err = ics.SerializeOne(ev, now); err != nil {
					return err
				}
				name = ics.Filename(ev.Title)
				metrics.Exports.WithLabelValues("one").Inc()
			case id != "":
				ev, ok := a.store.Get(id)
				if !ok {
					return fmt.Errorf("event %s not found", id)
				}
				if doc, err = ics.SerializeOne(ev, now); err != nil {
					return err
				}
				name = ics.Filename(ev.Title)
				metrics.Exports.WithLabelValues("one").Inc()
			default:
				events := a.store.Events()
				if len(events) == 0 {
					return errNoEvents
				}
				if doc, err = ics.SerializeAll(events, now); err != nil {
					return err
				}
				name = ics.AllFilename
				metrics.Exports.WithLabelValues("all").Inc()
			}

			switch out {
			case "-":
				_, err = io.WriteString(cmd.OutOrStdout(), doc)
				return err
			case "":
				out = name
			}
			if err := os.WriteFile(out, []byte(doc), 0o600); err != nil {
				return err
			}
			appLog.Info("ics exported", "path", out, "bytes", len(doc))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Export only this event")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: generated file name; - for stdout)")
	cmd.Flags().BoolVar(&add, "add", false, "Save a new event from the field flags, then export it")
	bindInputFlags(cmd, &in)
	return cmd
}

func newImportCmd() *cobra.Command {
	var file, url string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Add the events of an ICS calendar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (file == "") == (url == "") {
				return errors.New("exactly one of --file or --url is required")
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var body []byte
			if file != "" {
				body, err = os.ReadFile(file)
			} else {
				timeout := time.Duration(a.cfg.ImportTimeoutSeconds) * time.Second
				body, err = ics.NewFetcher(timeout).Fetch(cmd.Context(), url)
			}
			if err != nil {
				return err
			}

			inputs, err := ics.ParseICS(body)
			if err != nil {
				return err
			}

			imported, skipped := 0, 0
			for _, in := range inputs {
				if err := in.Validate(); err != nil {
					appLog.Info("import: skipping event", "title", in.Title, "date", in.Date, "reason", err.Error())
					skipped++
					continue
				}
				if _, err := a.store.Add(cmd.Context(), in); err != nil {
					return fmt.Errorf("after %d imported: %w", imported, err)
				}
				imported++
			}
			metrics.ImportedEvents.Add(float64(imported))
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "ICS file to import")
	cmd.Flags().StringVarP(&url, "url", "u", "", "http(s) URL of an ICS calendar")
	return cmd
}
