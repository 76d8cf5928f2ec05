package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medula/internal/calendar"
	"medula/internal/datemath"
	appLog "medula/internal/log"
	"medula/internal/model"
	"medula/internal/query"
)

// bindInputFlags registers the event fields shared by add and export --add.
func bindInputFlags(cmd *cobra.Command, in *model.EventInput) {
	cmd.Flags().StringVarP(&in.Title, "title", "t", "", "Event title (required)")
	cmd.Flags().StringVarP(&in.Date, "date", "d", "", "Date as YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&in.Time, "time", "", "Time as HH:MM")
	cmd.Flags().StringVar(&in.Type, "type", "", "consulta, examen or medicamento (default consulta)")
	cmd.Flags().StringVarP(&in.Location, "location", "l", "", "Location")
	cmd.Flags().StringVarP(&in.Notes, "notes", "n", "", "Free-text notes")
}

// followAnchor moves the persisted calendar anchor to ev's month. A failed
// save is logged; the event itself is already stored.
func followAnchor(ctx context.Context, a *app, ev model.Event) {
	anchor, err := calendar.AnchorAfterAdd(ev)
	if err != nil {
		return
	}
	if err := a.store.SaveCurrent(ctx, anchor); err != nil {
		appLog.Error("save calendar anchor failed", err, "id", ev.ID)
	}
}

func newAddCmd() *cobra.Command {
	var in model.EventInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.Validate(); err != nil {
				return err
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ev, err := a.store.Add(cmd.Context(), in)
			if err != nil {
				return err
			}
			followAnchor(cmd.Context(), a, ev)
			fmt.Fprintln(cmd.OutOrStdout(), ev.ID)
			return nil
		},
	}
	bindInputFlags(cmd, &in)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newListCmd() *cobra.Command {
	var q, date string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments, optionally filtered by text and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := datemath.FromISODate(date); err != nil {
					return err
				}
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			all := a.store.Events()
			if date != "" {
				return writeEventTable(cmd.OutOrStdout(), query.ForDate(all, q, date))
			}
			return writeEventTable(cmd.OutOrStdout(), query.Search(all, q))
		},
	}
	cmd.Flags().StringVarP(&q, "query", "q", "", "Case-insensitive text in title, location or notes")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Only events on this YYYY-MM-DD")
	return cmd
}

func newUpcomingCmd() *cobra.Command {
	var typeFilter string
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "List future appointments in date order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return writeEventTable(cmd.OutOrStdout(), query.Upcoming(a.store.Events(), typeFilter, time.Now()))
		},
	}
	cmd.Flags().StringVar(&typeFilter, "type", model.TypeAll, "Only this type (all for every type)")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove EVENT_ID",
		Short: "Remove an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ev, ok, err := a.store.RemoveByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("event %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s (%s)\n", ev.ID, ev.Title)
			return nil
		},
	}
}

func newClearCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every appointment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.store.Clear(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm removal of all events")
	return cmd
}

func newCalendarCmd() *cobra.Command {
	var view, date, q string
	var step int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Print the month, week or list view",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			st := a.store.LoadViewState(ctx)
			if view != "" {
				v, ok := model.ParseView(view)
				if !ok {
					return fmt.Errorf("unknown view %q", view)
				}
				st.View = v
			}
			if date != "" {
				d, err := datemath.FromISODate(date)
				if err != nil {
					return err
				}
				st.Current = d
			}
			if cmd.Flags().Changed("step") {
				st.Current = calendar.Navigate(st.Current, st.View, step)
			}

			// The chosen view and anchor become the new default.
			if err := a.store.SaveView(ctx, st.View); err != nil {
				return err
			}
			if err := a.store.SaveCurrent(ctx, st.Current); err != nil {
				return err
			}

			p := calendar.Project(st.View, st.Current, query.Search(a.store.Events(), q))
			return renderProjection(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().StringVarP(&view, "view", "v", "", "month, week or list (default: last used)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Anchor date YYYY-MM-DD (default: last used)")
	cmd.Flags().StringVarP(&q, "query", "q", "", "Only events matching this text")
	cmd.Flags().IntVarP(&step, "step", "s", 0, "Page forward (+n) or back (-n); 0 jumps to today")
	return cmd
}
