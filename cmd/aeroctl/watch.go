package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ukydev/aero-console/internal/metrics"
	"github.com/ukydev/aero-console/internal/models"
	"github.com/ukydev/aero-console/internal/session"
)

func (c *cli) watchCmd() *cobra.Command {
	var (
		interval    time.Duration
		duration    time.Duration
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "watch [vehicle...]",
		Short: "Stream live telemetry and alerts",
		Long: "Stream live telemetry for the given vehicles, or the whole organization when none are named,\n" +
			"and print a status table every interval until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			app, closeFn, err := c.openSignedIn(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if metricsAddr != "" {
				stop := serveMetrics(metricsAddr)
				defer stop()
			}

			releases, err := subscribe(app, args)
			if err != nil {
				return err
			}
			defer releaseAll(releases)

			return render(ctx, cmd.OutOrStdout(), app, args, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "table refresh interval")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	return cmd
}

func subscribe(app *session.App, vehicles []string) (releases []func(), err error) {
	defer func() {
		if err != nil {
			releaseAll(releases)
			releases = nil
		}
	}()
	add := func(release func(), err error) error {
		if err == nil {
			releases = append(releases, release)
		}
		return err
	}

	if len(vehicles) == 0 {
		var ids []string
		for _, v := range app.Fleet.Vehicles() {
			ids = append(ids, v.ID)
		}
		if err := add(app.WatchFleet(ids)); err != nil {
			return releases, err
		}
	}
	for _, id := range vehicles {
		if _, ok := app.Fleet.Vehicle(id); !ok {
			return releases, fmt.Errorf("unknown vehicle %q", id)
		}
		if err := add(app.WatchVehicle(id)); err != nil {
			return releases, err
		}
	}
	return releases, add(app.WatchAlerts())
}

func releaseAll(releases []func()) {
	for _, release := range releases {
		release()
	}
}

func render(ctx context.Context, w io.Writer, app *session.App, vehicles []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := printVehicles(w, app, vehicles); err != nil {
			return err
		}
		for _, a := range app.Telemetry.Alerts() {
			if seen[a.ID] {
				continue
			}
			seen[a.ID] = true
			fmt.Fprintf(w, "[%s] %s\n", a.Severity, a.Message)
		}
	}
}

func printVehicles(w io.Writer, app *session.App, ids []string) error {
	var views []models.Vehicle
	if len(ids) == 0 {
		views = app.VehicleViews()
	} else {
		for _, id := range ids {
			if v, ok := app.VehicleView(id); ok {
				views = append(views, v)
			}
		}
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "VEHICLE\tSTATUS\tMODE\tARMED\tBATTERY\tLAT\tLNG\tALT\tMISSION")
	for _, v := range views {
		missionName := "-"
		if m, ok := app.Missions.ActiveMissionForVehicle(v.ID); ok {
			missionName = fmt.Sprintf("%s (%.0f%%)", m.Name, m.Progress)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%.1f%%\t%.5f\t%.5f\t%.1f\t%s\n",
			v.Name, v.Status, v.Mode, v.Armed, v.Battery, v.Position.Lat, v.Position.Lng, v.Position.Alt, missionName)
	}
	fmt.Fprintln(tw)
	return tw.Flush()
}

// serveMetrics exposes the stream and action collectors until stop is called.
func serveMetrics(addr string) (stop func()) {
	metrics.Register(prometheus.DefaultRegisterer)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", addr).Error("Metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("Serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
