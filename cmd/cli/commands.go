package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/stolpe22/plano-jornada/internal/auth"
	"github.com/stolpe22/plano-jornada/internal/catalog"
	"github.com/stolpe22/plano-jornada/internal/grpcserver"
	"github.com/stolpe22/plano-jornada/internal/plan"
	"github.com/stolpe22/plano-jornada/internal/reconcile"
	"github.com/stolpe22/plano-jornada/internal/search"
	"github.com/stolpe22/plano-jornada/pkg/models"
	"github.com/stolpe22/plano-jornada/pkg/utils"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		tracks      []string
		sensitivity int
		fromCSV     string
		limit       int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the lesson catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			var (
				res search.Results
				err error
			)
			if fromCSV != "" {
				if sensitivity == 0 {
					sensitivity = a.cfg.Search.Sensitivity
				}
				res, err = searchCSV(fromCSV, text, tracks, sensitivity)
			} else {
				res, err = searchDB(cmd.Context(), a, text, tracks, sensitivity)
			}
			if err != nil {
				return err
			}
			printHits(cmd.OutOrStdout(), res, limit)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&tracks, "tracks", "t", nil, "only these tracks (default all)")
	cmd.Flags().IntVarP(&sensitivity, "sensitivity", "s", 0, "fuzzy threshold 30..100 (default from config)")
	cmd.Flags().StringVar(&fromCSV, "from-csv", "", "search a flat catalog CSV instead of the database")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "rows to print")
	return cmd
}

func searchDB(ctx context.Context, a *app, text string, tracks []string, sensitivity int) (search.Results, error) {
	db, err := a.openDB()
	if err != nil {
		return search.Results{}, err
	}
	s := search.NewSearcher(catalog.NewRepo(db), a.cfg.Search, a.log)
	return s.Search(ctx, search.Query{Text: text, Tracks: tracks, Sensitivity: sensitivity})
}

// searchCSV scores every row of an exported catalog with the fuzzy scorer;
// there is no full-text index outside the database.
func searchCSV(path, text string, tracks []string, sensitivity int) (search.Results, error) {
	f, err := os.Open(path)
	if err != nil {
		return search.Results{}, err
	}
	defer f.Close()

	rows, err := catalog.ReadCSV(f)
	if err != nil {
		return search.Results{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(tracks) > 0 {
		rows = search.FilterTracks(rows, tracks)
	}
	hits := search.Fallback(rows, text, utils.ClampSensitivity(sensitivity))
	return search.Results{Method: search.MethodFuzzy, Hits: hits}, nil
}

func printHits(w io.Writer, res search.Results, limit int) {
	if len(res.Hits) == 0 {
		fmt.Fprintln(w, "no results")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "SCORE\tTRACK\tCOURSE\tMODULE\tLESSON\tLINK\n")
	for i, h := range res.Hits {
		if limit > 0 && i == limit {
			break
		}
		fmt.Fprintf(tw, "%.0f\t%s\t%s\t%s\t%s\t%s\n", h.Score, h.TrackName, h.CourseName,
			models.StringValue(h.ModuleName), models.StringValue(h.LessonName), models.StringValue(h.LessonLink))
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d hit(s) via %s\n", len(res.Hits), res.Method)
}

func newReconcileCmd(a *app) *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Attach catalog lesson links to the imported study plan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			planRepo, catalogRepo := plan.NewRepo(db), catalog.NewRepo(db)
			rec := reconcile.New(a.cfg.Match)
			out := cmd.OutOrStdout()

			if explain {
				entries, err := planRepo.List(cmd.Context())
				if err != nil {
					return err
				}
				rows, err := catalogRepo.List(cmd.Context(), catalog.Filter{})
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "ID\tTRACK\tMODULE\tMATCHED TRACK\tT\tM\tC\tVIA\tLINK\n")
				for _, r := range rec.Explain(entries, rows) {
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%s\t%s\n", r.Entry.ID, r.Entry.TrackLabel, r.Entry.ModuleLabel,
						r.Track, r.TrackScore, r.ModuleScore, r.CourseScore, r.Strategy, models.StringValue(r.Entry.LessonLink))
				}
				return tw.Flush()
			}

			_, sum, err := plan.NewService(planRepo, catalogRepo, rec, a.log).Reconcile(cmd.Context())
			if errors.Is(err, plan.ErrNoPlan) {
				return errors.New("no plan imported yet: run import-csv -plan first")
			}
			if errors.Is(err, plan.ErrNoCatalog) {
				return errors.New("catalog is empty: run the scraper first")
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, sum.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "print match scores without saving")
	return cmd
}

func newProgressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show study plan progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			p, err := plan.NewRepo(db).Progress(cmd.Context())
			if err != nil {
				return err
			}
			printProgress(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func printProgress(w io.Writer, p models.PlanProgress) {
	fmt.Fprintf(w, "completed %d of %d lessons (%.1f%%), %d pending\n", p.Completed, p.Total, p.Percent, p.Pending)
	fmt.Fprintf(w, "hours: %.1f total, %.1f remaining\n", p.HoursTotal, p.HoursRemaining)
	if len(p.Tracks) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "TRACK\tDONE\tTOTAL\tPERCENT\n")
	for _, t := range p.Tracks {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\n", t.Track, t.Completed, t.Total, t.Percent)
	}
	_ = tw.Flush()
}

func newTracksCmd(a *app) *cobra.Command {
	var grpcAddr string
	cmd := &cobra.Command{
		Use:   "tracks",
		Short: "List catalog tracks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var tracks []string
			if grpcAddr != "" {
				conn, err := grpc.NewClient(grpcAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
				if err != nil {
					return err
				}
				defer conn.Close()
				ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
				defer cancel()
				resp, err := grpcserver.NewClient(conn).Tracks(ctx)
				if err != nil {
					return err
				}
				tracks = resp.Tracks
			} else {
				db, err := a.openDB()
				if err != nil {
					return err
				}
				if tracks, err = catalog.NewRepo(db).Tracks(cmd.Context()); err != nil {
					return err
				}
			}
			for _, t := range tracks {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc", "", "ask a running grpc-server instead of the local database")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	var (
		addr      string
		reconnect bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow crawl progress from a running api-server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = dialable(a.cfg.API.SyncAddr)
			}
			ctx := cmd.Context()
			for {
				err := watch(ctx, addr, cmd.OutOrStdout())
				if !reconnect || ctx.Err() != nil {
					return err
				}
				a.log.Warn("feed disconnected", "addr", addr, "err", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "progress feed address (default from config)")
	cmd.Flags().BoolVar(&reconnect, "reconnect", false, "keep reconnecting until interrupted")
	return cmd
}

// watch copies feed lines to w until ctx ends or the server hangs up.
func watch(ctx context.Context, addr string, w io.Writer) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		fmt.Fprintln(w, sc.Text())
	}
	if ctx.Err() != nil {
		return nil
	}
	return sc.Err()
}

func dialable(listenAddr string) string {
	if strings.HasPrefix(listenAddr, ":") {
		return "127.0.0.1" + listenAddr
	}
	return listenAddr
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for operator_password_hash",
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			pw := strings.TrimRight(line, "\r\n")
			if pw == "" {
				return errors.New("empty password")
			}
			h, err := auth.HashPassword(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}
