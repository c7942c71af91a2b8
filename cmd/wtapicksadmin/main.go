package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ts4z/wtapicks/admin"
	"github.com/ts4z/wtapicks/config"
	"github.com/ts4z/wtapicks/leaderboard"
	"github.com/ts4z/wtapicks/permission"
	"github.com/ts4z/wtapicks/rankings"
	"github.com/ts4z/wtapicks/reconcile"
	"github.com/ts4z/wtapicks/state"
	"github.com/ts4z/wtapicks/textutil"
	"github.com/ts4z/wtapicks/ts"
)

var (
	clock = ts.NewRealClock()

	repair bool
)

func openStorage(ctx context.Context) *state.DBStorage {
	storage, err := state.OpenDBStorage(ctx)
	if err != nil {
		log.Fatalf("can't connect to database: %v", err)
	}
	return storage
}

func applySchema(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	if err := storage.ApplySchema(ctx); err != nil {
		return err
	}
	fmt.Println("Schema applied.")
	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	r := reconcile.New(&reconcile.Config{Storage: storage, Clock: clock})
	var rep *reconcile.Report
	var err error
	if repair {
		rep, err = r.Repair(ctx, permission.System)
	} else {
		rep, err = r.Check(ctx, permission.System)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Checked %d picks and %d users.\n", rep.PicksChecked, rep.UsersChecked)
	for _, d := range rep.Picks {
		fmt.Printf("  pick %d (user %d, tournament %d, player %d): cached %d, expected %d\n",
			d.PickID, d.UserID, d.TournamentID, d.PlayerID, d.Cached, d.Expected)
	}
	for _, d := range rep.Users {
		fmt.Printf("  user %d (%s): cached %d, expected %d\n", d.UserID, d.Nick, d.Cached, d.Expected)
	}
	switch {
	case rep.Clean():
		fmt.Println("No drift.")
	case rep.Repaired:
		fmt.Println("Repaired.")
	default:
		fmt.Println("Run again with --repair to fix.")
	}
	return nil
}

func syncRankings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	im := rankings.NewImporter(&rankings.Config{
		Storage: storage,
		Fetcher: rankings.NewFetcher(&rankings.FetcherConfig{
			URL:     config.RankingsURL(),
			Timeout: config.FetchTimeout(),
		}),
	})
	res, err := im.Sync(ctx, permission.System)
	if err != nil {
		return err
	}
	fmt.Printf("Synced rankings: %d updated, %d new players\n", res.Updated, res.Created)
	return nil
}

func syncCalendar(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	svc := admin.New(&admin.Config{Storage: storage, Users: permission.NewUserStorage(storage)})
	res, err := svc.SyncCalendar(ctx, permission.System)
	if err != nil {
		return err
	}
	fmt.Println(res)
	return nil
}

func printStandings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	storage := openStorage(ctx)
	defer storage.Close()

	standings, err := leaderboard.New(storage).Standings(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(w, "place\tnick\tscore\tearned\tspent\tpicks\n")
	for _, st := range standings {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n", textutil.FormatPlace(st.Rank), st.Nick,
			st.Score, st.Earned, st.Spent, st.PickCount)
	}
	return w.Flush()
}

func main() {
	config.Init()

	rootCmd := &cobra.Command{
		Short: "wtapicks administration tool",
		Use:   "wtapicksadmin",
	}

	schemaCmd := &cobra.Command{
		Short: "Manage the database schema",
		Use:   "schema",
	}
	schemaCmd.AddCommand(&cobra.Command{
		Use:   "apply",
		Short: "Create any missing tables",
		RunE:  applySchema,
	})

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare cached points with match history",
		RunE:  runReconcile,
	}
	reconcileCmd.Flags().BoolVar(&repair, "repair", false, "Rewrite cached points that are out of line")

	syncCmd := &cobra.Command{
		Short: "Pull data from outside sources",
		Use:   "sync",
	}
	syncCmd.AddCommand(&cobra.Command{
		Use:   "rankings",
		Short: "Upsert players from the current WTA rankings",
		RunE:  syncRankings,
	}, &cobra.Command{
		Use:   "calendar",
		Short: "Add the built-in tournament calendar",
		RunE:  syncCalendar,
	})

	standingsCmd := &cobra.Command{
		Use:   "standings",
		Short: "Print the leaderboard",
		RunE:  printStandings,
	}

	rootCmd.AddCommand(schemaCmd, keyCommand(), userCommand(), reconcileCmd, syncCmd, standingsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
