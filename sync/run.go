package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"dsc/state"
)

func openEngine(env *state.LocalEnv) (*Engine, *Store, error) {
	store, err := OpenStore(env.Cfg.Sync.StatePath, env.Log)
	if err != nil {
		return nil, nil, err
	}
	return NewEngine(env.Cfg, store, env.Log).WithReport(env.Rpt), store, nil
}

func routeName(env *state.LocalEnv, cmd *cli.Command) (string, error) {
	name := cmd.String("route")
	if len(name) > 0 {
		return name, nil
	}
	// with a single configured route it does not have to be named
	var enabled []string
	for _, r := range env.Cfg.Routes {
		if r.Enabled {
			enabled = append(enabled, r.Name)
		}
	}
	if len(enabled) == 1 {
		return enabled[0], nil
	}
	return "", errors.New("no route has been specified (--route)")
}

// RunSync is the action behind the "sync" subcommand: push a document or a
// whole route forward.
func RunSync(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log

	route, err := routeName(env, cmd)
	if err != nil {
		return err
	}

	engine, store, err := openEngine(env)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := Options{
		SkipQuip: cmd.Bool("no-quip"),
		Force:    cmd.Bool("force"),
	}

	if cmd.Args().Len() == 0 {
		results, err := engine.SyncRoute(ctx, route, "forward", opts)
		logRouteResults(log, route, results)
		return err
	}

	docPath, err := filepath.Abs(cmd.Args().Get(0))
	if err != nil {
		return err
	}
	res, err := engine.SyncForward(ctx, route, docPath, opts)
	if err != nil {
		return err
	}
	log.Info("document synced",
		zap.String("document", res.RelPath),
		zap.String("page", res.NotionPageID),
		zap.String("thread", res.QuipThreadID),
		zap.Int("media", res.MediaCount))
	return nil
}

// RunPull is the action behind the "pull" subcommand: fetch a document by
// title, or refresh every document known on the route.
func RunPull(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log

	route, err := routeName(env, cmd)
	if err != nil {
		return err
	}

	engine, store, err := openEngine(env)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := Options{
		SkipNotion: cmd.Bool("no-notion"),
		Overwrite:  env.Overwrite,
	}

	if cmd.Args().Len() == 0 {
		results, err := engine.SyncRoute(ctx, route, "reverse", opts)
		logRouteResults(log, route, results)
		return err
	}

	title := cmd.Args().Get(0)
	res, err := engine.SyncReverse(ctx, route, title, opts)
	if err != nil {
		return err
	}
	log.Info("document pulled",
		zap.String("title", res.Title),
		zap.String("document", res.RelPath),
		zap.Int("media", res.MediaCount))
	return nil
}

// RunStatus is the action behind the "status" subcommand: print persisted
// sync state for a route.
func RunStatus(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)

	route, err := routeName(env, cmd)
	if err != nil {
		return err
	}

	store, err := OpenStore(env.Cfg.Sync.StatePath, env.Log)
	if err != nil {
		return err
	}
	defer store.Close()

	docs, err := store.Documents(ctx, route)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Printf("No documents synced on route %q yet\n", route)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tPAGE\tTHREAD\tLAST SYNCED")
	for _, doc := range docs {
		synced := ""
		if !doc.LastSynced.IsZero() {
			synced = doc.LastSynced.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", doc.RelPath, doc.NotionPageID, doc.QuipThreadID, synced)
	}
	return w.Flush()
}

func logRouteResults(log *zap.Logger, route string, results []Result) {
	synced, skipped := 0, 0
	for _, res := range results {
		if res.Skipped {
			skipped++
			continue
		}
		synced++
	}
	log.Info("route processed",
		zap.String("route", route),
		zap.Int("synced", synced),
		zap.Int("skipped", skipped))
}
