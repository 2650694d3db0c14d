package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arthur-debert/accords/accords/session"
	"github.com/arthur-debert/accords/accords/store"
)

// openStore starts the process-wide engine. Callers defer store.Shutdown.
func (cli *CLI) openStore(ctx context.Context) (*store.Store, error) {
	v := cli.viperInst
	s, err := store.Initialize(ctx, store.Options{
		Threads:     v.GetInt(keyThreads),
		CacheDir:    v.GetString(keyCacheDir),
		Refresh:     v.GetBool(keyRefresh),
		Logger:      cli.logs.main,
		QueryLogger: cli.logs.queries,
	})
	if err != nil {
		return nil, WrapError("start the engine", err)
	}
	return s, nil
}

// openExplorer starts the engine and loads the configured dataset. The
// returned close function ends the sessions and shuts the engine down.
func (cli *CLI) openExplorer(ctx context.Context, opts session.Options) (*session.Explorer, session.Dataset, func(), error) {
	s, err := cli.openStore(ctx)
	if err != nil {
		return nil, session.Dataset{}, nil, err
	}

	opts.Table = cli.viperInst.GetString(keyTable)
	opts.Logger = cli.logs.main
	e := session.NewExplorer(s, opts)
	closeFn := func() {
		e.Close()
		_ = store.Shutdown()
	}

	ds, err := cli.loadDataset(ctx, e)
	if err != nil {
		closeFn()
		return nil, session.Dataset{}, nil, err
	}
	return e, ds, closeFn, nil
}

// loadDataset loads --jsonl when set, --dataset otherwise.
func (cli *CLI) loadDataset(ctx context.Context, e *session.Explorer) (session.Dataset, error) {
	v := cli.viperInst
	start := time.Now()

	var (
		ds  session.Dataset
		err error
	)
	if path := v.GetString(keyJSONL); path != "" {
		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return ds, NewValidationError("load the dataset", "jsonl file", path, CommonSuggestions.CheckJSONL)
		}
		ds, err = e.LoadLocal(ctx, filepath.Base(path), string(content))
	} else {
		ds, err = e.LoadRemote(ctx, v.GetString(keyDataset))
	}
	if err != nil {
		return ds, WrapError("load the dataset", err)
	}

	cli.logs.main.Info("dataset loaded",
		"source", ds.Source,
		"records", humanize.Comma(ds.Records),
		"columns", len(ds.Columns),
		"took", time.Since(start).String())
	return ds, nil
}

func describeDataset(ds session.Dataset) string {
	return fmt.Sprintf("%s agreements from %s (%s, loaded %s)",
		humanize.Comma(ds.Records), ds.Source, ds.Kind, humanize.Time(ds.LoadedAt))
}
