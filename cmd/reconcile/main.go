// Command reconcile runs the enrollment reconciliation pipeline for the given
// enrollment ids without going through the HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/bootstrap"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

type processor interface {
	Process(ctx context.Context, id models.EnrollmentID) (models.StudentID, error)
}

func main() {
	os.Exit(run())
}

func run() int {
	var ids idList
	configPath := flag.String("config", "", "path to config.yaml (default configs/config.yaml)")
	concurrency := flag.Int("concurrency", 4, "enrollments processed in parallel")
	flag.Var(&ids, "id", "enrollment id to process (repeatable, comma separated)")
	flag.Parse()
	for _, arg := range flag.Args() {
		_ = ids.Set(arg)
	}
	if len(ids) == 0 {
		fmt.Fprintln(os.Stderr, "usage: reconcile [-config path] [-concurrency n] <enrollment-id>...")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	database, err := bootstrap.SetupDatabase(ctx, cfg, lgr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup database: %v\n", err)
		return 1
	}
	defer database.Close()

	deps := bootstrap.BuildServices(cfg, database, nil, lgr)

	failed := reconcileAll(ctx, deps.ReconciliationService, ids, *concurrency, os.Stdout)
	if failed > 0 {
		lgr.Error().Int("failed", failed).Int("total", len(ids)).Msg("Some enrollments could not be reconciled")
		return 1
	}
	return 0
}

// reconcileAll processes every id and prints one result line per enrollment.
// It returns how many failed.
func reconcileAll(ctx context.Context, svc processor, ids []string, concurrency int, out io.Writer) int {
	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu     sync.Mutex
		failed int
	)
	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, id := range ids {
		id := models.EnrollmentID(id)
		g.Go(func() error {
			studentID, err := svc.Process(ctx, id)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				fmt.Fprintf(out, "%s\tFAILED\t%v\n", id, err)
				return nil
			}
			fmt.Fprintf(out, "%s\tOK\t%s\n", id, studentID)
			return nil
		})
	}
	_ = g.Wait()
	return failed
}
