// Command taxonaut is the research agent CLI. It answers biodiversity
// questions against the Atlas of Living Australia: free-text queries
// are extracted into parameters, organism names resolved to canonical
// identities, a research plan assembled, and the planned tools executed
// in two phases.
//
// Usage:
//
//	taxonaut query "Are there sightings of Peron's tree frog?"
//	taxonaut resolve "Litoria peronii"
//	taxonaut species "Phascolarctos cinereus"
//	taxonaut lookup-occurrence 4b2895d0-6b2f-4387-b0d5-25ef7e0be1b8
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/taxonaut/taxonaut/core"
	"github.com/taxonaut/taxonaut/extract"
	"github.com/taxonaut/taxonaut/gateway"
	"github.com/taxonaut/taxonaut/orchestration"
	"github.com/taxonaut/taxonaut/resolve"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "taxonaut: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: taxonaut <command> [flags] <args>

commands:
  query <question>          run the full research pipeline on a question
  resolve <name>            resolve an organism name to its identity
  species <name>            fetch the taxonomic profile for a species
  lookup-occurrence <uuid>  fetch a single occurrence record

common flags:
  -base-url URL   data service base URL (default from config)
  -timeout DUR    per-request timeout, e.g. 15s
  -limit N        page size for search results
  -llm            use the LLM extractor instead of keyword patterns
  -trace          print trace spans to stdout`)
}

type cliFlags struct {
	baseURL string
	timeout time.Duration
	limit   int
	useLLM  bool
	trace   bool
}

func parseFlags(command string, args []string) (*cliFlags, []string, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	f := &cliFlags{}
	fs.StringVar(&f.baseURL, "base-url", "", "data service base URL")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-request timeout")
	fs.IntVar(&f.limit, "limit", 0, "page size for search results")
	fs.BoolVar(&f.useLLM, "llm", false, "use the LLM extractor")
	fs.BoolVar(&f.trace, "trace", false, "print trace spans to stdout")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs.Args(), nil
}

func run(ctx context.Context, command string, args []string) error {
	flags, rest, err := parseFlags(command, args)
	if err != nil {
		return err
	}

	opts := []core.Option{}
	if flags.baseURL != "" {
		opts = append(opts, core.WithBaseURL(flags.baseURL))
	}
	if flags.timeout > 0 {
		opts = append(opts, core.WithRequestTimeout(flags.timeout))
	}
	if flags.limit > 0 {
		opts = append(opts, core.WithResultLimit(flags.limit))
	}
	cfg := core.NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := core.NewStdLogger("taxonaut")

	if flags.trace {
		shutdown, err := initTracing(ctx)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer shutdown()
	}

	app, err := newApp(cfg, logger, flags.useLLM)
	if err != nil {
		return err
	}
	defer app.close()

	switch command {
	case "query":
		if len(rest) < 1 {
			return fmt.Errorf("query: missing question")
		}
		return app.runQuery(ctx, rest[0])
	case "resolve":
		if len(rest) < 1 {
			return fmt.Errorf("resolve: missing organism name")
		}
		return app.runResolve(ctx, rest[0])
	case "species":
		if len(rest) < 1 {
			return fmt.Errorf("species: missing species name")
		}
		return app.runSpecies(ctx, rest[0])
	case "lookup-occurrence":
		if len(rest) < 1 {
			return fmt.Errorf("lookup-occurrence: missing record UUID")
		}
		return app.runLookup(ctx, rest[0])
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// initTracing installs a stdout span exporter, for ad-hoc inspection of
// the pipeline's spans.
func initTracing(ctx context.Context) (func(), error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(shutdownCtx)
	}, nil
}

// app holds the wired pipeline for one CLI invocation.
type app struct {
	cfg       *core.Config
	logger    core.Logger
	gateway   *gateway.Client
	cache     *resolve.IdentityCache
	resolver  *resolve.Resolver
	extractor core.Extractor
	planner   *orchestration.Planner
	executor  *orchestration.Executor
}

func newApp(cfg *core.Config, logger core.Logger, useLLM bool) (*app, error) {
	gw := gateway.New(cfg)
	gw.SetLogger(logger)

	cache := resolve.NewIdentityCacheWithOptions(cfg.CacheMaxSize, cfg.CacheTTL, 5*time.Minute)

	resolver := resolve.NewResolver(gw, cache)
	resolver.SetLogger(logger)

	var extractor core.Extractor
	if useLLM {
		llm := extract.NewOpenAIExtractor(cfg)
		llm.SetLogger(logger)
		extractor = llm
	} else {
		kw := extract.NewKeywordExtractor()
		kw.SetLogger(logger)
		extractor = kw
	}

	registry := orchestration.DefaultRegistry()

	planner := orchestration.NewPlanner(registry)
	planner.SetLogger(logger)

	executor, err := orchestration.NewExecutor(registry, orchestration.DefaultTools(),
		orchestration.WithCallTimeout(cfg.RequestTimeout))
	if err != nil {
		return nil, err
	}
	executor.SetLogger(logger)

	return &app{
		cfg:       cfg,
		logger:    logger,
		gateway:   gw,
		cache:     cache,
		resolver:  resolver,
		extractor: extractor,
		planner:   planner,
		executor:  executor,
	}, nil
}

func (a *app) close() {
	a.cache.Stop()
}

// runQuery runs the full pipeline: extract, resolve, plan, execute.
func (a *app) runQuery(ctx context.Context, question string) error {
	params, err := a.extractor.Extract(ctx, question)
	if err != nil {
		return fmt.Errorf("extract parameters: %w", err)
	}

	// Resolution failure does not kill the query. A name missing from
	// both endpoints becomes a clarification back to the user; a
	// transient upstream fault lets planning proceed without an
	// identity, and the planner asks for clarification only if the
	// intent truly needed one.
	if params.SearchTerm != "" && !params.ClarificationNeeded {
		record, err := a.resolver.Resolve(ctx, params.SearchTerm)
		switch {
		case err == nil:
			params.Identity = record
		case isNotFoundResolution(err):
			params.ClarificationNeeded = true
			params.ClarificationReason = fmt.Sprintf(
				"I couldn't find %q in the taxonomy. Could you check the spelling or give the scientific name?",
				params.SearchTerm)
		default:
			a.logger.Warn("Name resolution failed", map[string]interface{}{
				"input": params.SearchTerm,
				"error": err.Error(),
			})
		}
	}
	if params.Limit == 0 {
		params.Limit = a.cfg.ResultLimit
	}

	plan := a.planner.Plan(ctx, question, params)

	artifacts := orchestration.NewArtifactStore()
	tc := &orchestration.ToolContext{
		Params:    params,
		Identity:  params.Identity,
		Gateway:   a.gateway,
		Artifacts: artifacts,
		Logger:    a.logger,
	}

	result := a.executor.Execute(ctx, plan, tc)

	fmt.Printf("Plan %s (%s, %d step(s))\n", plan.PlanID, plan.QueryType, len(plan.Entries))
	if result.Message != "" {
		fmt.Println(result.Message)
	}
	for _, outcome := range result.Outcomes {
		status := "ok"
		if !outcome.Succeeded {
			status = "failed"
		}
		fmt.Printf("\n[%s] %s\n%s\n", status, outcome.ToolName, outcome.Message)
		if outcome.Error != "" {
			fmt.Printf("error: %s\n", outcome.Error)
		}
	}
	if n := len(artifacts.List()); n > 0 {
		fmt.Printf("\n%d artifact(s) produced.\n", n)
	}
	return nil
}

func (a *app) runResolve(ctx context.Context, name string) error {
	record, err := a.resolver.Resolve(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("input:           %s\n", record.InputName)
	fmt.Printf("scientific name: %s\n", record.ScientificName)
	fmt.Printf("stable id:       %s\n", record.StableID)
	if record.Rank != "" {
		fmt.Printf("rank:            %s\n", record.Rank)
	}
	if record.VernacularName != "" {
		fmt.Printf("vernacular name: %s\n", record.VernacularName)
	}
	return nil
}

func (a *app) runSpecies(ctx context.Context, name string) error {
	term := name
	if !resolve.IsStableIdentifier(name) {
		if record, err := a.resolver.Resolve(ctx, name); err == nil {
			term = record.ScientificName
			if term == "" {
				term = record.StableID
			}
		}
	}

	res, err := a.gateway.Invoke(ctx, core.ToolSpeciesProfile, &core.GatewayQuery{Term: term})
	if err != nil {
		return err
	}
	printRecord(res.Record, "scientificName", "rank", "commonNameSingle", "author", "kingdom", "family")
	return nil
}

func (a *app) runLookup(ctx context.Context, recordUUID string) error {
	res, err := a.gateway.Invoke(ctx, core.ToolLookupOccurrence, &core.GatewayQuery{RecordUUID: recordUUID})
	if err != nil {
		return err
	}
	printRecord(res.Record, "scientificName", "vernacularName", "eventDate",
		"locality", "stateProvince", "country", "basisOfRecord", "dataResourceName")
	return nil
}

func isNotFoundResolution(err error) bool {
	var failure *resolve.ResolutionFailure
	return errors.As(err, &failure) && failure.Reason == resolve.ReasonNotFound
}

func printRecord(record map[string]interface{}, keys ...string) {
	for _, key := range keys {
		if v, ok := record[key].(string); ok && v != "" {
			fmt.Printf("%-17s %s\n", key+":", v)
		}
	}
}
